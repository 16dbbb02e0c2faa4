/*
operation.go - Operation catalog and registry

PURPOSE:
  Every ledger entry references an operation from a small catalog
  (purchase, stock usage, waste, yields, transfers, counts). The operation
  decides the entry's direction (add or remove stock) and gives the
  per-operation breakdown its slots.

HOW IT WORKS:
  1. A catalog is loaded (factory.ParseCatalog or DefaultOperations)
  2. The registry is handed to the Reporter
  3. The AggregationEngine looks up each entry's operation by id and emits
     one breakdown bucket per registered operation

WHY A REGISTRY:
  - Adding or removing an operation is a catalog change, not a new field
  - Breakdowns are maps keyed by OperationID, ordered by the registry
  - Unknown operation ids are detected instead of silently dropped

SEE ALSO:
  - factory/catalog.go: JSON catalog loader
  - aggregate.go: Uses Lookup and IDs
*/
package costing

import (
	"fmt"
	"sort"
)

// =============================================================================
// OPERATION
// =============================================================================

type OperationType string

const (
	OpAddStock    OperationType = "add_stock"
	OpRemoveStock OperationType = "remove_stock"
)

func (t OperationType) Valid() bool {
	return t == OpAddStock || t == OpRemoveStock
}

// CodePurchase marks the operation whose added cost feeds purchaseCostPercentage.
const CodePurchase = "purchase"

type Operation struct {
	ID   OperationID   `json:"id"`
	Type OperationType `json:"type"`
	Name string        `json:"name"`
	Code string        `json:"code"`
}

// =============================================================================
// OPERATION REGISTRY
// =============================================================================

// OperationRegistry is an immutable id -> operation catalog.
type OperationRegistry struct {
	byID  map[OperationID]Operation
	order []OperationID
}

// NewOperationRegistry validates the catalog: ids and codes must be unique,
// types must be add_stock or remove_stock.
func NewOperationRegistry(ops ...Operation) (*OperationRegistry, error) {
	r := &OperationRegistry{byID: make(map[OperationID]Operation, len(ops))}
	codes := make(map[string]bool, len(ops))
	for _, op := range ops {
		if !op.Type.Valid() {
			return nil, fmt.Errorf("%w: operation %d has type %q", ErrInvalidCatalog, op.ID, op.Type)
		}
		if _, dup := r.byID[op.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate operation id %d", ErrInvalidCatalog, op.ID)
		}
		if op.Code != "" {
			if codes[op.Code] {
				return nil, fmt.Errorf("%w: duplicate operation code %q", ErrInvalidCatalog, op.Code)
			}
			codes[op.Code] = true
		}
		r.byID[op.ID] = op
		r.order = append(r.order, op.ID)
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
	return r, nil
}

// MustOperationRegistry panics on an invalid catalog. For static catalogs only.
func MustOperationRegistry(ops ...Operation) *OperationRegistry {
	r, err := NewOperationRegistry(ops...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultOperations returns the standard ten-entry catalog.
func DefaultOperations() *OperationRegistry {
	return MustOperationRegistry(
		Operation{ID: 1, Type: OpAddStock, Name: "Purchase", Code: CodePurchase},
		Operation{ID: 2, Type: OpRemoveStock, Name: "Stock Usage", Code: "stock_usage"},
		Operation{ID: 3, Type: OpRemoveStock, Name: "Waste", Code: "waste"},
		Operation{ID: 4, Type: OpAddStock, Name: "Yield In", Code: "yield_in"},
		Operation{ID: 5, Type: OpRemoveStock, Name: "Yield Out", Code: "yield_out"},
		Operation{ID: 6, Type: OpAddStock, Name: "Transfer In", Code: "transfer_in"},
		Operation{ID: 7, Type: OpRemoveStock, Name: "Transfer Out", Code: "transfer_out"},
		Operation{ID: 8, Type: OpAddStock, Name: "Stock Count Gain", Code: "count_gain"},
		Operation{ID: 9, Type: OpRemoveStock, Name: "Stock Count Loss", Code: "count_loss"},
		Operation{ID: 10, Type: OpRemoveStock, Name: "Purchase Return", Code: "purchase_return"},
	)
}

// Lookup finds an operation by id.
func (r *OperationRegistry) Lookup(id OperationID) (Operation, bool) {
	op, ok := r.byID[id]
	return op, ok
}

// ByCode finds an operation by its code.
func (r *OperationRegistry) ByCode(code string) (Operation, bool) {
	for _, id := range r.order {
		if op := r.byID[id]; op.Code == code {
			return op, true
		}
	}
	return Operation{}, false
}

// IDs returns every operation id in ascending order.
func (r *OperationRegistry) IDs() []OperationID {
	out := make([]OperationID, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every operation in ascending id order.
func (r *OperationRegistry) All() []Operation {
	out := make([]Operation, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *OperationRegistry) Len() int { return len(r.order) }
