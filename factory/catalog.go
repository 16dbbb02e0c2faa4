/*
Package factory provides JSON to Go operation-catalog conversion.

PURPOSE:
  Converts JSON operation catalogs into a costing.OperationRegistry. A
  restaurant can add, rename or retire stock operations (a new "staff meal"
  removal, say) by editing the catalog, without touching the engine.

JSON SCHEMA:
  {
    "operations": [
      {"id": 1, "type": "add_stock",    "name": "Purchase",    "code": "purchase"},
      {"id": 2, "type": "remove_stock", "name": "Stock Usage", "code": "stock_usage"}
    ]
  }

KEY FEATURES:
  - Validates JSON structure
  - Accepts short direction aliases ("add", "in", "remove", "out")
  - Derives a code from the name when none is given
  - Rejects duplicate ids and codes

USAGE:
  f := factory.NewCatalogFactory()

  // From JSON string
  ops, err := f.ParseCatalog(jsonString)

  // From file, falling back to the built-in catalog
  ops, err := f.LoadFile(path)

SEE ALSO:
  - costing/operation.go: OperationRegistry
  - store/sqlite/sqlite.go: operations table mirrors the catalog
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/warp/costing-engine/costing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of an operation catalog.
type CatalogJSON struct {
	Operations []OperationJSON `json:"operations"`
}

// OperationJSON represents one catalog entry.
type OperationJSON struct {
	ID   int    `json:"id"`
	Type string `json:"type"` // add_stock, remove_stock
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// DefaultCatalogJSON is the built-in catalog in JSON form.
const DefaultCatalogJSON = `{
  "operations": [
    {"id": 1,  "type": "add_stock",    "name": "Purchase",         "code": "purchase"},
    {"id": 2,  "type": "remove_stock", "name": "Stock Usage",      "code": "stock_usage"},
    {"id": 3,  "type": "remove_stock", "name": "Waste",            "code": "waste"},
    {"id": 4,  "type": "add_stock",    "name": "Yield In",         "code": "yield_in"},
    {"id": 5,  "type": "remove_stock", "name": "Yield Out",        "code": "yield_out"},
    {"id": 6,  "type": "add_stock",    "name": "Transfer In",      "code": "transfer_in"},
    {"id": 7,  "type": "remove_stock", "name": "Transfer Out",     "code": "transfer_out"},
    {"id": 8,  "type": "add_stock",    "name": "Stock Count Gain", "code": "count_gain"},
    {"id": 9,  "type": "remove_stock", "name": "Stock Count Loss", "code": "count_loss"},
    {"id": 10, "type": "remove_stock", "name": "Purchase Return",  "code": "purchase_return"}
  ]
}`

// =============================================================================
// FACTORY
// =============================================================================

// CatalogFactory creates operation registries from JSON.
type CatalogFactory struct{}

func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseCatalog parses a JSON catalog string.
func (f *CatalogFactory) ParseCatalog(jsonStr string) (*costing.OperationRegistry, error) {
	var cj CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("%w: failed to parse catalog JSON: %v", costing.ErrInvalidCatalog, err)
	}
	return f.FromJSON(cj)
}

// LoadFile reads a catalog file. An empty path yields the built-in catalog.
func (f *CatalogFactory) LoadFile(path string) (*costing.OperationRegistry, error) {
	if path == "" {
		return f.ParseCatalog(DefaultCatalogJSON)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return f.ParseCatalog(string(data))
}

// FromJSON converts a CatalogJSON to a registry.
func (f *CatalogFactory) FromJSON(cj CatalogJSON) (*costing.OperationRegistry, error) {
	if len(cj.Operations) == 0 {
		return nil, fmt.Errorf("%w: catalog has no operations", costing.ErrInvalidCatalog)
	}

	ops := make([]costing.Operation, 0, len(cj.Operations))
	for _, oj := range cj.Operations {
		if oj.ID <= 0 {
			return nil, fmt.Errorf("%w: operation id must be positive, got %d", costing.ErrInvalidCatalog, oj.ID)
		}
		if strings.TrimSpace(oj.Name) == "" {
			return nil, fmt.Errorf("%w: operation %d has no name", costing.ErrInvalidCatalog, oj.ID)
		}
		code := oj.Code
		if code == "" {
			code = deriveCode(oj.Name)
		}
		ops = append(ops, costing.Operation{
			ID:   costing.OperationID(oj.ID),
			Type: parseOperationType(oj.Type),
			Name: oj.Name,
			Code: code,
		})
	}
	return costing.NewOperationRegistry(ops...)
}

// ToJSON converts a registry back to its JSON form.
func (f *CatalogFactory) ToJSON(r *costing.OperationRegistry) CatalogJSON {
	cj := CatalogJSON{}
	for _, op := range r.All() {
		cj.Operations = append(cj.Operations, OperationJSON{
			ID:   int(op.ID),
			Type: string(op.Type),
			Name: op.Name,
			Code: op.Code,
		})
	}
	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// parseOperationType leaves unknown values as-is so the registry rejects them.
func parseOperationType(s string) costing.OperationType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add_stock", "add", "in":
		return costing.OpAddStock
	case "remove_stock", "remove", "out":
		return costing.OpRemoveStock
	default:
		return costing.OperationType(s)
	}
}

func deriveCode(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "_")
}
