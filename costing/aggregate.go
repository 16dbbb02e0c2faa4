/*
aggregate.go - The aggregation engine

PURPOSE:
  One parametrized function, (period, filter, groupBy), that replays ledger
  entries into per-entity sums. Windowed and cumulative modes differ only
  in the window the PeriodResolver produced; the scan is identical.

ALGORITHM:
  1. Select non-voided entries with Date in [start, end] whose item
     satisfies the filter.
  2. Group by (entity, operation type) and by (entity, operation id).
  3. Sum qty, and qty x unit cost for gross, net and tax.
  4. added   = add_stock groups     (0 when absent)
     removed = remove_stock groups  (0 when absent)
  5. grand_total = added - removed, per component.
  6. avg_unit_cost = grand_total_cost / grand_total_qty, 0 when qty is 0.
  7. One breakdown bucket per registered operation, 0 when absent.

ROWS:
  GroupByItem:     every item the filter selects, zero activity included.
  GroupByCategory: every category owning at least one selected item.
  Ordered by name, then id.

EXAMPLE:
  Item A: +5 @ 3.00 (Feb), +10 @ 2.00 (Mar), -4 @ 2.00 (Mar)
  selectedMonth(Mar) cumulative:  added 15 / 35.00, removed 4 / 8.00,
                                  grand total 11 / 27.00
  wholeMonth(Mar) windowed:       added 10 / 20.00

SEE ALSO:
  - period.go: Produces the window
  - rollup.go: Consumes the rows
*/
package costing

import (
	"context"
	"sort"
)

type GroupBy string

const (
	GroupByItem     GroupBy = "item"
	GroupByCategory GroupBy = "category"
)

func (g GroupBy) Valid() bool {
	return g == GroupByItem || g == GroupByCategory
}

// =============================================================================
// ENTITY AGGREGATE - One output row
// =============================================================================

// EntityRef identifies a row and carries its category and revenue-group linkage.
type EntityRef struct {
	GroupBy          GroupBy        `json:"groupBy"`
	EntityID         string         `json:"entityId"`
	EntityName       string         `json:"entityName"`
	UOM              string         `json:"uom,omitempty"`
	CategoryID       CategoryID     `json:"categoryId"`
	CategoryName     string         `json:"categoryName"`
	RevenueGroupID   RevenueGroupID `json:"revenueGroupId,omitempty"`
	RevenueGroupName string         `json:"revenueGroupName,omitempty"`
}

// Figures are the sums of one window.
type Figures struct {
	Added       Bucket                 `json:"added"`
	Removed     Bucket                 `json:"removed"`
	GrandTotal  Bucket                 `json:"grandTotal"`
	AvgUnitCost Cost                   `json:"avgUnitCost"`
	ByOperation map[OperationID]Bucket `json:"byOperation"`
}

// NewFigures derives grand total and average unit cost from the two
// directions.
func NewFigures(added, removed Bucket, byOp map[OperationID]Bucket) Figures {
	grand := added.Sub(removed)
	return Figures{
		Added:       added,
		Removed:     removed,
		GrandTotal:  grand,
		AvgUnitCost: grand.AvgUnitCost(),
		ByOperation: byOp,
	}
}

// Plus sums two figure sets. Averages are recomputed, never summed.
func (f Figures) Plus(o Figures) Figures {
	byOp := make(map[OperationID]Bucket, len(f.ByOperation))
	for id, b := range f.ByOperation {
		byOp[id] = b
	}
	for id, b := range o.ByOperation {
		byOp[id] = byOp[id].Add(b)
	}
	return NewFigures(f.Added.Add(o.Added), f.Removed.Add(o.Removed), byOp)
}

// ZeroFigures has one empty bucket per registered operation.
func ZeroFigures(ops *OperationRegistry) Figures {
	byOp := make(map[OperationID]Bucket, ops.Len())
	for _, id := range ops.IDs() {
		byOp[id] = Bucket{}
	}
	return NewFigures(Bucket{}, Bucket{}, byOp)
}

type EntityAggregate struct {
	EntityRef
	Figures
}

// Subject describes the row for filter evaluation. Category rows carry no
// item id, so item predicates never match them.
func (a EntityRef) Subject() Subject {
	s := Subject{CategoryID: a.CategoryID, RevenueGroupID: a.RevenueGroupID}
	if a.GroupBy == GroupByItem {
		s.ItemID = ItemID(a.EntityID)
	}
	return s
}

// =============================================================================
// AGGREGATION ENGINE
// =============================================================================

type AggregationEngine struct {
	Store      Store
	Operations *OperationRegistry
}

// AggregateInput bundles one aggregation. Catalog and Revenue are shared
// across every aggregation of a report.
type AggregateInput struct {
	Period  ResolvedPeriod
	Filter  Filter
	GroupBy GroupBy
	Catalog *Catalog
	Revenue *RevenueIndex
}

type accumulator struct {
	ref    EntityRef
	byType map[OperationType]Bucket
	byOp   map[OperationID]Bucket
}

func (e *AggregationEngine) Aggregate(ctx context.Context, in AggregateInput) ([]EntityAggregate, error) {
	matched := in.Catalog.MatchingItems(in.Filter, in.Revenue)

	accs := make(map[string]*accumulator)
	var order []*accumulator
	entityOf := make(map[ItemID]*accumulator, len(matched))

	for _, it := range matched {
		key := e.entityKey(in.GroupBy, it)
		acc, ok := accs[key]
		if !ok {
			acc = &accumulator{
				ref:    e.newRef(in, it),
				byType: make(map[OperationType]Bucket, 2),
				byOp:   make(map[OperationID]Bucket),
			}
			accs[key] = acc
			order = append(order, acc)
		}
		entityOf[it.ID] = acc
	}

	if !in.Period.Empty && len(matched) > 0 {
		q := EntryQuery{From: in.Period.Window.Start, To: in.Period.Window.End}
		if !in.Filter.IsAll() {
			q.ItemIDs = make([]ItemID, 0, len(matched))
			for _, it := range matched {
				q.ItemIDs = append(q.ItemIDs, it.ID)
			}
		}

		entries, err := e.Store.Entries(ctx, q)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if entry.Voided || !in.Period.Contains(entry.Date) {
				continue
			}
			acc, ok := entityOf[entry.ItemID]
			if !ok {
				continue
			}
			op, ok := e.Operations.Lookup(entry.OperationID)
			if !ok {
				return nil, &UnknownOperationError{EntryID: entry.ID, OperationID: entry.OperationID}
			}
			c := entry.Contribution()
			acc.byType[op.Type] = acc.byType[op.Type].Add(c)
			acc.byOp[op.ID] = acc.byOp[op.ID].Add(c)
		}
	}

	rows := make([]EntityAggregate, 0, len(order))
	for _, acc := range order {
		rows = append(rows, e.finalize(acc))
	}
	sortRows(rows)
	return rows, nil
}

func (e *AggregationEngine) entityKey(g GroupBy, it Item) string {
	if g == GroupByCategory {
		return string(it.CategoryID)
	}
	return string(it.ID)
}

func (e *AggregationEngine) newRef(in AggregateInput, it Item) EntityRef {
	row := EntityRef{
		GroupBy:    in.GroupBy,
		CategoryID: it.CategoryID,
	}
	if cat, ok := in.Catalog.Category(it.CategoryID); ok {
		row.CategoryName = cat.Name
	}
	if in.Revenue != nil {
		if g, ok := in.Revenue.GroupFor(it.CategoryID); ok {
			row.RevenueGroupID = g.ID
			row.RevenueGroupName = g.Name
		}
	}
	switch in.GroupBy {
	case GroupByCategory:
		row.EntityID = string(it.CategoryID)
		row.EntityName = row.CategoryName
	default:
		row.EntityID = string(it.ID)
		row.EntityName = it.Name
		row.UOM = it.UOM
	}
	return row
}

func (e *AggregationEngine) finalize(acc *accumulator) EntityAggregate {
	byOp := make(map[OperationID]Bucket, e.Operations.Len())
	for _, id := range e.Operations.IDs() {
		byOp[id] = acc.byOp[id]
	}
	return EntityAggregate{
		EntityRef: acc.ref,
		Figures:   NewFigures(acc.byType[OpAddStock], acc.byType[OpRemoveStock], byOp),
	}
}

func sortRows(rows []EntityAggregate) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EntityName != rows[j].EntityName {
			return rows[i].EntityName < rows[j].EntityName
		}
		return rows[i].EntityID < rows[j].EntityID
	})
}
