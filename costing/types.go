/*
Package costing provides the inventory ledger aggregation engine.

PURPOSE:
  Turns an append-only log of stock adjustments (purchases, usage, waste,
  yields, transfers, counts) into time-windowed financial rollups: added and
  removed quantity and cost (gross, net, tax), cost of sales, and cost as a
  percentage of revenue, at item, category and revenue-group granularity.

KEY CONCEPTS IN THIS FILE (types.go):
  - Cost: a gross/net/tax triple, always carried together
  - Bucket: a quantity plus the Cost of that quantity
  - LedgerEntry: one immutable stock adjustment (only the void flag flips)
  - Item, Category, RevenueGroup: the reference data entries hang off

DESIGN PRINCIPLES:
  1. Read-only: the engine never writes to the ledger
  2. Precision: every quantity and cost is a decimal.Decimal
  3. Guarded arithmetic: divisions by zero resolve to zero, never NaN
  4. Replay: every figure is recomputed from entries, nothing is cached in rows

USAGE:
  reporter := costing.NewReporter(store, costing.DefaultOperations())
  page, err := reporter.Rows(ctx, costing.ReportRequest{
      Period:  costing.SelectedMonth(costing.NewTimePoint(2025, time.March, 1)),
      GroupBy: costing.GroupByItem,
  })

SEE ALSO:
  - period.go: Period descriptors and the PeriodResolver
  - aggregate.go: The AggregationEngine
  - rollup.go: Cost of sales, percentages, subtotal and grand total
  - report.go: The Reporter entry points
*/
package costing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// COST - Gross/net/tax triple
// =============================================================================

// Cost carries the three cost components of an amount. Gross is expected to
// equal Net + Tax on input; the engine trusts it and never re-derives it.
type Cost struct {
	Gross decimal.Decimal `json:"gross"`
	Net   decimal.Decimal `json:"net"`
	Tax   decimal.Decimal `json:"tax"`
}

func NewCost(gross, net, tax float64) Cost {
	return Cost{
		Gross: decimal.NewFromFloat(gross),
		Net:   decimal.NewFromFloat(net),
		Tax:   decimal.NewFromFloat(tax),
	}
}

func (c Cost) Add(o Cost) Cost {
	return Cost{Gross: c.Gross.Add(o.Gross), Net: c.Net.Add(o.Net), Tax: c.Tax.Add(o.Tax)}
}

func (c Cost) Sub(o Cost) Cost {
	return Cost{Gross: c.Gross.Sub(o.Gross), Net: c.Net.Sub(o.Net), Tax: c.Tax.Sub(o.Tax)}
}

func (c Cost) Mul(q decimal.Decimal) Cost {
	return Cost{Gross: c.Gross.Mul(q), Net: c.Net.Mul(q), Tax: c.Tax.Mul(q)}
}

// DivOrZero divides every component by q, returning a zero Cost when q is zero.
func (c Cost) DivOrZero(q decimal.Decimal) Cost {
	return Cost{Gross: divOrZero(c.Gross, q), Net: divOrZero(c.Net, q), Tax: divOrZero(c.Tax, q)}
}

func (c Cost) IsZero() bool {
	return c.Gross.IsZero() && c.Net.IsZero() && c.Tax.IsZero()
}

func (c Cost) Equal(o Cost) bool {
	return c.Gross.Equal(o.Gross) && c.Net.Equal(o.Net) && c.Tax.Equal(o.Tax)
}

// divOrZero is the single place where the engine divides.
func divOrZero(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// PercentOrZero returns num / den * 100, or zero when den is zero.
func PercentOrZero(num, den decimal.Decimal) decimal.Decimal {
	return divOrZero(num, den).Mul(decimal.NewFromInt(100))
}

// =============================================================================
// BUCKET - Quantity with its cost
// =============================================================================

// Bucket is a summed quantity and the cost of that quantity.
type Bucket struct {
	Qty  decimal.Decimal `json:"qty"`
	Cost Cost            `json:"cost"`
}

func (b Bucket) Add(o Bucket) Bucket { return Bucket{Qty: b.Qty.Add(o.Qty), Cost: b.Cost.Add(o.Cost)} }
func (b Bucket) Sub(o Bucket) Bucket { return Bucket{Qty: b.Qty.Sub(o.Qty), Cost: b.Cost.Sub(o.Cost)} }
func (b Bucket) IsZero() bool        { return b.Qty.IsZero() && b.Cost.IsZero() }

// AvgUnitCost returns Cost / Qty, guarded to zero when Qty is zero.
func (b Bucket) AvgUnitCost() Cost { return b.Cost.DivOrZero(b.Qty) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntryID string
type ItemID string
type CategoryID string
type RevenueGroupID string
type OperationID int

// =============================================================================
// LEDGER ENTRY - One stock adjustment
// =============================================================================

// LedgerEntry records one adjustment. Qty is never negative: the direction
// comes from the operation's type. Entries are never deleted; the only
// mutation the store allows is flipping Voided.
type LedgerEntry struct {
	ID          EntryID
	ItemID      ItemID
	OperationID OperationID
	Qty         decimal.Decimal
	UnitCost    Cost
	Date        TimePoint
	Voided      bool
	CreatedAt   TimePoint
}

// Contribution is the entry's quantity and extended cost (qty x unit cost).
func (e LedgerEntry) Contribution() Bucket {
	return Bucket{Qty: e.Qty, Cost: e.UnitCost.Mul(e.Qty)}
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

type Item struct {
	ID              ItemID
	Name            string
	CategoryID      CategoryID
	UOM             string
	CurrentStockQty decimal.Decimal
}

type Category struct {
	ID   CategoryID
	Name string
}

type RevenueGroup struct {
	ID   RevenueGroupID
	Name string
}

// RevenueGroupAssignment is one row of a category's revenue-group history.
// Seq is the insertion order and breaks ties between equal DateCreated.
type RevenueGroupAssignment struct {
	CategoryID     CategoryID
	RevenueGroupID RevenueGroupID
	DateCreated    TimePoint
	Seq            int64
}

// RevenueRecord is recorded revenue for a group in a month bucket.
type RevenueRecord struct {
	RevenueGroupID RevenueGroupID
	Amount         decimal.Decimal
	Date           TimePoint
}
