/*
rollup.go - Cost of sales, cost percentages, subtotals and grand totals

PURPOSE:
  Turns EntityAggregate rows into the figures a costing screen renders.
  Three windows meet here for the same reference month:

    previous  cumulative balance at the end of last month (beginning stock)
    whole     this month's activity
    selected  cumulative balance at the end of this month (ending stock)

FORMULAS:
  costOfSales            = previous.grandTotal.cost + whole.added.cost
                           - selected.grandTotal.cost        (per component)
  costPercentage         = removed.cost.net / revenue x 100   (0 if revenue 0)
  purchaseCostPercentage = purchase.cost.net / revenue x 100  (0 if revenue 0)

  revenue is the revenueGroupTotalAmount of the row's group for the
  reference month. A rollup's revenue is the sum over the distinct groups
  present in the rows it sums.

ROLLUPS:
  Subtotal   re-sums item-level rows matching the filter.
  GrandTotal re-sums every item-level row, ignoring the filter.

SEE ALSO:
  - aggregate.go: Produces the rows
  - report.go: Orchestrates the three windows
*/
package costing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT ROW - One entity over one window
// =============================================================================

type ReportRow struct {
	EntityAggregate
	RevenueGroupTotalAmount decimal.Decimal `json:"revenueGroupTotalAmount"`
	CostPercentage          decimal.Decimal `json:"costPercentage"`
	PurchaseCostPercentage  decimal.Decimal `json:"purchaseCostPercentage"`
}

// =============================================================================
// MONTHLY ROW - One entity across the three windows of a month
// =============================================================================

type MonthlyRow struct {
	EntityRef
	SelectedMonth           Figures         `json:"selectedMonth"`
	PreviousMonth           Figures         `json:"previousMonth"`
	WholeMonth              Figures         `json:"wholeMonth"`
	CostOfSales             Cost            `json:"costOfSales"`
	RevenueGroupTotalAmount decimal.Decimal `json:"revenueGroupTotalAmount"`
	CostPercentage          decimal.Decimal `json:"costPercentage"`
	PurchaseCostPercentage  decimal.Decimal `json:"purchaseCostPercentage"`
	CostOfSalesPercentage   decimal.Decimal `json:"costOfSalesPercentage"`
}

// Rollup is a re-sum of monthly rows.
type Rollup struct {
	RowCount                int             `json:"rowCount"`
	SelectedMonth           Figures         `json:"selectedMonth"`
	PreviousMonth           Figures         `json:"previousMonth"`
	WholeMonth              Figures         `json:"wholeMonth"`
	CostOfSales             Cost            `json:"costOfSales"`
	RevenueGroupTotalAmount decimal.Decimal `json:"revenueGroupTotalAmount"`
	CostPercentage          decimal.Decimal `json:"costPercentage"`
	PurchaseCostPercentage  decimal.Decimal `json:"purchaseCostPercentage"`
	CostOfSalesPercentage   decimal.Decimal `json:"costOfSalesPercentage"`
}

// CostOfSales is beginning stock plus purchases minus ending stock.
func CostOfSales(beginning, added, ending Cost) Cost {
	return beginning.Add(added).Sub(ending)
}

// =============================================================================
// ROLLUP COMPOSER
// =============================================================================

type RollupComposer struct {
	Operations *OperationRegistry
}

// purchaseCostNet is the net cost booked under the purchase operation, or 0
// when the registry has no operation coded as a purchase.
func (rc *RollupComposer) purchaseCostNet(f Figures) decimal.Decimal {
	op, ok := rc.Operations.ByCode(CodePurchase)
	if !ok {
		return decimal.Zero
	}
	return f.ByOperation[op.ID].Cost.Net
}

func revenueFor(rev *RevenueIndex, id RevenueGroupID) decimal.Decimal {
	if rev == nil || id == "" {
		return decimal.Zero
	}
	return rev.TotalAmount(id)
}

// ComposeRows attaches revenue and percentages to single-window rows.
func (rc *RollupComposer) ComposeRows(rows []EntityAggregate, rev *RevenueIndex) []ReportRow {
	out := make([]ReportRow, 0, len(rows))
	for _, r := range rows {
		revenue := revenueFor(rev, r.RevenueGroupID)
		out = append(out, ReportRow{
			EntityAggregate:         r,
			RevenueGroupTotalAmount: revenue,
			CostPercentage:          PercentOrZero(r.Removed.Cost.Net, revenue),
			PurchaseCostPercentage:  PercentOrZero(rc.purchaseCostNet(r.Figures), revenue),
		})
	}
	return out
}

// ComposeMonthly joins the three windows by entity. Every window is
// aggregated over the same catalog and filter, so the entity sets agree;
// an entity missing from one window counts as zero there.
func (rc *RollupComposer) ComposeMonthly(selected, previous, whole []EntityAggregate, rev *RevenueIndex) []MonthlyRow {
	type joined struct {
		ref                    EntityRef
		sel, prev, wh          Figures
		hasSel, hasPrev, hasWh bool
	}
	byID := make(map[string]*joined)
	var order []*joined
	get := func(r EntityAggregate) *joined {
		j, ok := byID[r.EntityID]
		if !ok {
			j = &joined{ref: r.EntityRef}
			byID[r.EntityID] = j
			order = append(order, j)
		}
		return j
	}
	for _, r := range whole {
		j := get(r)
		j.wh, j.hasWh = r.Figures, true
	}
	for _, r := range selected {
		j := get(r)
		j.sel, j.hasSel = r.Figures, true
	}
	for _, r := range previous {
		j := get(r)
		j.prev, j.hasPrev = r.Figures, true
	}

	zero := ZeroFigures(rc.Operations)
	out := make([]MonthlyRow, 0, len(order))
	for _, j := range order {
		if !j.hasSel {
			j.sel = zero
		}
		if !j.hasPrev {
			j.prev = zero
		}
		if !j.hasWh {
			j.wh = zero
		}
		out = append(out, rc.monthlyRow(j.ref, j.sel, j.prev, j.wh, revenueFor(rev, j.ref.RevenueGroupID)))
	}
	sortMonthly(out)
	return out
}

func (rc *RollupComposer) monthlyRow(ref EntityRef, sel, prev, whole Figures, revenue decimal.Decimal) MonthlyRow {
	cos := CostOfSales(prev.GrandTotal.Cost, whole.Added.Cost, sel.GrandTotal.Cost)
	return MonthlyRow{
		EntityRef:               ref,
		SelectedMonth:           sel,
		PreviousMonth:           prev,
		WholeMonth:              whole,
		CostOfSales:             cos,
		RevenueGroupTotalAmount: revenue,
		CostPercentage:          PercentOrZero(whole.Removed.Cost.Net, revenue),
		PurchaseCostPercentage:  PercentOrZero(rc.purchaseCostNet(whole), revenue),
		CostOfSalesPercentage:   PercentOrZero(cos.Net, revenue),
	}
}

// Rollup re-sums the rows the filter selects. Pass All for a grand total.
func (rc *RollupComposer) Rollup(rows []MonthlyRow, f Filter, rev *RevenueIndex) Rollup {
	zero := ZeroFigures(rc.Operations)
	sel, prev, whole := zero, zero, zero
	groups := make(map[RevenueGroupID]struct{})
	count := 0

	for _, r := range rows {
		if !f.Match(r.Subject()) {
			continue
		}
		count++
		sel = sel.Plus(r.SelectedMonth)
		prev = prev.Plus(r.PreviousMonth)
		whole = whole.Plus(r.WholeMonth)
		if r.RevenueGroupID != "" {
			groups[r.RevenueGroupID] = struct{}{}
		}
	}

	revenue := decimal.Zero
	for id := range groups {
		revenue = revenue.Add(revenueFor(rev, id))
	}

	cos := CostOfSales(prev.GrandTotal.Cost, whole.Added.Cost, sel.GrandTotal.Cost)
	return Rollup{
		RowCount:                count,
		SelectedMonth:           sel,
		PreviousMonth:           prev,
		WholeMonth:              whole,
		CostOfSales:             cos,
		RevenueGroupTotalAmount: revenue,
		CostPercentage:          PercentOrZero(whole.Removed.Cost.Net, revenue),
		PurchaseCostPercentage:  PercentOrZero(rc.purchaseCostNet(whole), revenue),
		CostOfSalesPercentage:   PercentOrZero(cos.Net, revenue),
	}
}

func sortMonthly(rows []MonthlyRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EntityName != rows[j].EntityName {
			return rows[i].EntityName < rows[j].EntityName
		}
		return rows[i].EntityID < rows[j].EntityID
	})
}
