/*
revenue.go - Revenue-group resolution and monthly revenue totals

PURPOSE:
  Cost percentages compare cost against the revenue of the group a
  category belongs to (e.g. "Food Sales", "Beverage Sales"). Categories
  keep a time-stamped history of revenue-group assignments.

RESOLUTION MODES:
  latest (default):
    The assignment with the greatest DateCreated wins, ties broken by the
    row inserted last. The report's reference date is NOT consulted, so a
    historical month is attributed to the category's current group.
    This preserves the legacy behavior.

  point_in_time (opt-in):
    The latest assignment created on or before the end of the reference
    month. A category with no assignment yet has no group for that month.
    Offered for review as the likely intended model; not the default.

REVENUE TOTALS:
  revenueGroupTotalAmount = sum of RevenueRecord.Amount for the group whose
  Date is in the reference month. No records -> 0, never an error.

SEE ALSO:
  - rollup.go: Uses TotalAmount as the percentage denominator
*/
package costing

import (
	"context"

	"github.com/shopspring/decimal"
)

type RevenueResolution string

const (
	ResolveLatest      RevenueResolution = "latest"
	ResolvePointInTime RevenueResolution = "point_in_time"
)

func (m RevenueResolution) Valid() bool {
	return m == "" || m == ResolveLatest || m == ResolvePointInTime
}

// =============================================================================
// REVENUE GROUP RESOLVER
// =============================================================================

type RevenueGroupResolver struct {
	Store Store
	Mode  RevenueResolution
}

// RevenueIndex is the per-request result of resolution: which group each
// category maps to, and each group's revenue in the reference month.
type RevenueIndex struct {
	Reference  TimePoint
	groups     map[RevenueGroupID]RevenueGroup
	byCategory map[CategoryID]RevenueGroupID
	totals     map[RevenueGroupID]decimal.Decimal
}

// Load resolves every category at once for the month of ref.
func (r *RevenueGroupResolver) Load(ctx context.Context, ref TimePoint) (*RevenueIndex, error) {
	groups, err := r.Store.RevenueGroups(ctx)
	if err != nil {
		return nil, err
	}
	history, err := r.Store.RevenueGroupAssignments(ctx)
	if err != nil {
		return nil, err
	}
	records, err := r.Store.RevenueRecords(ctx, ref.MonthStart(), ref.MonthEnd())
	if err != nil {
		return nil, err
	}

	ix := &RevenueIndex{
		Reference:  ref,
		groups:     make(map[RevenueGroupID]RevenueGroup, len(groups)),
		byCategory: make(map[CategoryID]RevenueGroupID),
		totals:     make(map[RevenueGroupID]decimal.Decimal),
	}
	for _, g := range groups {
		ix.groups[g.ID] = g
	}

	perCategory := make(map[CategoryID][]RevenueGroupAssignment)
	for _, a := range history {
		perCategory[a.CategoryID] = append(perCategory[a.CategoryID], a)
	}
	for cat, rows := range perCategory {
		if id, ok := ResolveAssignment(rows, r.Mode, ref); ok {
			ix.byCategory[cat] = id
		}
	}

	for _, rec := range records {
		if !rec.Date.SameMonth(ref) {
			continue
		}
		ix.totals[rec.RevenueGroupID] = ix.totals[rec.RevenueGroupID].Add(rec.Amount)
	}
	return ix, nil
}

// ResolveAssignment picks one row of a category's history according to mode.
func ResolveAssignment(history []RevenueGroupAssignment, mode RevenueResolution, ref TimePoint) (RevenueGroupID, bool) {
	cutoff := ref.MonthEnd()
	var (
		best  RevenueGroupAssignment
		found bool
	)
	for _, a := range history {
		if mode == ResolvePointInTime && a.DateCreated.After(cutoff) {
			continue
		}
		if !found || newerAssignment(a, best) {
			best, found = a, true
		}
	}
	return best.RevenueGroupID, found
}

func newerAssignment(a, b RevenueGroupAssignment) bool {
	if !a.DateCreated.Equal(b.DateCreated) {
		return a.DateCreated.After(b.DateCreated)
	}
	return a.Seq > b.Seq
}

// GroupFor returns the revenue group of a category. A group id referenced
// by history but missing from the group table comes back without a name.
func (ix *RevenueIndex) GroupFor(cat CategoryID) (RevenueGroup, bool) {
	id, ok := ix.byCategory[cat]
	if !ok {
		return RevenueGroup{}, false
	}
	if g, ok := ix.groups[id]; ok {
		return g, true
	}
	return RevenueGroup{ID: id}, true
}

// TotalAmount is the group's revenue in the reference month (0 if none).
func (ix *RevenueIndex) TotalAmount(id RevenueGroupID) decimal.Decimal {
	return ix.totals[id]
}
