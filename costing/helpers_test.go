package costing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/costing-engine/costing"
	"github.com/warp/costing-engine/costing/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	opPurchase    costing.OperationID = 1
	opStockUsage  costing.OperationID = 2
	opWaste       costing.OperationID = 3
	opTransferIn  costing.OperationID = 6
	opTransferOut costing.OperationID = 7
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(t *testing.T, s string) costing.TimePoint {
	t.Helper()
	tp, err := costing.ParseDate(s)
	require.NoError(t, err)
	return tp
}

// netCost builds a unit cost with tax at 10% of net.
func netCost(net string) costing.Cost {
	n := dec(net)
	tax := n.Mul(dec("0.1"))
	return costing.Cost{Gross: n.Add(tax), Net: n, Tax: tax}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// fixture wraps a memory store with short seeding calls.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *store.Memory
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, ctx: context.Background(), store: store.NewMemory()}
}

func (f *fixture) category(id, name string) {
	require.NoError(f.t, f.store.SaveCategory(f.ctx, costing.Category{ID: costing.CategoryID(id), Name: name}))
}

func (f *fixture) group(id, name string) {
	require.NoError(f.t, f.store.SaveRevenueGroup(f.ctx, costing.RevenueGroup{ID: costing.RevenueGroupID(id), Name: name}))
}

func (f *fixture) assign(category, group, created string) {
	require.NoError(f.t, f.store.AssignRevenueGroup(f.ctx, costing.CategoryID(category), costing.RevenueGroupID(group), date(f.t, created)))
}

func (f *fixture) item(id, name, category string) {
	require.NoError(f.t, f.store.SaveItem(f.ctx, costing.Item{
		ID:         costing.ItemID(id),
		Name:       name,
		CategoryID: costing.CategoryID(category),
		UOM:        "kg",
	}))
}

func (f *fixture) entry(id, item string, op costing.OperationID, qty, unitNet, on string) {
	_, err := f.store.AppendEntry(f.ctx, costing.LedgerEntry{
		ID:          costing.EntryID(id),
		ItemID:      costing.ItemID(item),
		OperationID: op,
		Qty:         dec(qty),
		UnitCost:    netCost(unitNet),
		Date:        date(f.t, on),
	})
	require.NoError(f.t, err)
}

func (f *fixture) revenue(group, amount, on string) {
	require.NoError(f.t, f.store.AddRevenueRecord(f.ctx, costing.RevenueRecord{
		RevenueGroupID: costing.RevenueGroupID(group),
		Amount:         dec(amount),
		Date:           date(f.t, on),
	}))
}

// newKitchen seeds the reference data most tests share:
//
//	produce (food):     tomato, onion
//	meat (food):        beef
//	beverages (drinks): cola
func newKitchen(t *testing.T) *fixture {
	f := newFixture(t)
	f.category("produce", "Produce")
	f.category("meat", "Meat")
	f.category("beverages", "Beverages")
	f.group("food", "Food Sales")
	f.group("drinks", "Beverage Sales")
	f.assign("produce", "food", "2024-01-01")
	f.assign("meat", "food", "2024-01-01")
	f.assign("beverages", "drinks", "2024-01-01")
	f.item("tomato", "Tomatoes", "produce")
	f.item("onion", "Onions", "produce")
	f.item("beef", "Beef", "meat")
	f.item("cola", "Cola", "beverages")
	return f
}

// withTomatoExample adds the reference scenario:
// +5 @ 3.00 (Feb 10), +10 @ 2.00 (Mar 5), -4 @ 2.00 (Mar 20).
func (f *fixture) withTomatoExample() *fixture {
	f.entry("t-1", "tomato", opPurchase, "5", "3.00", "2024-02-10")
	f.entry("t-2", "tomato", opPurchase, "10", "2.00", "2024-03-05")
	f.entry("t-3", "tomato", opStockUsage, "4", "2.00", "2024-03-20")
	return f
}

func (f *fixture) reporter() *costing.Reporter {
	return costing.NewReporter(f.store, costing.DefaultOperations())
}

func findRow(t *testing.T, rows []costing.ReportRow, id string) costing.ReportRow {
	t.Helper()
	for _, r := range rows {
		if r.EntityID == id {
			return r
		}
	}
	t.Fatalf("row %q not found", id)
	return costing.ReportRow{}
}

func findMonthly(t *testing.T, rows []costing.MonthlyRow, id string) costing.MonthlyRow {
	t.Helper()
	for _, r := range rows {
		if r.EntityID == id {
			return r
		}
	}
	t.Fatalf("monthly row %q not found", id)
	return costing.MonthlyRow{}
}
