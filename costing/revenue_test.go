package costing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/costing-engine/costing"
)

func history(t *testing.T, rows ...costing.RevenueGroupAssignment) []costing.RevenueGroupAssignment {
	t.Helper()
	for i := range rows {
		rows[i].CategoryID = "desserts"
		rows[i].Seq = int64(i + 1)
	}
	return rows
}

func TestResolveAssignment_Latest_IgnoresReferenceDate(t *testing.T) {
	// GIVEN: Desserts in Food until March 10, then Bakery from April 2
	// WHEN: Resolving for March in latest mode
	// THEN: The current group (Bakery) wins even though it postdates March

	h := history(t,
		costing.RevenueGroupAssignment{RevenueGroupID: "food", DateCreated: date(t, "2024-01-01")},
		costing.RevenueGroupAssignment{RevenueGroupID: "bakery", DateCreated: date(t, "2024-04-02")},
	)

	id, ok := costing.ResolveAssignment(h, costing.ResolveLatest, date(t, "2024-03-15"))
	require.True(t, ok)
	assert.Equal(t, costing.RevenueGroupID("bakery"), id)
}

func TestResolveAssignment_PointInTime_UsesMonthEnd(t *testing.T) {
	h := history(t,
		costing.RevenueGroupAssignment{RevenueGroupID: "food", DateCreated: date(t, "2024-01-01")},
		costing.RevenueGroupAssignment{RevenueGroupID: "bakery", DateCreated: date(t, "2024-03-31")},
		costing.RevenueGroupAssignment{RevenueGroupID: "pastry", DateCreated: date(t, "2024-04-01")},
	)

	id, ok := costing.ResolveAssignment(h, costing.ResolvePointInTime, date(t, "2024-03-01"))
	require.True(t, ok)
	assert.Equal(t, costing.RevenueGroupID("bakery"), id)

	_, ok = costing.ResolveAssignment(h, costing.ResolvePointInTime, date(t, "2023-12-15"))
	assert.False(t, ok, "no assignment existed yet")
}

func TestResolveAssignment_SameDay_LastInsertedWins(t *testing.T) {
	// GIVEN: Two assignments created the same day
	// THEN: The one inserted later wins, regardless of slice order

	h := history(t,
		costing.RevenueGroupAssignment{RevenueGroupID: "bakery", DateCreated: date(t, "2024-03-10")},
		costing.RevenueGroupAssignment{RevenueGroupID: "food", DateCreated: date(t, "2024-03-10")},
	)
	reversed := []costing.RevenueGroupAssignment{h[1], h[0]}

	for _, rows := range [][]costing.RevenueGroupAssignment{h, reversed} {
		id, ok := costing.ResolveAssignment(rows, costing.ResolveLatest, date(t, "2024-03-15"))
		require.True(t, ok)
		assert.Equal(t, costing.RevenueGroupID("food"), id)
	}
}

func TestRevenueGroupResolver_Load(t *testing.T) {
	// GIVEN: Two food revenue records in March, one in February
	f := newKitchen(t)
	f.revenue("food", "3800.00", "2024-03-01")
	f.revenue("food", "1200.00", "2024-03-31")
	f.revenue("food", "9999.00", "2024-02-29")

	ix, err := (&costing.RevenueGroupResolver{Store: f.store, Mode: costing.ResolveLatest}).
		Load(context.Background(), date(t, "2024-03-15"))
	require.NoError(t, err)

	// THEN: March revenue sums both March records only
	assertDec(t, "5000", ix.TotalAmount("food"))
	// AND: A group without records has zero revenue, not an error
	assertDec(t, "0", ix.TotalAmount("drinks"))

	g, ok := ix.GroupFor("produce")
	require.True(t, ok)
	assert.Equal(t, "Food Sales", g.Name)

	_, ok = ix.GroupFor("unassigned")
	assert.False(t, ok)
}

func TestRevenueGroupResolver_DanglingGroupID(t *testing.T) {
	// GIVEN: History points at a group missing from the group table
	f := newKitchen(t)
	f.assign("meat", "butchery", "2024-02-01")

	ix, err := (&costing.RevenueGroupResolver{Store: f.store}).Load(context.Background(), date(t, "2024-03-15"))
	require.NoError(t, err)

	// THEN: The id still resolves, without a name
	g, ok := ix.GroupFor("meat")
	require.True(t, ok)
	assert.Equal(t, costing.RevenueGroupID("butchery"), g.ID)
	assert.Empty(t, g.Name)
}
