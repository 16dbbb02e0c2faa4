package costing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/costing-engine/costing"
	"github.com/warp/costing-engine/costing/store"
)

// =============================================================================
// VALIDATION
// =============================================================================

func TestPeriodSpec_Validate(t *testing.T) {
	mar15 := costing.NewTimePoint(2024, time.March, 15)
	mar1 := costing.NewTimePoint(2024, time.March, 1)

	tests := []struct {
		name    string
		spec    costing.PeriodSpec
		wantErr bool
	}{
		{"selected month", costing.SelectedMonth(mar15), false},
		{"previous month", costing.PreviousMonth(mar15), false},
		{"whole month", costing.WholeMonthToDate(mar15), false},
		{"date range", costing.DateRange(mar1, mar15), false},
		{"single day range", costing.DateRange(mar15, mar15), false},
		{"month to date", costing.MonthToDate(mar1, mar15), false},
		{"missing reference", costing.SelectedMonth(costing.TimePoint{}), true},
		{"end before start", costing.DateRange(mar15, mar1), true},
		{"missing end", costing.MonthToDate(mar1, costing.TimePoint{}), true},
		{"unknown kind", costing.PeriodSpec{Kind: "fortnight", Reference: mar15}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, costing.ErrInvalidPeriod))
			var pe *costing.InvalidPeriodError
			assert.ErrorAs(t, err, &pe)
			assert.True(t, costing.IsClientError(err))
		})
	}
}

func TestPeriodSpec_ReferenceDate_FallsBackToEnd(t *testing.T) {
	start := costing.NewTimePoint(2024, time.February, 20)
	end := costing.NewTimePoint(2024, time.March, 10)

	assert.Equal(t, end, costing.DateRange(start, end).ReferenceDate())

	ref := costing.NewTimePoint(2024, time.April, 2)
	spec := costing.DateRange(start, end)
	spec.Reference = ref
	assert.Equal(t, ref, spec.ReferenceDate())
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestPeriodResolver_Windows(t *testing.T) {
	// GIVEN: A ledger whose first entry is 2024-02-10
	// WHEN: Resolving each period kind for reference 2024-03-15
	// THEN: Cumulative kinds start at the first entry, windowed kinds do not

	f := newKitchen(t).withTomatoExample()
	resolver := &costing.PeriodResolver{Store: f.store}
	ref := date(t, "2024-03-15")

	tests := []struct {
		name       string
		spec       costing.PeriodSpec
		start, end string
		cumulative bool
	}{
		{"selected month", costing.SelectedMonth(ref), "2024-02-10", "2024-03-31", true},
		{"previous month", costing.PreviousMonth(ref), "2024-02-10", "2024-02-29", true},
		{"whole month", costing.WholeMonthToDate(ref), "2024-03-01", "2024-03-31", false},
		{"date range", costing.DateRange(date(t, "2024-03-04"), date(t, "2024-03-06")), "2024-03-04", "2024-03-06", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp, err := resolver.Resolve(context.Background(), tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.start, rp.Window.Start.String())
			assert.Equal(t, tt.end, rp.Window.End.String())
			assert.Equal(t, tt.cumulative, rp.Cumulative)
			assert.False(t, rp.Empty)
		})
	}
}

func TestPeriodResolver_PreviousMonth_AcrossYearBoundary(t *testing.T) {
	f := newKitchen(t)
	f.entry("e-1", "beef", opPurchase, "1", "10.00", "2023-11-03")
	resolver := &costing.PeriodResolver{Store: f.store}

	rp, err := resolver.Resolve(context.Background(), costing.PreviousMonth(date(t, "2024-01-20")))
	require.NoError(t, err)
	assert.Equal(t, "2023-11-03", rp.Window.Start.String())
	assert.Equal(t, "2023-12-31", rp.Window.End.String())
}

func TestPeriodResolver_EmptyStore_IsEmptyNotError(t *testing.T) {
	// GIVEN: No entries at all
	// WHEN: Resolving a cumulative period
	// THEN: The window is flagged empty and contains nothing

	resolver := &costing.PeriodResolver{Store: store.NewMemory()}
	rp, err := resolver.Resolve(context.Background(), costing.SelectedMonth(costing.NewTimePoint(2024, time.March, 1)))

	require.NoError(t, err)
	assert.True(t, rp.Empty)
	assert.False(t, rp.Contains(costing.NewTimePoint(2024, time.March, 31)))
}

func TestPeriodResolver_FirstEntryAfterCutoff_IsEmpty(t *testing.T) {
	f := newKitchen(t)
	f.entry("e-1", "beef", opPurchase, "1", "10.00", "2024-05-02")
	resolver := &costing.PeriodResolver{Store: f.store}

	rp, err := resolver.Resolve(context.Background(), costing.PreviousMonth(date(t, "2024-05-15")))
	require.NoError(t, err)
	assert.True(t, rp.Empty)
}

func TestPeriodResolver_VoidedEarliestEntry_Ignored(t *testing.T) {
	// GIVEN: The oldest entry is voided
	// THEN: The cumulative window starts at the oldest live entry

	f := newKitchen(t)
	f.entry("old", "beef", opPurchase, "1", "10.00", "2023-06-01")
	f.entry("live", "beef", opPurchase, "1", "10.00", "2024-01-15")
	require.NoError(t, f.store.SetVoided(f.ctx, "old", true))

	rp, err := (&costing.PeriodResolver{Store: f.store}).Resolve(f.ctx, costing.SelectedMonth(date(t, "2024-01-31")))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", rp.Window.Start.String())
}

func TestPeriodResolver_InvalidSpec_NoStoreRead(t *testing.T) {
	resolver := &costing.PeriodResolver{Store: nil}

	_, err := resolver.Resolve(context.Background(), costing.DateRange(date(t, "2024-03-10"), date(t, "2024-03-01")))
	assert.ErrorIs(t, err, costing.ErrInvalidPeriod)
}

// =============================================================================
// TIME POINTS
// =============================================================================

func TestTimePoint_MonthBounds(t *testing.T) {
	tests := []struct {
		in, start, end string
	}{
		{"2024-02-14", "2024-02-01", "2024-02-29"},
		{"2023-02-14", "2023-02-01", "2023-02-28"},
		{"2024-12-31", "2024-12-01", "2024-12-31"},
	}
	for _, tt := range tests {
		tp := date(t, tt.in)
		assert.Equal(t, tt.start, tp.MonthStart().String(), tt.in)
		assert.Equal(t, tt.end, tp.MonthEnd().String(), tt.in)
	}
}

func TestTimePoint_JSON(t *testing.T) {
	tp := date(t, "2024-03-15")
	data, err := tp.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-15"`, string(data))

	var back costing.TimePoint
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, back.Equal(tp))

	assert.Error(t, back.UnmarshalJSON([]byte(`"15/03/2024"`)))
}
