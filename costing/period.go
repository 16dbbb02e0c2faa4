package costing

import (
	"context"
	"fmt"
)

// =============================================================================
// PERIOD - Inclusive day window
// =============================================================================

// Period is an inclusive [Start, End] day window.
type Period struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD DESCRIPTOR - What the caller asks for
// =============================================================================

type PeriodKind string

const (
	// PeriodSelectedMonth is the running balance as of the end of the
	// reference month: [earliest entry, end of month]. Cumulative.
	PeriodSelectedMonth PeriodKind = "selectedMonth"

	// PeriodPreviousMonth is the running balance as of the end of the month
	// before the reference month, i.e. the selected month's beginning
	// balance: [earliest entry, start of month - 1 day]. Cumulative.
	PeriodPreviousMonth PeriodKind = "previousMonth"

	// PeriodWholeMonthToDate is the reference month's activity:
	// [start of month, end of month]. Windowed.
	PeriodWholeMonthToDate PeriodKind = "wholeMonthToDate"

	// PeriodMonthToDate and PeriodDateRange use the caller's explicit
	// [Start, End] verbatim. Windowed.
	PeriodMonthToDate PeriodKind = "monthToDate"
	PeriodDateRange   PeriodKind = "dateRange"
)

func (k PeriodKind) usesReference() bool {
	return k == PeriodSelectedMonth || k == PeriodPreviousMonth || k == PeriodWholeMonthToDate
}

func (k PeriodKind) usesExplicitRange() bool {
	return k == PeriodMonthToDate || k == PeriodDateRange
}

// IsCumulative reports whether the kind aggregates from the first entry.
func (k PeriodKind) IsCumulative() bool {
	return k == PeriodSelectedMonth || k == PeriodPreviousMonth
}

// PeriodSpec is the abstract period descriptor supplied by callers.
type PeriodSpec struct {
	Kind      PeriodKind `json:"kind"`
	Reference TimePoint  `json:"referenceDate"`
	Start     TimePoint  `json:"start"`
	End       TimePoint  `json:"end"`
}

func SelectedMonth(ref TimePoint) PeriodSpec {
	return PeriodSpec{Kind: PeriodSelectedMonth, Reference: ref}
}

func PreviousMonth(ref TimePoint) PeriodSpec {
	return PeriodSpec{Kind: PeriodPreviousMonth, Reference: ref}
}

func WholeMonthToDate(ref TimePoint) PeriodSpec {
	return PeriodSpec{Kind: PeriodWholeMonthToDate, Reference: ref}
}

func MonthToDate(start, end TimePoint) PeriodSpec {
	return PeriodSpec{Kind: PeriodMonthToDate, Start: start, End: end}
}

func DateRange(start, end TimePoint) PeriodSpec {
	return PeriodSpec{Kind: PeriodDateRange, Start: start, End: end}
}

// Validate rejects malformed descriptors before any store access.
func (s PeriodSpec) Validate() error {
	switch {
	case s.Kind.usesReference():
		if s.Reference.IsZero() {
			return &InvalidPeriodError{Kind: s.Kind, Reason: "reference date is required"}
		}
	case s.Kind.usesExplicitRange():
		if s.Start.IsZero() || s.End.IsZero() {
			return &InvalidPeriodError{Kind: s.Kind, Start: s.Start, End: s.End, Reason: "start and end are required"}
		}
		if s.End.Before(s.Start) {
			return &InvalidPeriodError{Kind: s.Kind, Start: s.Start, End: s.End, Reason: "end before start"}
		}
	default:
		return &InvalidPeriodError{Kind: s.Kind, Reason: fmt.Sprintf("unknown period kind %q", s.Kind)}
	}
	return nil
}

// ReferenceDate is the date whose month drives revenue lookups and the
// monthly rollups. Explicit ranges without a reference use End.
func (s PeriodSpec) ReferenceDate() TimePoint {
	if !s.Reference.IsZero() {
		return s.Reference
	}
	return s.End
}

// =============================================================================
// PERIOD RESOLVER - Descriptor to concrete window
// =============================================================================

// ResolvedPeriod is a concrete window plus its aggregation mode. Empty is
// set when a cumulative window has no possible entries (empty store, or the
// first entry is after the cutoff); every sum over it is zero.
type ResolvedPeriod struct {
	Kind       PeriodKind `json:"kind"`
	Window     Period     `json:"window"`
	Cumulative bool       `json:"cumulative"`
	Empty      bool       `json:"empty"`
	Reference  TimePoint  `json:"referenceDate"`
}

// Contains reports whether an entry dated d belongs to the window.
func (rp ResolvedPeriod) Contains(d TimePoint) bool {
	return !rp.Empty && rp.Window.Contains(d)
}

// PeriodResolver turns descriptors into windows. Cumulative windows need
// the earliest ledger date, which is the only store read it performs.
type PeriodResolver struct {
	Store Store
}

func (pr *PeriodResolver) Resolve(ctx context.Context, spec PeriodSpec) (ResolvedPeriod, error) {
	if err := spec.Validate(); err != nil {
		return ResolvedPeriod{}, err
	}

	rp := ResolvedPeriod{
		Kind:       spec.Kind,
		Cumulative: spec.Kind.IsCumulative(),
		Reference:  spec.ReferenceDate(),
	}

	switch spec.Kind {
	case PeriodWholeMonthToDate:
		rp.Window = Period{Start: spec.Reference.MonthStart(), End: spec.Reference.MonthEnd()}
		return rp, nil

	case PeriodMonthToDate, PeriodDateRange:
		rp.Window = Period{Start: spec.Start, End: spec.End}
		return rp, nil
	}

	// Cumulative: [earliest ledger date, cutoff]
	cutoff := spec.Reference.MonthEnd()
	if spec.Kind == PeriodPreviousMonth {
		cutoff = spec.Reference.MonthStart().AddDays(-1)
	}

	earliest, ok, err := pr.Store.EarliestEntryDate(ctx)
	if err != nil {
		return ResolvedPeriod{}, err
	}
	if !ok {
		rp.Window = Period{Start: cutoff, End: cutoff}
		rp.Empty = true
		return rp, nil
	}

	rp.Window = Period{Start: earliest, End: cutoff}
	if earliest.After(cutoff) {
		rp.Empty = true
	}
	return rp, nil
}
