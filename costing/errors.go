/*
errors.go - Centralized error types for the costing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is / errors.As, or with the helpers below.

ERROR CATEGORIES:
  1. Query failures - store unreachable, malformed filter, schema mismatch.
     Surfaced once as a QueryError ("failed to get <report> report").
     Never retried by the engine.
  2. Invalid periods - rejected eagerly, before any aggregation work.
  3. Guarded arithmetic is NOT an error: division by zero, a missing
     revenue record or an empty operation bucket all resolve to zero.

NO PARTIAL RESULTS:
  A report call returns either complete rows and totals or an error.

SEE ALSO:
  - period.go: Raises InvalidPeriodError
  - filter.go: Raises InvalidFilterError
  - report.go: Wraps failures in QueryError
*/
package costing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrQueryFailed marks every failure to produce a report.
	ErrQueryFailed = errors.New("report query failed")

	// ErrInvalidPeriod is returned when a period descriptor is malformed.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidFilter is returned when a filter tree is malformed.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrUnknownOperation is returned when an entry references an operation
	// that is missing from the registry.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidCatalog is returned when an operation catalog is malformed.
	ErrInvalidCatalog = errors.New("invalid operation catalog")

	// ErrInvalidGroupBy is returned for a grouping other than item or category.
	ErrInvalidGroupBy = errors.New("invalid groupBy")

	// ErrEntryNotFound is returned when voiding an entry the store lacks.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrDuplicateEntry is returned when an entry id is appended twice.
	ErrDuplicateEntry = errors.New("duplicate ledger entry id")

	// ErrStoreRequired is returned when a Reporter has no store to read.
	ErrStoreRequired = errors.New("reporter requires a store")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// QueryError is the single typed error a report call surfaces when it
// cannot complete.
type QueryError struct {
	Report string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to get %s report", e.Report)
	}
	return fmt.Sprintf("failed to get %s report: %v", e.Report, e.Err)
}

// Unwrap exposes both the query-failure marker and the cause.
func (e *QueryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrQueryFailed}
	}
	return []error{ErrQueryFailed, e.Err}
}

func queryFailed(report string, err error) error {
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Report: report, Err: err}
}

// InvalidPeriodError describes why a period descriptor was rejected.
type InvalidPeriodError struct {
	Kind   PeriodKind
	Start  TimePoint
	End    TimePoint
	Reason string
}

func (e *InvalidPeriodError) Error() string {
	if !e.Start.IsZero() || !e.End.IsZero() {
		return fmt.Sprintf("invalid %s period [%s, %s]: %s", e.Kind, e.Start, e.End, e.Reason)
	}
	return fmt.Sprintf("invalid %s period: %s", e.Kind, e.Reason)
}

func (e *InvalidPeriodError) Unwrap() error {
	return ErrInvalidPeriod
}

// InvalidFilterError points at the malformed node of a filter tree.
type InvalidFilterError struct {
	Op     FilterOp
	Field  FilterField
	Reason string
}

func (e *InvalidFilterError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid filter %s(%s): %s", e.Op, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid filter %s: %s", e.Op, e.Reason)
}

func (e *InvalidFilterError) Unwrap() error {
	return ErrInvalidFilter
}

// UnknownOperationError names the entry that referenced a missing operation.
type UnknownOperationError struct {
	EntryID     EntryID
	OperationID OperationID
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("entry %s references unknown operation %d", e.EntryID, e.OperationID)
}

func (e *UnknownOperationError) Unwrap() error {
	return ErrUnknownOperation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidGroupBy)
}

// IsQueryFailure returns true if a report could not be produced.
func IsQueryFailure(err error) bool {
	return errors.Is(err, ErrQueryFailed)
}
