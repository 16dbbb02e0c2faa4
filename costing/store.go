/*
store.go - Read interface between the engine and the ledger

PURPOSE:
  Defines what the engine needs from the LedgerStore. The engine only
  reads: entries in a date window, the earliest entry date, and the
  reference data (items, categories, revenue groups and their history,
  revenue records). Writes belong to the mutation path elsewhere.

NO LOCKING:
  The engine never locks the store across a report. A report issued while
  a writer is active may observe a mix of pre- and post-write state. This
  is accepted: reporting is eventually consistent, not isolated.

DEPENDENCY INJECTION:
  There is no global handle. Every Reporter is built around an explicit
  Store, so tests run against isolated stores in parallel.

IMPLEMENTATIONS:
  - costing/store/memory.go: In-memory for tests and embedding
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - report.go: The Reporter holds a Store
  - cache.go: Uses Revisioner for cache keys
*/
package costing

import "context"

// =============================================================================
// STORE - Read-only view of the ledger and its reference data
// =============================================================================

// EntryQuery selects entries by inclusive date window. An empty ItemIDs
// means every item; otherwise only entries for the listed items. Values are
// always passed to the backend as bound parameters.
type EntryQuery struct {
	From    TimePoint
	To      TimePoint
	ItemIDs []ItemID
}

type Store interface {
	// Entries returns non-voided entries with Date in [From, To].
	Entries(ctx context.Context, q EntryQuery) ([]LedgerEntry, error)

	// EarliestEntryDate returns the Date of the oldest non-voided entry.
	// ok is false when the store holds no such entry.
	EarliestEntryDate(ctx context.Context) (date TimePoint, ok bool, err error)

	Items(ctx context.Context) ([]Item, error)
	Categories(ctx context.Context) ([]Category, error)
	RevenueGroups(ctx context.Context) ([]RevenueGroup, error)

	// RevenueGroupAssignments returns every history row for every category.
	RevenueGroupAssignments(ctx context.Context) ([]RevenueGroupAssignment, error)

	// RevenueRecords returns records with Date in [from, to].
	RevenueRecords(ctx context.Context, from, to TimePoint) ([]RevenueRecord, error)
}

// Revisioner is implemented by stores that count writes. The revision
// changes whenever any entry, void flag or reference row changes.
type Revisioner interface {
	Revision(ctx context.Context) (int64, error)
}
