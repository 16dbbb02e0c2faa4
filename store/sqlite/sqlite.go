/*
Package sqlite provides a SQLite-backed implementation of costing.Store.

PURPOSE:
  Persists the ledger and its reference data, and answers the engine's
  read queries with parameterized SQL. In production the same patterns
  apply to PostgreSQL with minor dialect differences.

INTERFACES IMPLEMENTED:
  costing.Store:      Entries, earliest date, reference data
  costing.Revisioner: Write counter maintained by triggers

APPEND-ONLY ENFORCEMENT:
  - A trigger rejects UPDATE of any ledger_entries column except voided
  - Nothing in this package deletes an entry outside Reset
  - Voiding is the only correction

KEY TABLES:
  ledger_entries:          Stock adjustments (decimals stored as TEXT)
  operations:              Operation catalog (id, type, name, code)
  items, categories:       Reference data
  revenue_groups:          Revenue groups
  category_revenue_groups: Assignment history; seq is insertion order
  revenue_records:         Monthly revenue per group
  store_revision:          Single-row write counter

INDEXES:
  - idx_ledger_entries_date: Window scans (hot path)
  - idx_ledger_entries_item_date: Filtered window scans
  - idx_ledger_entries_active_date: Earliest non-voided entry

DATES:
  Stored as YYYY-MM-DD so lexical comparison is date comparison.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Reports never hold it across
  queries; each read takes it for one statement only.

USAGE:
  store, err := sqlite.New("./data/costing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  reporter := costing.NewReporter(store, costing.DefaultOperations())

SEE ALSO:
  - costing/store.go: Interface definitions
  - costing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/costing-engine/costing"
)

const dateLayout = "2006-01-02"

// maxInListItems bounds the bound parameters of an item filter. Larger
// sets scan the window and filter in process.
const maxInListItems = 500

// Store implements costing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// revisionedTables bump store_revision on every write.
var revisionedTables = []string{
	"ledger_entries", "operations", "items", "categories",
	"revenue_groups", "category_revenue_groups", "revenue_records",
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Ledger entries (append-only, voided is the only mutable column)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		operation_id INTEGER NOT NULL,
		qty TEXT NOT NULL,
		unit_cost_gross TEXT NOT NULL,
		unit_cost_net TEXT NOT NULL,
		unit_cost_tax TEXT NOT NULL,
		date TEXT NOT NULL,
		voided INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_date
		ON ledger_entries(date);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_item_date
		ON ledger_entries(item_id, date);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_active_date
		ON ledger_entries(date) WHERE voided = 0;

	CREATE TRIGGER IF NOT EXISTS ledger_entries_append_only
	BEFORE UPDATE OF id, item_id, operation_id, qty, unit_cost_gross, unit_cost_net,
		unit_cost_tax, date, created_at ON ledger_entries
	BEGIN
		SELECT RAISE(ABORT, 'ledger entries are append-only');
	END;

	-- Operation catalog
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY,
		type TEXT NOT NULL CHECK (type IN ('add_stock', 'remove_stock')),
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE
	);

	-- Reference data
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category_id TEXT NOT NULL,
		uom TEXT NOT NULL DEFAULT '',
		current_stock_qty TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_items_category
		ON items(category_id);

	CREATE TABLE IF NOT EXISTS revenue_groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	-- Revenue-group assignment history
	CREATE TABLE IF NOT EXISTS category_revenue_groups (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		category_id TEXT NOT NULL,
		revenue_group_id TEXT NOT NULL,
		date_created TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_category_revenue_groups_category
		ON category_revenue_groups(category_id, date_created);

	CREATE TABLE IF NOT EXISTS revenue_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		revenue_group_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_revenue_records_date
		ON revenue_records(date);

	-- Write counter
	CREATE TABLE IF NOT EXISTS store_revision (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		revision INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO store_revision (id, revision) VALUES (1, 0);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	for _, table := range revisionedTables {
		for _, event := range []string{"INSERT", "UPDATE", "DELETE"} {
			trigger := fmt.Sprintf(`
				CREATE TRIGGER IF NOT EXISTS %s_revision_%s
				AFTER %s ON %s
				BEGIN
					UPDATE store_revision SET revision = revision + 1 WHERE id = 1;
				END;`,
				table, strings.ToLower(event), event, table)
			if _, err := s.db.Exec(trigger); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// LEDGER READS (costing.Store interface)
// =============================================================================

// Entries returns non-voided entries in [From, To], optionally restricted to
// a set of items.
func (s *Store) Entries(ctx context.Context, q costing.EntryQuery) ([]costing.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, item_id, operation_id, qty, unit_cost_gross, unit_cost_net, unit_cost_tax,
		       date, voided, created_at
		FROM ledger_entries
		WHERE voided = 0 AND date >= ? AND date <= ?`
	args := []any{formatDate(q.From), formatDate(q.To)}

	var only map[costing.ItemID]bool
	switch {
	case len(q.ItemIDs) == 0:
	case len(q.ItemIDs) <= maxInListItems:
		query += " AND item_id IN (?" + strings.Repeat(", ?", len(q.ItemIDs)-1) + ")"
		for _, id := range q.ItemIDs {
			args = append(args, string(id))
		}
	default:
		only = make(map[costing.ItemID]bool, len(q.ItemIDs))
		for _, id := range q.ItemIDs {
			only[id] = true
		}
	}
	query += " ORDER BY date ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []costing.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if only != nil && !only[e.ItemID] {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EarliestEntryDate returns the date of the oldest non-voided entry.
func (s *Store) EarliestEntryDate(ctx context.Context) (costing.TimePoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var earliest sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MIN(date) FROM ledger_entries WHERE voided = 0",
	).Scan(&earliest)
	if err != nil {
		return costing.TimePoint{}, false, fmt.Errorf("failed to query earliest entry: %w", err)
	}
	if !earliest.Valid {
		return costing.TimePoint{}, false, nil
	}
	tp, err := costing.ParseDate(earliest.String)
	if err != nil {
		return costing.TimePoint{}, false, err
	}
	return tp, true, nil
}

func scanEntry(rows *sql.Rows) (costing.LedgerEntry, error) {
	var (
		e                    costing.LedgerEntry
		qty, gross, net, tax string
		date, createdAt      string
		voided               int
	)

	err := rows.Scan(
		&e.ID, &e.ItemID, &e.OperationID, &qty, &gross, &net, &tax,
		&date, &voided, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	if e.Qty, err = decimal.NewFromString(qty); err != nil {
		return e, fmt.Errorf("entry %s: bad qty %q: %w", e.ID, qty, err)
	}
	if e.UnitCost, err = parseCost(gross, net, tax); err != nil {
		return e, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	if e.Date, err = costing.ParseDate(date); err != nil {
		return e, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	if e.CreatedAt, err = costing.ParseDate(createdAt); err != nil {
		return e, fmt.Errorf("entry %s: bad created_at: %w", e.ID, err)
	}
	e.Voided = voided != 0
	return e, nil
}

// =============================================================================
// LEDGER WRITES - Fixture and import plumbing
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppendEntry adds an entry, assigning a UUID when it has none.
func (s *Store) AppendEntry(ctx context.Context, e costing.LedgerEntry) (costing.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendEntry(ctx, s.db, e)
}

// AppendEntries adds entries atomically.
func (s *Store) AppendEntries(ctx context.Context, entries []costing.LedgerEntry) ([]costing.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	ids := make([]costing.EntryID, 0, len(entries))
	for _, e := range entries {
		id, err := s.appendEntry(ctx, sqlTx, e)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, sqlTx.Commit()
}

func (s *Store) appendEntry(ctx context.Context, db execer, e costing.LedgerEntry) (costing.EntryID, error) {
	if e.ID == "" {
		e.ID = costing.EntryID(uuid.NewString())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = costing.Today()
	}

	query := `
		INSERT INTO ledger_entries
		(id, item_id, operation_id, qty, unit_cost_gross, unit_cost_net, unit_cost_tax,
		 date, voided, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		string(e.ID),
		string(e.ItemID),
		int(e.OperationID),
		e.Qty.String(),
		e.UnitCost.Gross.String(),
		e.UnitCost.Net.String(),
		e.UnitCost.Tax.String(),
		formatDate(e.Date),
		boolToInt(e.Voided),
		formatDate(e.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", fmt.Errorf("%w: %s", costing.ErrDuplicateEntry, e.ID)
		}
		return "", fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return e.ID, nil
}

// SetVoided flips the void flag, the only mutation an entry allows.
func (s *Store) SetVoided(ctx context.Context, id costing.EntryID, voided bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE ledger_entries SET voided = ? WHERE id = ?",
		boolToInt(voided), string(id),
	)
	if err != nil {
		return fmt.Errorf("failed to void ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", costing.ErrEntryNotFound, id)
	}
	return nil
}

// =============================================================================
// OPERATION CATALOG
// =============================================================================

// SaveOperation upserts one catalog row.
func (s *Store) SaveOperation(ctx context.Context, op costing.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO operations (id, type, name, code)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			code = excluded.code
	`
	_, err := s.db.ExecContext(ctx, query, int(op.ID), string(op.Type), op.Name, op.Code)
	if err != nil {
		return fmt.Errorf("failed to save operation %d: %w", op.ID, err)
	}
	return nil
}

// ListOperations returns the stored catalog ordered by id.
func (s *Store) ListOperations(ctx context.Context) ([]costing.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, type, name, code FROM operations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []costing.Operation
	for rows.Next() {
		var op costing.Operation
		if err := rows.Scan(&op.ID, &op.Type, &op.Name, &op.Code); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (s *Store) SaveCategory(ctx context.Context, c costing.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		string(c.ID), c.Name,
	)
	return err
}

func (s *Store) SaveItem(ctx context.Context, it costing.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, category_id, uom, current_stock_qty) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category_id = excluded.category_id,
			uom = excluded.uom,
			current_stock_qty = excluded.current_stock_qty`,
		string(it.ID), it.Name, string(it.CategoryID), it.UOM, it.CurrentStockQty.String(),
	)
	return err
}

func (s *Store) SaveRevenueGroup(ctx context.Context, g costing.RevenueGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revenue_groups (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		string(g.ID), g.Name,
	)
	return err
}

// AssignRevenueGroup appends a history row. Earlier rows are kept.
func (s *Store) AssignRevenueGroup(ctx context.Context, cat costing.CategoryID, group costing.RevenueGroupID, created costing.TimePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO category_revenue_groups (category_id, revenue_group_id, date_created) VALUES (?, ?, ?)",
		string(cat), string(group), formatDate(created),
	)
	return err
}

func (s *Store) AddRevenueRecord(ctx context.Context, rec costing.RevenueRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO revenue_records (revenue_group_id, amount, date) VALUES (?, ?, ?)",
		string(rec.RevenueGroupID), rec.Amount.String(), formatDate(rec.Date),
	)
	return err
}

func (s *Store) Items(ctx context.Context) ([]costing.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, category_id, uom, current_stock_qty FROM items ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []costing.Item
	for rows.Next() {
		var it costing.Item
		var stock string
		if err := rows.Scan(&it.ID, &it.Name, &it.CategoryID, &it.UOM, &stock); err != nil {
			return nil, err
		}
		if it.CurrentStockQty, err = decimal.NewFromString(stock); err != nil {
			return nil, fmt.Errorf("item %s: bad stock qty %q: %w", it.ID, stock, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) Categories(ctx context.Context) ([]costing.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cats []costing.Category
	for rows.Next() {
		var c costing.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *Store) RevenueGroups(ctx context.Context) ([]costing.RevenueGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM revenue_groups ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue groups: %w", err)
	}
	defer rows.Close()

	var groups []costing.RevenueGroup
	for rows.Next() {
		var g costing.RevenueGroup
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) RevenueGroupAssignments(ctx context.Context) ([]costing.RevenueGroupAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, category_id, revenue_group_id, date_created FROM category_revenue_groups ORDER BY seq",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue group history: %w", err)
	}
	defer rows.Close()

	var history []costing.RevenueGroupAssignment
	for rows.Next() {
		var a costing.RevenueGroupAssignment
		var created string
		if err := rows.Scan(&a.Seq, &a.CategoryID, &a.RevenueGroupID, &created); err != nil {
			return nil, err
		}
		if a.DateCreated, err = costing.ParseDate(created); err != nil {
			return nil, err
		}
		history = append(history, a)
	}
	return history, rows.Err()
}

func (s *Store) RevenueRecords(ctx context.Context, from, to costing.TimePoint) ([]costing.RevenueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT revenue_group_id, amount, date FROM revenue_records WHERE date >= ? AND date <= ? ORDER BY id",
		formatDate(from), formatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue records: %w", err)
	}
	defer rows.Close()

	var records []costing.RevenueRecord
	for rows.Next() {
		var r costing.RevenueRecord
		var amount, date string
		if err := rows.Scan(&r.RevenueGroupID, &amount, &date); err != nil {
			return nil, err
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("revenue record: bad amount %q: %w", amount, err)
		}
		if r.Date, err = costing.ParseDate(date); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Revision returns the write counter maintained by triggers.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rev int64
	err := s.db.QueryRowContext(ctx, "SELECT revision FROM store_revision WHERE id = 1").Scan(&rev)
	return rev, err
}

// Reset clears all data (for testing/demo). The revision keeps counting.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"ledger_entries", "revenue_records", "category_revenue_groups",
		"items", "categories", "revenue_groups", "operations",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func formatDate(tp costing.TimePoint) string {
	return tp.Time.UTC().Format(dateLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseCost(gross, net, tax string) (costing.Cost, error) {
	var c costing.Cost
	var err error
	if c.Gross, err = decimal.NewFromString(gross); err != nil {
		return c, fmt.Errorf("bad gross cost %q: %w", gross, err)
	}
	if c.Net, err = decimal.NewFromString(net); err != nil {
		return c, fmt.Errorf("bad net cost %q: %w", net, err)
	}
	if c.Tax, err = decimal.NewFromString(tax); err != nil {
		return c, fmt.Errorf("bad tax cost %q: %w", tax, err)
	}
	return c, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

var (
	_ costing.Store      = (*Store)(nil)
	_ costing.Revisioner = (*Store)(nil)
)
