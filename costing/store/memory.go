// Package store provides in-process costing.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/costing-engine/costing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     []costing.LedgerEntry // ordered by Date, then insertion
	entryIndex  map[costing.EntryID]int
	items       map[costing.ItemID]costing.Item
	categories  map[costing.CategoryID]costing.Category
	groups      map[costing.RevenueGroupID]costing.RevenueGroup
	assignments []costing.RevenueGroupAssignment
	records     []costing.RevenueRecord
	seq         int64
	revision    int64
}

func NewMemory() *Memory {
	return &Memory{
		entryIndex: make(map[costing.EntryID]int),
		items:      make(map[costing.ItemID]costing.Item),
		categories: make(map[costing.CategoryID]costing.Category),
		groups:     make(map[costing.RevenueGroupID]costing.RevenueGroup),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

// AppendEntry adds an entry, assigning an id when it has none. Append-only.
func (m *Memory) AppendEntry(_ context.Context, e costing.LedgerEntry) (costing.EntryID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = costing.EntryID(uuid.NewString())
	}
	if _, dup := m.entryIndex[e.ID]; dup {
		return "", fmt.Errorf("%w: %s", costing.ErrDuplicateEntry, e.ID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = costing.Today()
	}

	// Binary search for insertion point
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Date.After(e.Date)
	})
	m.entries = append(m.entries, costing.LedgerEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
	m.reindex(i)
	m.revision++
	return e.ID, nil
}

func (m *Memory) reindex(from int) {
	for j := from; j < len(m.entries); j++ {
		m.entryIndex[m.entries[j].ID] = j
	}
}

// SetVoided flips the void flag, the only mutation an entry allows.
func (m *Memory) SetVoided(_ context.Context, id costing.EntryID, voided bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.entryIndex[id]
	if !ok {
		return fmt.Errorf("%w: %s", costing.ErrEntryNotFound, id)
	}
	m.entries[i].Voided = voided
	m.revision++
	return nil
}

func (m *Memory) SaveItem(_ context.Context, it costing.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
	m.revision++
	return nil
}

func (m *Memory) SaveCategory(_ context.Context, c costing.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	m.revision++
	return nil
}

func (m *Memory) SaveRevenueGroup(_ context.Context, g costing.RevenueGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID] = g
	m.revision++
	return nil
}

// AssignRevenueGroup appends a history row; Seq is assigned in insertion order.
func (m *Memory) AssignRevenueGroup(_ context.Context, cat costing.CategoryID, group costing.RevenueGroupID, created costing.TimePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.assignments = append(m.assignments, costing.RevenueGroupAssignment{
		CategoryID:     cat,
		RevenueGroupID: group,
		DateCreated:    created,
		Seq:            m.seq,
	})
	m.revision++
	return nil
}

func (m *Memory) AddRevenueRecord(_ context.Context, rec costing.RevenueRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	m.revision++
	return nil
}

// =============================================================================
// costing.Store
// =============================================================================

func (m *Memory) Entries(_ context.Context, q costing.EntryQuery) ([]costing.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var only map[costing.ItemID]bool
	if len(q.ItemIDs) > 0 {
		only = make(map[costing.ItemID]bool, len(q.ItemIDs))
		for _, id := range q.ItemIDs {
			only[id] = true
		}
	}

	var result []costing.LedgerEntry
	for _, e := range m.entries {
		if e.Voided || e.Date.Before(q.From) || e.Date.After(q.To) {
			continue
		}
		if only != nil && !only[e.ItemID] {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *Memory) EarliestEntryDate(_ context.Context) (costing.TimePoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if !e.Voided {
			return e.Date, true, nil
		}
	}
	return costing.TimePoint{}, false, nil
}

func (m *Memory) Items(_ context.Context) ([]costing.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]costing.Item, 0, len(m.items))
	for _, it := range m.items {
		result = append(result, it)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) Categories(_ context.Context) ([]costing.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]costing.Category, 0, len(m.categories))
	for _, c := range m.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) RevenueGroups(_ context.Context) ([]costing.RevenueGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]costing.RevenueGroup, 0, len(m.groups))
	for _, g := range m.groups {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) RevenueGroupAssignments(_ context.Context) ([]costing.RevenueGroupAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]costing.RevenueGroupAssignment, len(m.assignments))
	copy(result, m.assignments)
	return result, nil
}

func (m *Memory) RevenueRecords(_ context.Context, from, to costing.TimePoint) ([]costing.RevenueRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []costing.RevenueRecord
	for _, r := range m.records {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

// Revision counts writes since creation.
func (m *Memory) Revision(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision, nil
}

var (
	_ costing.Store      = (*Memory)(nil)
	_ costing.Revisioner = (*Memory)(nil)
)
