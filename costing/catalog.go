package costing

import (
	"context"
	"sort"
)

// =============================================================================
// CATALOG - Per-request snapshot of items and categories
// =============================================================================

// Catalog is read once per report so every aggregation in the report sees
// the same items and category ownership.
type Catalog struct {
	items      []Item
	itemByID   map[ItemID]Item
	categories map[CategoryID]Category
}

func LoadCatalog(ctx context.Context, store Store) (*Catalog, error) {
	items, err := store.Items(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(items, categories), nil
}

// NewCatalog indexes items and categories; items are kept ordered by name, then id.
func NewCatalog(items []Item, categories []Category) *Catalog {
	c := &Catalog{
		items:      append([]Item(nil), items...),
		itemByID:   make(map[ItemID]Item, len(items)),
		categories: make(map[CategoryID]Category, len(categories)),
	}
	sort.SliceStable(c.items, func(i, j int) bool {
		if c.items[i].Name != c.items[j].Name {
			return c.items[i].Name < c.items[j].Name
		}
		return c.items[i].ID < c.items[j].ID
	})
	for _, it := range c.items {
		c.itemByID[it.ID] = it
	}
	for _, cat := range categories {
		c.categories[cat.ID] = cat
	}
	return c
}

func (c *Catalog) Item(id ItemID) (Item, bool) {
	it, ok := c.itemByID[id]
	return it, ok
}

func (c *Catalog) Category(id CategoryID) (Category, bool) {
	cat, ok := c.categories[id]
	return cat, ok
}

// Subject describes an item for filter evaluation.
func (c *Catalog) Subject(it Item, rev *RevenueIndex) Subject {
	s := Subject{ItemID: it.ID, CategoryID: it.CategoryID}
	if rev != nil {
		if g, ok := rev.GroupFor(it.CategoryID); ok {
			s.RevenueGroupID = g.ID
		}
	}
	return s
}

// MatchingItems returns the items the filter selects, in catalog order.
func (c *Catalog) MatchingItems(f Filter, rev *RevenueIndex) []Item {
	if f.IsAll() {
		return append([]Item(nil), c.items...)
	}
	var out []Item
	for _, it := range c.items {
		if f.Match(c.Subject(it, rev)) {
			out = append(out, it)
		}
	}
	return out
}
