/*
filter.go - Structured report filter

PURPOSE:
  A Filter scopes which entities a report aggregates. It is a small tagged
  predicate tree over three fields (category_id, item_id, revenue_group_id)
  evaluated in-process against a Subject. It is never rendered into query
  text: the engine compiles it to a set of item ids, which the store
  receives as bound parameters.

TREE SHAPE:
  all                         matches everything (also the zero Filter)
  eq(field, value)            field == value
  in(field, v1, v2, ...)      field is one of the values
  and(f1, f2, ...)            every child matches
  or(f1, f2, ...)             at least one child matches
  not(f)                      the single child does not match

EXAMPLE:
  // Food items outside the "bakery" category
  f := costing.And(
      costing.Eq(costing.FieldRevenueGroup, "food"),
      costing.Not(costing.Eq(costing.FieldCategory, "bakery")),
  )

SEE ALSO:
  - aggregate.go: Compiles a Filter to item ids
  - rollup.go: Re-applies the Filter for subtotals
*/
package costing

import "fmt"

type FilterOp string

const (
	FilterAll FilterOp = "all"
	FilterEq  FilterOp = "eq"
	FilterIn  FilterOp = "in"
	FilterAnd FilterOp = "and"
	FilterOr  FilterOp = "or"
	FilterNot FilterOp = "not"
)

type FilterField string

const (
	FieldCategory     FilterField = "category_id"
	FieldItem         FilterField = "item_id"
	FieldRevenueGroup FilterField = "revenue_group_id"
)

func (f FilterField) valid() bool {
	return f == FieldCategory || f == FieldItem || f == FieldRevenueGroup
}

// Filter is one node of the predicate tree. The zero value matches all.
type Filter struct {
	Op       FilterOp    `json:"op,omitempty"`
	Field    FilterField `json:"field,omitempty"`
	Values   []string    `json:"values,omitempty"`
	Children []Filter    `json:"children,omitempty"`
}

// Subject is what a filter is evaluated against: an item and the category
// and revenue group it currently belongs to.
type Subject struct {
	ItemID         ItemID
	CategoryID     CategoryID
	RevenueGroupID RevenueGroupID
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func All() Filter { return Filter{Op: FilterAll} }

func Eq(field FilterField, value string) Filter {
	return Filter{Op: FilterEq, Field: field, Values: []string{value}}
}

func In(field FilterField, values ...string) Filter {
	return Filter{Op: FilterIn, Field: field, Values: values}
}

func And(children ...Filter) Filter { return Filter{Op: FilterAnd, Children: children} }
func Or(children ...Filter) Filter  { return Filter{Op: FilterOr, Children: children} }
func Not(child Filter) Filter       { return Filter{Op: FilterNot, Children: []Filter{child}} }

// ScopeFilter builds the flat filter UI callers send: every non-empty id
// must match. No ids at all yields All.
func ScopeFilter(categoryID, itemID, revenueGroupID string) Filter {
	var parts []Filter
	if categoryID != "" {
		parts = append(parts, Eq(FieldCategory, categoryID))
	}
	if itemID != "" {
		parts = append(parts, Eq(FieldItem, itemID))
	}
	if revenueGroupID != "" {
		parts = append(parts, Eq(FieldRevenueGroup, revenueGroupID))
	}
	switch len(parts) {
	case 0:
		return All()
	case 1:
		return parts[0]
	default:
		return And(parts...)
	}
}

// =============================================================================
// EVALUATION
// =============================================================================

// IsAll reports whether the node trivially matches everything.
func (f Filter) IsAll() bool {
	return f.Op == "" || f.Op == FilterAll
}

// Validate checks the whole tree. Match assumes a validated tree.
func (f Filter) Validate() error {
	switch f.Op {
	case "", FilterAll:
		return nil
	case FilterEq, FilterIn:
		if !f.Field.valid() {
			return &InvalidFilterError{Op: f.Op, Field: f.Field, Reason: "unknown field"}
		}
		if len(f.Values) == 0 {
			return &InvalidFilterError{Op: f.Op, Field: f.Field, Reason: "no values"}
		}
		if f.Op == FilterEq && len(f.Values) != 1 {
			return &InvalidFilterError{Op: f.Op, Field: f.Field, Reason: "eq takes exactly one value"}
		}
		return nil
	case FilterAnd, FilterOr:
		if len(f.Children) == 0 {
			return &InvalidFilterError{Op: f.Op, Reason: "no children"}
		}
	case FilterNot:
		if len(f.Children) != 1 {
			return &InvalidFilterError{Op: f.Op, Reason: "not takes exactly one child"}
		}
	default:
		return &InvalidFilterError{Op: f.Op, Reason: "unknown operator"}
	}
	for _, c := range f.Children {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f Filter) Match(s Subject) bool {
	switch f.Op {
	case "", FilterAll:
		return true
	case FilterEq, FilterIn:
		v := s.field(f.Field)
		for _, want := range f.Values {
			if v == want {
				return true
			}
		}
		return false
	case FilterAnd:
		for _, c := range f.Children {
			if !c.Match(s) {
				return false
			}
		}
		return true
	case FilterOr:
		for _, c := range f.Children {
			if c.Match(s) {
				return true
			}
		}
		return false
	case FilterNot:
		return len(f.Children) == 1 && !f.Children[0].Match(s)
	}
	return false
}

func (s Subject) field(f FilterField) string {
	switch f {
	case FieldCategory:
		return string(s.CategoryID)
	case FieldItem:
		return string(s.ItemID)
	case FieldRevenueGroup:
		return string(s.RevenueGroupID)
	}
	return ""
}

func (f Filter) String() string {
	switch f.Op {
	case "", FilterAll:
		return "all"
	case FilterEq, FilterIn:
		return fmt.Sprintf("%s(%s %v)", f.Op, f.Field, f.Values)
	}
	return fmt.Sprintf("%s%v", f.Op, f.Children)
}
