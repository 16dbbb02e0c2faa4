package costing

// DefaultPageSize applies when a caller sends no usable page size.
const DefaultPageSize = 25

// Page is one slice of a row list. Pages are 1-based.
type Page[T any] struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Result     []T  `json:"result"`
	TotalCount int  `json:"totalCount"`
	HasMore    bool `json:"hasMore"`
}

// Paginate slices rows without touching the store. A page past the end is
// empty rather than an error.
func Paginate[T any](rows []T, page, pageSize, defaultSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	// The page index is checked before multiplying so huge page or size
	// values cannot overflow the offset.
	total := len(rows)
	offset := total
	result := []T{}
	if total > 0 && page-1 <= (total-1)/pageSize {
		offset = (page - 1) * pageSize
		end := total
		if total-offset > pageSize {
			end = offset + pageSize
		}
		result = append(result, rows[offset:end]...)
	}

	return Page[T]{
		Page:       page,
		PageSize:   pageSize,
		Result:     result,
		TotalCount: total,
		HasMore:    offset+len(result) < total,
	}
}
