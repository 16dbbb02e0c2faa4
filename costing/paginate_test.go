package costing_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/costing-engine/costing"
)

func TestPaginate(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name       string
		page, size int
		want       []int
		wantPage   int
		wantSize   int
		hasMore    bool
	}{
		{"first page", 1, 3, []int{1, 2, 3}, 1, 3, true},
		{"last partial page", 3, 3, []int{7}, 3, 3, false},
		{"exact end", 1, 7, []int{1, 2, 3, 4, 5, 6, 7}, 1, 7, false},
		{"past the end", 5, 3, []int{}, 5, 3, false},
		{"page below one", 0, 3, []int{1, 2, 3}, 1, 3, true},
		{"size defaults", 1, 0, []int{1, 2, 3, 4, 5}, 1, 5, true},
		{"huge size", 1, math.MaxInt, []int{1, 2, 3, 4, 5, 6, 7}, 1, math.MaxInt, false},
		{"huge size past the end", 3, math.MaxInt/2 + 1, []int{}, 3, math.MaxInt/2 + 1, false},
		{"huge page", math.MaxInt, 3, []int{}, math.MaxInt, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := costing.Paginate(rows, tt.page, tt.size, 5)
			assert.Equal(t, tt.want, p.Result)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, tt.hasMore, p.HasMore)
			assert.Equal(t, len(rows), p.TotalCount)
		})
	}
}

func TestPaginate_FallsBackToPackageDefault(t *testing.T) {
	p := costing.Paginate([]string{"a"}, 1, 0, 0)
	assert.Equal(t, costing.DefaultPageSize, p.PageSize)
}

func TestPaginate_EmptyInput(t *testing.T) {
	p := costing.Paginate[string](nil, 1, 10, 10)
	assert.NotNil(t, p.Result)
	assert.Empty(t, p.Result)
	assert.Zero(t, p.TotalCount)
	assert.False(t, p.HasMore)
}
