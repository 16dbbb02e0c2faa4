package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/costing-engine/costing"
)

func tomatoRow(ops *costing.OperationRegistry) costing.ReportRow {
	byOp := costing.ZeroFigures(ops).ByOperation
	byOp[1] = costing.Bucket{Qty: decimal.NewFromInt(15), Cost: costing.NewCost(38.5, 35, 3.5)}
	byOp[2] = costing.Bucket{Qty: decimal.NewFromInt(4), Cost: costing.NewCost(8.8, 8, 0.8)}

	return costing.ReportRow{
		EntityAggregate: costing.EntityAggregate{
			EntityRef: costing.EntityRef{
				GroupBy:          costing.GroupByItem,
				EntityID:         "tomato",
				EntityName:       "Tomatoes",
				UOM:              "kg",
				CategoryName:     "Produce",
				RevenueGroupName: "Food Sales",
			},
			Figures: costing.NewFigures(byOp[1], byOp[2], byOp),
		},
		RevenueGroupTotalAmount: decimal.NewFromInt(5000),
		CostPercentage:          decimal.RequireFromString("0.16"),
		PurchaseCostPercentage:  decimal.RequireFromString("0.7"),
	}
}

func TestWriteReport(t *testing.T) {
	// GIVEN: One row and a totals report
	ops := costing.DefaultOperations()
	totals := &costing.TotalsReport{
		Subtotal:   costing.Rollup{RowCount: 1, CostOfSales: costing.NewCost(8.8, 8, 0.8)},
		GrandTotal: costing.Rollup{RowCount: 4, CostOfSales: costing.NewCost(19.8, 18, 1.8)},
	}

	// WHEN: Rendering the workbook
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, ops, []costing.ReportRow{tomatoRow(ops)}, totals))

	// THEN: It opens with both sheets
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{RowsSheet, TotalsSheet}, f.GetSheetList())

	rows, err := f.GetRows(RowsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 13+ops.Len()+3, "one net column per operation")
	assert.Equal(t, "Purchase (Net)", rows[0][13])
	assert.Equal(t, "Tomatoes", rows[1][0])

	grandNet, err := f.GetCellValue(RowsSheet, "K2")
	require.NoError(t, err)
	assert.Equal(t, "27", grandNet)

	label, err := f.GetCellValue(TotalsSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "Grand Total", label)
	cos, err := f.GetCellValue(TotalsSheet, "F3")
	require.NoError(t, err)
	assert.Equal(t, "18", cos)
}

func TestWriteReport_WithoutTotals(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, costing.DefaultOperations(), nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{RowsSheet}, f.GetSheetList())
}
