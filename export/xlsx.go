// Package export renders costing reports as spreadsheets.
package export

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/costing-engine/costing"
)

const (
	RowsSheet   = "Rows"
	TotalsSheet = "Totals"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteReport writes a workbook with one row per entity and, when totals is
// not nil, a second sheet with the subtotal and grand total.
func WriteReport(w io.Writer, ops *costing.OperationRegistry, rows []costing.ReportRow, totals *costing.TotalsReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RowsSheet); err != nil {
		return err
	}
	if err := writeRows(f, ops, rows); err != nil {
		return err
	}
	if totals != nil {
		if _, err := f.NewSheet(TotalsSheet); err != nil {
			return err
		}
		if err := writeTotals(f, totals); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeRows(f *excelize.File, ops *costing.OperationRegistry, rows []costing.ReportRow) error {
	headings := []any{
		"Entity", "Category", "Revenue Group", "UOM",
		"Added Qty", "Added Cost (Net)", "Removed Qty", "Removed Cost (Net)",
		"Grand Total Qty", "Grand Total (Gross)", "Grand Total (Net)", "Grand Total (Tax)",
		"Avg Unit Cost (Net)",
	}
	for _, op := range ops.All() {
		headings = append(headings, op.Name+" (Net)")
	}
	headings = append(headings, "Revenue", "Cost %", "Purchase Cost %")

	if err := setRow(f, RowsSheet, 1, headings); err != nil {
		return err
	}

	for i, r := range rows {
		values := []any{
			r.EntityName, r.CategoryName, r.RevenueGroupName, r.UOM,
			num(r.Added.Qty), num(r.Added.Cost.Net), num(r.Removed.Qty), num(r.Removed.Cost.Net),
			num(r.GrandTotal.Qty), num(r.GrandTotal.Cost.Gross), num(r.GrandTotal.Cost.Net), num(r.GrandTotal.Cost.Tax),
			num(r.AvgUnitCost.Net),
		}
		for _, id := range ops.IDs() {
			values = append(values, num(r.ByOperation[id].Cost.Net))
		}
		values = append(values, num(r.RevenueGroupTotalAmount), num(r.CostPercentage), num(r.PurchaseCostPercentage))

		if err := setRow(f, RowsSheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func writeTotals(f *excelize.File, t *costing.TotalsReport) error {
	if err := setRow(f, TotalsSheet, 1, []any{
		"", "Rows", "Beginning (Net)", "Added (Net)", "Ending (Net)",
		"Cost of Sales (Net)", "Revenue", "Cost %", "Purchase Cost %", "Cost of Sales %",
	}); err != nil {
		return err
	}
	lines := []struct {
		label string
		r     costing.Rollup
	}{
		{"Subtotal", t.Subtotal},
		{"Grand Total", t.GrandTotal},
	}
	for i, l := range lines {
		if err := setRow(f, TotalsSheet, i+2, []any{
			l.label, l.r.RowCount,
			num(l.r.PreviousMonth.GrandTotal.Cost.Net),
			num(l.r.WholeMonth.Added.Cost.Net),
			num(l.r.SelectedMonth.GrandTotal.Cost.Net),
			num(l.r.CostOfSales.Net),
			num(l.r.RevenueGroupTotalAmount),
			num(l.r.CostPercentage),
			num(l.r.PurchaseCostPercentage),
			num(l.r.CostOfSalesPercentage),
		}); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func num(d decimal.Decimal) float64 {
	return d.Round(4).InexactFloat64()
}
