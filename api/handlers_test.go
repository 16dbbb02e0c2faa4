/*
handlers_test.go - HTTP tests for the report API

Tests for:
- Report endpoints against a loaded scenario
- Status codes for bad parameters and unknown scenarios
- Workbook export, catalog and health endpoints
- Request id propagation
*/
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/costing-engine/costing"
	"github.com/warp/costing-engine/export"
)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	h := setupTestHandler(t)
	return &testServer{t: t, handler: h, router: NewRouter(h, nil)}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) load(scenarioID string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+scenarioID+`"}`)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// REPORTS
// =============================================================================

func TestGetReportRows(t *testing.T) {
	// GIVEN: The bistro scenario
	s := newTestServer(t)
	s.load("bistro-march")

	// WHEN: Requesting the first page of the selected month
	rec := s.do(http.MethodGet, "/api/reports/rows?period=selectedMonth&date=2024-03-15&pageSize=2", "")

	// THEN: Rows are paged and carry engine figures
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[costing.ReportPage](t, rec)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 5, page.TotalCount)
	assert.Len(t, page.Result, 2)
	assert.True(t, page.HasMore)
}

func TestGetReportRows_ScopeFilter(t *testing.T) {
	// GIVEN: The bistro scenario
	s := newTestServer(t)
	s.load("bistro-march")

	// WHEN: Scoping to the produce category
	rec := s.do(http.MethodGet, "/api/reports/rows?date=2024-03-15&categoryId=produce", "")

	// THEN: Only produce items come back, tomatoes with the worked figures
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[costing.ReportPage](t, rec)
	require.Equal(t, 2, page.TotalCount)
	tomato := itemRow(t, page.Result, "tomato")
	assert.Equal(t, "27", tomato.GrandTotal.Cost.Net.String())
	assert.Equal(t, "11", tomato.GrandTotal.Qty.String())
}

func TestGetReportRows_StructuredFilter(t *testing.T) {
	s := newTestServer(t)
	s.load("bistro-march")

	filter := url.QueryEscape(`{"op":"eq","field":"item_id","values":["beef"]}`)
	rec := s.do(http.MethodGet, "/api/reports/rows?date=2024-03-15&filter="+filter, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[costing.ReportPage](t, rec)
	require.Len(t, page.Result, 1)
	assert.Equal(t, "beef", page.Result[0].EntityID)
}

func TestGetMonthlyReport(t *testing.T) {
	// GIVEN: The bistro scenario
	s := newTestServer(t)
	s.load("bistro-march")

	// WHEN: Requesting the monthly report for March
	rec := s.do(http.MethodGet, "/api/reports/monthly?date=2024-03-15&itemId=tomato", "")

	// THEN: Cost of sales is beginning plus purchases minus ending
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[MonthlyReportDTO](t, rec)
	assert.Equal(t, "2024-03-15", report.ReferenceDate.String())
	require.Equal(t, 1, report.Count)
	row := report.Rows[0]
	assert.Equal(t, "15", row.PreviousMonth.GrandTotal.Cost.Net.String())
	assert.Equal(t, "20", row.WholeMonth.Added.Cost.Net.String())
	assert.Equal(t, "8", row.CostOfSales.Net.String())
	assert.Equal(t, "5000", row.RevenueGroupTotalAmount.String())
}

func TestGetTotals(t *testing.T) {
	// GIVEN: The bistro scenario
	s := newTestServer(t)
	s.load("bistro-march")

	// WHEN: Requesting totals scoped to produce
	rec := s.do(http.MethodGet, "/api/reports/totals?date=2024-03-15&categoryId=produce", "")

	// THEN: The subtotal covers the scope and the grand total everything
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	totals := decode[costing.TotalsReport](t, rec)
	assert.Equal(t, 2, totals.Subtotal.RowCount)
	assert.Equal(t, 5, totals.GrandTotal.RowCount)
}

func TestReports_BadRequests(t *testing.T) {
	s := newTestServer(t)
	s.load("bistro-march")

	tests := []struct {
		name    string
		path    string
		message string
	}{
		{"unparseable date", "/api/reports/rows?date=15-03-2024", "Invalid query parameters"},
		{"unparseable page", "/api/reports/rows?date=2024-03-15&page=two", "Invalid query parameters"},
		{"malformed filter", "/api/reports/rows?date=2024-03-15&filter=%7B", "Invalid query parameters"},
		{"unknown period", "/api/reports/totals?period=fortnight&date=2024-03-15", "Invalid report request"},
		{"missing reference", "/api/reports/monthly", "Invalid report request"},
		{"range end before start", "/api/reports/rows?period=dateRange&start=2024-03-10&end=2024-03-01", "Invalid report request"},
		{"bad groupBy", "/api/reports/rows?date=2024-03-15&groupBy=supplier", "Invalid report request"},
		{"bad filter field", "/api/reports/rows?date=2024-03-15&filter=" + url.QueryEscape(`{"op":"eq","field":"price","values":["1"]}`), "Invalid report request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestExportReport(t *testing.T) {
	s := newTestServer(t)
	s.load("bistro-march")

	rec := s.do(http.MethodGet, "/api/reports/items.xlsx?date=2024-03-15", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "costing-selectedMonth-2024-03-15.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

// =============================================================================
// CATALOG, HEALTH, SCENARIOS
// =============================================================================

func TestListOperations(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/operations", "")

	require.Equal(t, http.StatusOK, rec.Code)
	ops := decode[[]OperationDTO](t, rec)
	require.Len(t, ops, 10)
	assert.Equal(t, OperationDTO{ID: 1, Type: string(costing.OpAddStock), Name: "Purchase", Code: costing.CodePurchase}, ops[0])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	before := decode[HealthDTO](t, s.do(http.MethodGet, "/healthz", ""))
	assert.Equal(t, "ok", before.Status)

	s.load("voided-entries")

	after := decode[HealthDTO](t, s.do(http.MethodGet, "/healthz", ""))
	assert.Greater(t, after.Revision, before.Revision, "writes bump the revision")
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	// Generated when absent
	rec := s.do(http.MethodGet, "/healthz", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	// Echoed when given
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestScenarioEndpoints(t *testing.T) {
	s := newTestServer(t)

	// Listing
	list := decode[[]ScenarioDTO](t, s.do(http.MethodGet, "/api/scenarios/", ""))
	assert.Len(t, list, len(scenarios))

	// Nothing loaded yet
	rec := s.do(http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	// Unknown scenario
	rec = s.do(http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed body
	rec = s.do(http.MethodPost, "/api/scenarios/load", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Load, then current
	rec = s.do(http.MethodPost, "/api/scenarios/load", `{"scenario_id": "bistro-march"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	loaded := decode[LoadScenarioResponse](t, rec)
	assert.Equal(t, 15, loaded.Entries)
	current := decode[ScenarioDTO](t, s.do(http.MethodGet, "/api/scenarios/current", ""))
	assert.Equal(t, "bistro-march", current.ID)

	// Reset empties reports
	rec = s.do(http.MethodPost, "/api/scenarios/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[costing.ReportPage](t, s.do(http.MethodGet, "/api/reports/rows?date=2024-03-15", ""))
	assert.Zero(t, page.TotalCount)
	rec = s.do(http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}
