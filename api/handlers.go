/*
handlers.go - HTTP API handlers for the costing engine

PURPOSE:
  Exposes the Reporter over REST. Handles HTTP request/response, query
  parsing and JSON serialization, and delegates every figure to the engine.
  The API never computes a number itself.

ENDPOINTS:
  Reports:
    GET    /api/reports/rows        Paged rows for one window
    GET    /api/reports/monthly     Selected/previous/whole month and cost of sales
    GET    /api/reports/totals      Subtotal and grand total
    GET    /api/reports/items.xlsx  Rows and totals as a workbook

  Catalog:
    GET    /api/operations          Operation catalog
    GET    /healthz                 Liveness and store revision

  Scenarios:
    GET    /api/scenarios           List demo scenarios
    GET    /api/scenarios/current   Currently loaded scenario
    POST   /api/scenarios/load      Load a demo scenario
    POST   /api/scenarios/reset     Clear the store

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Unparseable parameters, invalid period, filter or grouping
  - 404: Unknown scenario
  - 503: Store unreachable (health only)
  - 500: Store failures and schema mismatches (logged)

SEE ALSO:
  - dto.go: Query parameters and envelopes
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/warp/costing-engine/config"
	"github.com/warp/costing-engine/costing"
	"github.com/warp/costing-engine/export"
	"github.com/warp/costing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Reporter *costing.Reporter
	Logger   logrus.FieldLogger

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler around a store and its reporter.
func NewHandler(store *sqlite.Store, reporter *costing.Reporter, logger logrus.FieldLogger) *Handler {
	return &Handler{
		Store:    store,
		Reporter: reporter,
		Logger:   logger,
	}
}

func (h *Handler) log() logrus.FieldLogger {
	if h.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return h.Logger
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetReportRows returns one page of rows.
func (h *Handler) GetReportRows(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	page, err := h.Reporter.Rows(r.Context(), req)
	if err != nil {
		h.writeReportError(w, "GetReportRows", req, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetMonthlyReport returns every entity with its three monthly windows.
func (h *Handler) GetMonthlyReport(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	rows, err := h.Reporter.Monthly(r.Context(), req)
	if err != nil {
		h.writeReportError(w, "GetMonthlyReport", req, err)
		return
	}
	writeJSON(w, http.StatusOK, MonthlyReportDTO{
		ReferenceDate: req.Period.ReferenceDate(),
		Count:         len(rows),
		Rows:          rows,
	})
}

// GetTotals returns the subtotal and grand total.
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	totals, err := h.Reporter.Totals(r.Context(), req)
	if err != nil {
		h.writeReportError(w, "GetTotals", req, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// ExportReport streams rows and totals as an xlsx workbook.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	req, err := parseReportRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	rows, err := h.Reporter.AllRows(r.Context(), req)
	if err != nil {
		h.writeReportError(w, "ExportReport", req, err)
		return
	}
	totals, err := h.Reporter.Totals(r.Context(), req)
	if err != nil {
		h.writeReportError(w, "ExportReport", req, err)
		return
	}

	// Render fully before writing headers so a failure can still be a 500.
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, h.Reporter.Operations, rows, &totals); err != nil {
		config.LogError(h.log(), "api", "ExportReport", "xlsx", nil, err)
		writeError(w, http.StatusInternalServerError, "Failed to render workbook", err)
		return
	}

	filename := fmt.Sprintf("costing-%s-%s.xlsx", req.Period.Kind, req.Period.ReferenceDate())
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// CATALOG & HEALTH
// =============================================================================

// ListOperations returns the operation catalog in id order.
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops := h.Reporter.Operations.All()
	dtos := make([]OperationDTO, len(ops))
	for i, op := range ops {
		dtos[i] = OperationDTO{
			ID:   int(op.ID),
			Type: string(op.Type),
			Name: op.Name,
			Code: op.Code,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports liveness and the current store revision.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rev, err := h.Store.Revision(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", Revision: rev})
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

// parseReportRequest reads a ReportRequest from query parameters. Only
// syntax is checked here; the Reporter validates semantics.
func parseReportRequest(r *http.Request) (costing.ReportRequest, error) {
	q := r.URL.Query()
	var req costing.ReportRequest

	req.Period.Kind = costing.PeriodKind(q.Get("period"))
	if req.Period.Kind == "" {
		req.Period.Kind = costing.PeriodSelectedMonth
	}

	dates := []struct {
		param string
		dest  *costing.TimePoint
	}{
		{"date", &req.Period.Reference},
		{"start", &req.Period.Start},
		{"end", &req.Period.End},
	}
	for _, d := range dates {
		raw := q.Get(d.param)
		if raw == "" {
			continue
		}
		tp, err := costing.ParseDate(raw)
		if err != nil {
			return req, fmt.Errorf("%s: %w", d.param, err)
		}
		*d.dest = tp
	}

	req.GroupBy = costing.GroupBy(q.Get("groupBy"))

	req.Filter = costing.ScopeFilter(q.Get("categoryId"), q.Get("itemId"), q.Get("revenueGroupId"))
	if raw := q.Get("filter"); raw != "" {
		var f costing.Filter
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return req, fmt.Errorf("filter: %w", err)
		}
		if req.Filter.IsAll() {
			req.Filter = f
		} else {
			req.Filter = costing.And(req.Filter, f)
		}
	}

	var err error
	if req.Page, err = intParam(q.Get("page")); err != nil {
		return req, fmt.Errorf("page: %w", err)
	}
	if req.PageSize, err = intParam(q.Get("pageSize")); err != nil {
		return req, fmt.Errorf("pageSize: %w", err)
	}
	return req, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeReportError maps engine errors to status codes. Server-side
// failures are logged; caller mistakes are not.
func (h *Handler) writeReportError(w http.ResponseWriter, funcName string, req costing.ReportRequest, err error) {
	if costing.IsClientError(err) {
		writeError(w, http.StatusBadRequest, "Invalid report request", err)
		return
	}
	config.LogError(h.log(), "api", funcName, "report", req, err)
	writeError(w, http.StatusInternalServerError, "Failed to build report", err)
}
