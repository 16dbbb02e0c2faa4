/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures the API adds around the engine's own types.
  Report payloads (ReportPage, TotalsReport, MonthlyRow) are the engine's
  types serialized as-is; only envelopes and admin payloads live here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

REPORT QUERY PARAMETERS:
  period          selectedMonth (default), previousMonth, wholeMonthToDate,
                  monthToDate, dateRange
  date            reference date, YYYY-MM-DD
  start, end      explicit range, YYYY-MM-DD
  groupBy         item (default) or category
  categoryId      } flat scope filter, every given id must match
  itemId          }
  revenueGroupId  }
  filter          structured filter as JSON, ANDed with the flat scope
  page, pageSize  1-based paging (rows report only)

SEE ALSO:
  - handlers.go: Uses these types
  - costing/report.go: Report payload types
*/
package api

import (
	"github.com/warp/costing-engine/costing"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MonthlyReportDTO wraps the monthly rows with their reference date.
type MonthlyReportDTO struct {
	ReferenceDate costing.TimePoint    `json:"referenceDate"`
	Count         int                  `json:"count"`
	Rows          []costing.MonthlyRow `json:"rows"`
}

// OperationDTO represents a catalog operation in API responses.
type OperationDTO struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// HealthDTO is returned by /healthz.
type HealthDTO struct {
	Status   string `json:"status"`
	Revision int64  `json:"revision"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ReferenceDate string `json:"reference_date"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse reports what a scenario seeded.
type LoadScenarioResponse struct {
	Scenario ScenarioDTO `json:"scenario"`
	Items    int         `json:"items"`
	Entries  int         `json:"entries"`
}
