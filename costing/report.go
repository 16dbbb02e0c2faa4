/*
report.go - The Reporter, single entry point of the engine

PURPOSE:
  Wires PeriodResolver, RevenueGroupResolver, AggregationEngine,
  RollupComposer and Paginate behind three calls:

    Rows(req)     one window, paged, with revenue and cost percentages
    Monthly(req)  selected / previous / whole month and cost of sales
    Totals(req)   subtotal (filtered) and grand total (unfiltered)

REQUEST FLOW:
  1. Validate. A malformed period fails with InvalidPeriodError before any
     store read. A malformed filter or grouping fails as a QueryError.
  2. Read the catalog and resolve revenue groups for the reference month.
  3. Resolve the window(s) and aggregate.
  4. Compose rollups, then slice the page.

CONSISTENCY:
  Reports read without locks. A report running beside a writer may see a
  mix of pre- and post-write state; reporting is eventually consistent.
  Cached row lists are keyed by the store revision, so a write makes every
  older entry unreachable and pages of the same revision agree.

USAGE:
  r := costing.NewReporter(store, costing.DefaultOperations())
  page, err := r.Rows(ctx, costing.ReportRequest{
      Period:  costing.SelectedMonth(costing.NewTimePoint(2024, time.March, 1)),
      GroupBy: costing.GroupByItem,
      Page:    1,
  })

SEE ALSO:
  - aggregate.go: The scan
  - rollup.go: The formulas
  - cache.go: Cache keys
*/
package costing

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	ReportRows    = "rows"
	ReportMonthly = "monthly"
	ReportTotals  = "totals"
)

// ReportRequest is the parametrized query shared by every report.
type ReportRequest struct {
	Period   PeriodSpec `json:"period"`
	Filter   Filter     `json:"filter"`
	GroupBy  GroupBy    `json:"groupBy"`
	Page     int        `json:"page,omitempty"`
	PageSize int        `json:"pageSize,omitempty"`
}

func (req ReportRequest) normalized() ReportRequest {
	if req.GroupBy == "" {
		req.GroupBy = GroupByItem
	}
	if req.Filter.Op == "" {
		req.Filter = All()
	}
	return req
}

type ReportPage = Page[ReportRow]

type TotalsReport struct {
	ReferenceDate TimePoint `json:"referenceDate"`
	Subtotal      Rollup    `json:"subtotal"`
	GrandTotal    Rollup    `json:"grandTotal"`
}

// =============================================================================
// REPORTER
// =============================================================================

type Reporter struct {
	Store           Store
	Operations      *OperationRegistry
	RevenueMode     RevenueResolution
	Cache           ReportCache
	Logger          logrus.FieldLogger
	SlowThreshold   time.Duration
	DefaultPageSize int
}

// NewReporter returns a Reporter with legacy revenue resolution, no cache
// and a silent logger. A nil registry means the default operations.
func NewReporter(store Store, ops *OperationRegistry) *Reporter {
	if ops == nil {
		ops = DefaultOperations()
	}
	return &Reporter{
		Store:           store,
		Operations:      ops,
		RevenueMode:     ResolveLatest,
		Cache:           NopCache{},
		Logger:          discardLogger(),
		DefaultPageSize: DefaultPageSize,
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (r *Reporter) log() logrus.FieldLogger {
	if r.Logger == nil {
		return discardLogger()
	}
	return r.Logger
}

func (r *Reporter) resolver() *PeriodResolver { return &PeriodResolver{Store: r.Store} }

func (r *Reporter) engine() *AggregationEngine {
	return &AggregationEngine{Store: r.Store, Operations: r.Operations}
}

func (r *Reporter) composer() *RollupComposer { return &RollupComposer{Operations: r.Operations} }

// =============================================================================
// REPORTS
// =============================================================================

// Rows returns one page of single-window rows.
func (r *Reporter) Rows(ctx context.Context, req ReportRequest) (ReportPage, error) {
	started := time.Now()
	req = req.normalized()

	rows, err := r.rowList(ctx, req)
	if err != nil {
		return ReportPage{}, err
	}

	page := Paginate(rows, req.Page, req.PageSize, r.DefaultPageSize)
	r.logSlow(ReportRows, req, started, len(rows))
	return page, nil
}

// AllRows returns every row of Rows without paging.
func (r *Reporter) AllRows(ctx context.Context, req ReportRequest) ([]ReportRow, error) {
	started := time.Now()
	req = req.normalized()

	rows, err := r.rowList(ctx, req)
	if err != nil {
		return nil, err
	}
	r.logSlow(ReportRows, req, started, len(rows))
	return rows, nil
}

func (r *Reporter) rowList(ctx context.Context, req ReportRequest) ([]ReportRow, error) {
	if err := r.check(ReportRows, req); err != nil {
		return nil, err
	}

	var rows []ReportRow
	key, hit := r.cached(ctx, ReportRows, req, &rows)
	if hit {
		return rows, nil
	}

	catalog, revenue, err := r.load(ctx, req.Period.ReferenceDate())
	if err != nil {
		return nil, queryFailed(ReportRows, err)
	}
	period, err := r.resolver().Resolve(ctx, req.Period)
	if err != nil {
		return nil, queryFailed(ReportRows, err)
	}
	aggs, err := r.engine().Aggregate(ctx, AggregateInput{
		Period:  period,
		Filter:  req.Filter,
		GroupBy: req.GroupBy,
		Catalog: catalog,
		Revenue: revenue,
	})
	if err != nil {
		return nil, queryFailed(ReportRows, err)
	}

	rows = r.composer().ComposeRows(aggs, revenue)
	r.remember(ctx, key, rows)
	return rows, nil
}

// Monthly returns one row per entity with the three windows of the
// reference month and its cost of sales.
func (r *Reporter) Monthly(ctx context.Context, req ReportRequest) ([]MonthlyRow, error) {
	started := time.Now()
	req = req.normalized()
	if err := r.check(ReportMonthly, req); err != nil {
		return nil, err
	}

	var rows []MonthlyRow
	key, hit := r.cached(ctx, ReportMonthly, req, &rows)
	if !hit {
		ref := req.Period.ReferenceDate()
		catalog, revenue, err := r.load(ctx, ref)
		if err != nil {
			return nil, queryFailed(ReportMonthly, err)
		}
		rows, err = r.monthlyRows(ctx, ref, req.Filter, req.GroupBy, catalog, revenue)
		if err != nil {
			return nil, queryFailed(ReportMonthly, err)
		}
		r.remember(ctx, key, rows)
	}

	r.logSlow(ReportMonthly, req, started, len(rows))
	return rows, nil
}

// Totals re-sums item-level monthly rows twice: once restricted to the
// filter, once over everything.
func (r *Reporter) Totals(ctx context.Context, req ReportRequest) (TotalsReport, error) {
	started := time.Now()
	req = req.normalized()
	if err := r.check(ReportTotals, req); err != nil {
		return TotalsReport{}, err
	}

	var out TotalsReport
	key, hit := r.cached(ctx, ReportTotals, req, &out)
	if !hit {
		ref := req.Period.ReferenceDate()
		catalog, revenue, err := r.load(ctx, ref)
		if err != nil {
			return TotalsReport{}, queryFailed(ReportTotals, err)
		}
		rows, err := r.monthlyRows(ctx, ref, All(), GroupByItem, catalog, revenue)
		if err != nil {
			return TotalsReport{}, queryFailed(ReportTotals, err)
		}

		c := r.composer()
		out = TotalsReport{
			ReferenceDate: ref,
			Subtotal:      c.Rollup(rows, req.Filter, revenue),
			GrandTotal:    c.Rollup(rows, All(), revenue),
		}
		r.remember(ctx, key, out)
	}

	r.logSlow(ReportTotals, req, started, out.GrandTotal.RowCount)
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (r *Reporter) check(report string, req ReportRequest) error {
	if r.Store == nil {
		return queryFailed(report, ErrStoreRequired)
	}
	if err := req.Period.Validate(); err != nil {
		return err
	}
	if err := req.Filter.Validate(); err != nil {
		return queryFailed(report, err)
	}
	if !req.GroupBy.Valid() {
		return queryFailed(report, fmt.Errorf("%w: %q", ErrInvalidGroupBy, req.GroupBy))
	}
	return nil
}

// load reads the per-request snapshot every aggregation of a report shares.
func (r *Reporter) load(ctx context.Context, ref TimePoint) (*Catalog, *RevenueIndex, error) {
	catalog, err := LoadCatalog(ctx, r.Store)
	if err != nil {
		return nil, nil, err
	}
	revenue, err := (&RevenueGroupResolver{Store: r.Store, Mode: r.RevenueMode}).Load(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	return catalog, revenue, nil
}

func (r *Reporter) monthlyRows(ctx context.Context, ref TimePoint, f Filter, g GroupBy, catalog *Catalog, revenue *RevenueIndex) ([]MonthlyRow, error) {
	specs := [3]PeriodSpec{SelectedMonth(ref), PreviousMonth(ref), WholeMonthToDate(ref)}
	var windows [3][]EntityAggregate
	for i, spec := range specs {
		period, err := r.resolver().Resolve(ctx, spec)
		if err != nil {
			return nil, err
		}
		windows[i], err = r.engine().Aggregate(ctx, AggregateInput{
			Period:  period,
			Filter:  f,
			GroupBy: g,
			Catalog: catalog,
			Revenue: revenue,
		})
		if err != nil {
			return nil, err
		}
	}
	return r.composer().ComposeMonthly(windows[0], windows[1], windows[2], revenue), nil
}

// cached looks a report up. Cache and revision failures are logged and
// treated as misses; they never fail a report.
func (r *Reporter) cached(ctx context.Context, report string, req ReportRequest, dest any) (string, bool) {
	if r.Cache == nil {
		return "", false
	}
	if _, nop := r.Cache.(NopCache); nop {
		return "", false
	}
	rs, ok := r.Store.(Revisioner)
	if !ok {
		return "", false
	}

	logger := r.log().WithField("report", report)
	rev, err := rs.Revision(ctx)
	if err != nil {
		logger.WithError(err).Warn("store revision unavailable, cache bypassed")
		return "", false
	}
	key, err := CacheKey(report, r.RevenueMode, rev, req)
	if err != nil {
		logger.WithError(err).Warn("cache key failed")
		return "", false
	}
	hit, err := r.Cache.Get(ctx, key, dest)
	if err != nil {
		logger.WithError(err).WithField("key", key).Warn("cache get failed")
		return key, false
	}
	return key, hit
}

func (r *Reporter) remember(ctx context.Context, key string, value any) {
	if key == "" {
		return
	}
	if err := r.Cache.Set(ctx, key, value); err != nil {
		r.log().WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

func (r *Reporter) logSlow(report string, req ReportRequest, started time.Time, rows int) {
	elapsed := time.Since(started)
	if r.SlowThreshold <= 0 || elapsed < r.SlowThreshold {
		return
	}
	r.log().WithFields(logrus.Fields{
		"report":    report,
		"period":    req.Period.Kind,
		"reference": req.Period.ReferenceDate().String(),
		"filter":    req.Filter.String(),
		"groupBy":   req.GroupBy,
		"rows":      rows,
		"ms":        elapsed.Milliseconds(),
	}).Warn("slow report")
}
