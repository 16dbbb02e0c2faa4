/*
scheduler.go - Report cache warmer

PURPOSE:
  Periodically rebuilds the reports the costing UI opens first, so the
  first request after a ledger write is served from the cache.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Warms the selected-month rows and totals for today's date
  - Skips the run when the store revision has not moved
  - Failures are logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 minutes)
  - Enabled: Whether the warmer is active (default: true)

USAGE:
  warmer := NewCacheWarmer(store, reporter, logger)
  warmer.Start()
  // ... later
  warmer.Stop()

SEE ALSO:
  - costing/report.go: Reporter caching
  - cmd/server/main.go: Started only when a cache is configured
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/costing-engine/costing"
	"github.com/warp/costing-engine/store/sqlite"
)

// CacheWarmer precomputes the default reports after ledger writes.
type CacheWarmer struct {
	Store         *sqlite.Store
	Reporter      *costing.Reporter
	Logger        logrus.FieldLogger
	CheckInterval time.Duration
	Enabled       bool

	// today is swapped in tests.
	today func() costing.TimePoint

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	// runMu guards the fields below; Stop holds mu while waiting for run.
	runMu        sync.Mutex
	lastRevision int64
	warmed       bool
}

// NewCacheWarmer creates a new warmer.
func NewCacheWarmer(store *sqlite.Store, reporter *costing.Reporter, logger logrus.FieldLogger) *CacheWarmer {
	return &CacheWarmer{
		Store:         store,
		Reporter:      reporter,
		Logger:        logger,
		CheckInterval: 5 * time.Minute,
		Enabled:       true,
		today:         costing.Today,
		stop:          make(chan bool),
	}
}

// Start begins the warmer.
func (cw *CacheWarmer) Start() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.Enabled {
		cw.Logger.Info("cache warmer disabled, not starting")
		return
	}

	cw.ticker = time.NewTicker(cw.CheckInterval)
	cw.wg.Add(1)

	go cw.run()

	cw.Logger.WithField("interval", cw.CheckInterval.String()).Info("cache warmer started")
}

// Stop stops the warmer and waits for an in-flight run.
func (cw *CacheWarmer) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.ticker != nil {
		cw.ticker.Stop()
		close(cw.stop)
		cw.wg.Wait()
		cw.ticker = nil
		cw.Logger.Info("cache warmer stopped")
	}
}

func (cw *CacheWarmer) run() {
	defer cw.wg.Done()

	// Run immediately on start
	cw.RunNow(context.Background())

	for {
		select {
		case <-cw.ticker.C:
			cw.RunNow(context.Background())
		case <-cw.stop:
			return
		}
	}
}

// RunNow warms the cache once. It returns false when the store has not
// changed since the last successful run or when a report failed.
func (cw *CacheWarmer) RunNow(ctx context.Context) bool {
	cw.runMu.Lock()
	defer cw.runMu.Unlock()

	rev, err := cw.Store.Revision(ctx)
	if err != nil {
		cw.Logger.WithError(err).Warn("cache warmer could not read revision")
		return false
	}
	if cw.warmed && rev == cw.lastRevision {
		return false
	}

	ref := cw.today()
	req := costing.ReportRequest{Period: costing.SelectedMonth(ref)}
	started := time.Now()

	if _, err := cw.Reporter.Rows(ctx, req); err != nil {
		cw.Logger.WithError(err).WithField("report", "rows").Warn("cache warm failed")
		return false
	}
	if _, err := cw.Reporter.Totals(ctx, req); err != nil {
		cw.Logger.WithError(err).WithField("report", "totals").Warn("cache warm failed")
		return false
	}

	cw.lastRevision = rev
	cw.warmed = true
	cw.Logger.WithFields(logrus.Fields{
		"revision":   rev,
		"reference":  ref.String(),
		"latency_ms": time.Since(started).Milliseconds(),
	}).Debug("cache warmed")
	return true
}
