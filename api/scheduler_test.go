package api

import (
	"context"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/costing-engine/cache"
	"github.com/warp/costing-engine/costing"
)

func TestCacheWarmer_RunNow(t *testing.T) {
	// GIVEN: A cached reporter over the bistro scenario
	h := setupTestHandler(t)
	ctx := context.Background()
	memory := cache.NewMemory(time.Minute)
	h.Reporter.Cache = memory
	scenario, _ := findScenario("bistro-march")
	_, err := h.loadScenario(ctx, scenario)
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	warmer := NewCacheWarmer(h.Store, h.Reporter, logger)
	warmer.today = func() costing.TimePoint { return date("2024-03-15") }

	// WHEN: Warming twice without writes in between
	assert.True(t, warmer.RunNow(ctx))
	assert.Equal(t, 2, memory.Len(), "rows and totals")
	assert.False(t, warmer.RunNow(ctx), "nothing changed")

	// THEN: A ledger write makes the next run warm again
	require.NoError(t, h.Store.SetVoided(ctx, "mar-tomato-2", true))
	assert.True(t, warmer.RunNow(ctx))
	assert.Empty(t, hook.AllEntries(), "debug lines are below the null logger's level")
}

func TestCacheWarmer_StartStop(t *testing.T) {
	h := setupTestHandler(t)
	logger, hook := logtest.NewNullLogger()

	warmer := NewCacheWarmer(h.Store, h.Reporter, logger)
	warmer.CheckInterval = time.Hour
	warmer.Start()
	warmer.Stop()
	warmer.Stop()

	entries := hook.AllEntries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "cache warmer started", entries[0].Message)
	assert.Equal(t, "cache warmer stopped", hook.LastEntry().Message)
}

func TestCacheWarmer_Disabled(t *testing.T) {
	h := setupTestHandler(t)
	logger, hook := logtest.NewNullLogger()

	warmer := NewCacheWarmer(h.Store, h.Reporter, logger)
	warmer.Enabled = false
	warmer.Start()
	warmer.Stop()

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "cache warmer disabled, not starting", hook.LastEntry().Message)
}

func TestCacheWarmer_ConcurrentRunNow(t *testing.T) {
	// GIVEN: A cached reporter over the bistro scenario
	h := setupTestHandler(t)
	ctx := context.Background()
	h.Reporter.Cache = cache.NewMemory(time.Minute)
	scenario, _ := findScenario("bistro-march")
	_, err := h.loadScenario(ctx, scenario)
	require.NoError(t, err)

	logger, _ := logtest.NewNullLogger()
	warmer := NewCacheWarmer(h.Store, h.Reporter, logger)
	warmer.today = func() costing.TimePoint { return date("2024-03-15") }

	// WHEN: Several callers trigger a run at once
	const callers = 8
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- warmer.RunNow(ctx)
		}()
	}
	wg.Wait()
	close(results)

	// THEN: Runs are serialized and only the first one warms
	warmedRuns := 0
	for warmed := range results {
		if warmed {
			warmedRuns++
		}
	}
	assert.Equal(t, 1, warmedRuns)
}
