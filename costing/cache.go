package costing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// REPORT CACHE - Optional memoization of full row lists
// =============================================================================

// ReportCache stores computed row lists keyed by request and store
// revision. Get reports false on a miss. Implementations must treat a
// missing backend as a permanent miss, never as an error.
type ReportCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, any) error         { return nil }

// cacheNamespace scopes the name-based UUIDs used as key digests.
var cacheNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("costing-engine/report-cache"))

// CacheKey names one report result. Paging fields are excluded so every
// page of a request shares the cached row list; the revision is included so
// no cached list outlives a write. The revenue mode changes group
// attribution, so reporters in different modes never share entries.
func CacheKey(report string, mode RevenueResolution, revision int64, req ReportRequest) (string, error) {
	if mode == "" {
		mode = ResolveLatest
	}
	req.Page, req.PageSize = 0, 0
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	digest := uuid.NewSHA1(cacheNamespace, payload)
	return fmt.Sprintf("costing:%s:%s:r%d:%s", report, mode, revision, digest), nil
}
