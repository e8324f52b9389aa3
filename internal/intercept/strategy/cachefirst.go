package strategy

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// CacheFirst answers from the Lookup partitions when it can and otherwise
// fetches, keeping 200 responses in Runtime. When the network fails the
// cached Index page is served, or OfflinePage if there is none.
type CacheFirst struct {
	Env     *Env
	Runtime string
	Lookup  []string

	// Index is the URL of the cached shell page used as the offline
	// fallback, e.g. "https://app.example.com/index.html".
	Index string
}

// Compile-time check that CacheFirst implements Strategy.
var _ Strategy = (*CacheFirst)(nil)

func (c *CacheFirst) Kind() Kind { return KindCacheFirst }

// RoundTrip never returns an error; transport failures become the cached
// shell page or OfflinePage.
func (c *CacheFirst) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if entry, err := partition.Match(ctx, c.Env.Storage, req, c.Lookup...); err == nil {
		c.Env.Stats.IncCounter(stats.MetricPartitionHits, 1)
		c.Env.Logger.Debug("serving from cache", zap.String("url", req.URL.String()))
		return entry.Response(req), nil
	}
	c.Env.Stats.IncCounter(stats.MetricPartitionMisses, 1)

	resp, err := c.Env.fetch(req)
	if err != nil {
		c.Env.Logger.Debug("fetch failed", zap.String("url", req.URL.String()), zap.Error(err))
		return c.offline(req), nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	entry, err := partition.EntryFromResponse(req, resp, c.Env.Now())
	if err != nil {
		return c.offline(req), nil
	}
	c.Env.store(req, c.Runtime, entry)
	return resp, nil
}

func (c *CacheFirst) offline(req *http.Request) *http.Response {
	c.Env.Stats.IncCounter(stats.MetricOfflineResponses, 1)
	if c.Index == "" {
		return OfflinePage(req)
	}
	index, err := http.NewRequestWithContext(req.Context(), http.MethodGet, c.Index, nil)
	if err != nil {
		return OfflinePage(req)
	}
	entry, err := partition.Match(req.Context(), c.Env.Storage, index, c.Lookup...)
	if err != nil {
		return OfflinePage(req)
	}
	return entry.Response(req)
}
