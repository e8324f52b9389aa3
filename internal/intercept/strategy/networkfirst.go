package strategy

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// NetworkFirst fetches from the network and keeps a copy of every 200
// response in the Runtime partition. When the network fails it answers from
// the Fallback partitions, and failing that with Offline.
type NetworkFirst struct {
	Env      *Env
	Runtime  string
	Fallback []string
}

// Compile-time check that NetworkFirst implements Strategy.
var _ Strategy = (*NetworkFirst)(nil)

func (n *NetworkFirst) Kind() Kind { return KindNetworkFirst }

// RoundTrip never returns an error; transport failures become a cached or
// synthesized response.
func (n *NetworkFirst) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := n.Env.fetch(req)
	if err != nil {
		return n.fallback(req, err), nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	entry, err := partition.EntryFromResponse(req, resp, n.Env.Now())
	if err != nil {
		n.Env.Stats.IncCounter(stats.MetricNetworkFailures, 1)
		return n.fallback(req, err), nil
	}
	n.Env.store(req, n.Runtime, entry)
	return resp, nil
}

func (n *NetworkFirst) fallback(req *http.Request, cause error) *http.Response {
	log := n.Env.Logger.With(zap.String("url", req.URL.String()))

	entry, err := partition.Match(req.Context(), n.Env.Storage, req, n.Fallback...)
	if err == nil {
		n.Env.Stats.IncCounter(stats.MetricPartitionHits, 1)
		log.Debug("serving from cache", zap.NamedError("fetchError", cause))
		return entry.Response(req)
	}
	if !errors.Is(err, partition.ErrNotFound) {
		log.Warn("cache lookup failed", zap.Error(err))
	}

	n.Env.Stats.IncCounter(stats.MetricPartitionMisses, 1)
	n.Env.Stats.IncCounter(stats.MetricOfflineResponses, 1)
	log.Debug("offline and not cached", zap.NamedError("fetchError", cause))
	return Offline(req)
}
