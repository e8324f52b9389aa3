package strategy

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// StaleWhileRevalidate answers from Partition immediately when it holds a
// match and refreshes the entry in the background. Without a match it waits
// for the network and populates Partition from a successful response.
type StaleWhileRevalidate struct {
	Env       *Env
	Partition string
}

// Compile-time check that StaleWhileRevalidate implements Strategy.
var _ Strategy = (*StaleWhileRevalidate)(nil)

func (s *StaleWhileRevalidate) Kind() Kind { return KindStaleWhileRevalidate }

// RoundTrip returns an error only when there is no cached entry and the
// network fails.
func (s *StaleWhileRevalidate) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := s.Env.Logger.With(zap.String("url", req.URL.String()))

	cache, err := s.Env.Storage.Open(ctx, s.Partition)
	if err != nil {
		log.Warn("opening partition failed", zap.String("partition", s.Partition), zap.Error(err))
		return s.Env.Next.RoundTrip(req)
	}

	cached, err := cache.Match(ctx, req)
	switch {
	case err == nil:
		s.Env.Stats.IncCounter(stats.MetricPartitionHits, 1)
		s.revalidate(req, cache)
		return cached.Response(req), nil
	case !errors.Is(err, partition.ErrNotFound):
		log.Warn("cache lookup failed", zap.Error(err))
	}
	s.Env.Stats.IncCounter(stats.MetricPartitionMisses, 1)

	resp, err := s.Env.fetch(req)
	if err != nil {
		return nil, fault.Network("fetching "+req.URL.Redacted(), err)
	}
	if !ok(resp) {
		return resp, nil
	}

	entry, err := partition.EntryFromResponse(req, resp, s.Env.Now())
	if err != nil {
		return nil, fault.Network("reading "+req.URL.Redacted(), err)
	}
	s.Env.store(req, s.Partition, entry)
	return resp, nil
}

// revalidate refetches req in the background and overwrites the cached
// entry only when the fetch succeeds.
func (s *StaleWhileRevalidate) revalidate(req *http.Request, cache partition.Cache) {
	s.Env.Detach(req.Context(), func(ctx context.Context) {
		resp, err := s.Env.fetch(req.Clone(ctx))
		if err != nil {
			s.Env.Logger.Debug("revalidation failed", zap.String("url", req.URL.String()), zap.Error(err))
			return
		}
		if !ok(resp) {
			resp.Body.Close()
			return
		}

		entry, err := partition.EntryFromResponse(req, resp, s.Env.Now())
		if err == nil {
			err = cache.Put(ctx, req, entry)
		}
		if err != nil {
			s.Env.Stats.IncCounter(stats.MetricBackgroundErrors, 1)
			s.Env.Logger.Warn("refreshing cached image failed", zap.String("url", req.URL.String()), zap.Error(err))
		}
	})
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
