// Package memory implements an in-memory cache backend.
package memory

import (
	"sync/atomic"

	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv/cachestrategy"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Compile-time check that Backend implements cachedkv.Backend.
var _ cachedkv.Backend = (*Backend)(nil)

// Backend is a thread-safe in-memory cache backend.
type Backend struct {
	strategy  cachestrategy.Strategy
	collector stats.Collector

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new memory backend with the given eviction strategy.
// The collector is optional; if nil, a no-op collector is used.
func New(strategy cachestrategy.Strategy, collector stats.Collector) *Backend {
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Backend{
		strategy:  strategy,
		collector: collector,
	}
}

// Get retrieves a record from the cache.
func (b *Backend) Get(key string) (kv.Record, bool) {
	val, ok := b.strategy.Get(key)
	if ok {
		b.hits.Add(1)
		b.collector.IncCounter(stats.MetricRecordCacheHits, 1)
		return val, true
	}
	b.misses.Add(1)
	b.collector.IncCounter(stats.MetricRecordCacheMisses, 1)
	return kv.Record{}, false
}

// Set stores a record in the cache.
func (b *Backend) Set(rec kv.Record) {
	b.strategy.Add(rec.Key, rec)
	b.collector.SetGauge(stats.MetricRecordCacheSize, int64(b.strategy.Len()))
}

// Remove evicts key.
func (b *Backend) Remove(key string) {
	b.strategy.Remove(key)
	b.collector.SetGauge(stats.MetricRecordCacheSize, int64(b.strategy.Len()))
}

// Purge evicts everything.
func (b *Backend) Purge() {
	b.strategy.Purge()
	b.collector.SetGauge(stats.MetricRecordCacheSize, 0)
}

// Stats returns current cache statistics.
func (b *Backend) Stats() cachedkv.Stats {
	return cachedkv.Stats{
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
		Size:   b.strategy.Len(),
	}
}
