// Package cachedkv puts a read-through memory cache in front of a kv.Store.
package cachedkv

import "github.com/3vilTid/Catalogue-Web-App/internal/kv"

// Backend defines the interface for cache storage backends.
// Implementations handle storage and eviction strategy.
type Backend interface {
	// Get retrieves a cached record. Returns false if not cached.
	Get(key string) (kv.Record, bool)

	// Set stores a record in the cache.
	Set(rec kv.Record)

	// Remove evicts key.
	Remove(key string)

	// Purge evicts everything.
	Purge()

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int // Current number of entries
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
