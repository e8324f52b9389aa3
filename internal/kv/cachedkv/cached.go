package cachedkv

import (
	"context"
	"sync"

	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
)

// Compile-time check that Store implements kv.Store.
var _ kv.Store = (*Store)(nil)

// Store wraps another Store with caching. Writes go to the underlying store
// first and reach the cache only when they succeed.
type Store struct {
	underlying kv.Store
	backend    Backend

	// mu orders cache updates. gen counts writes; a read-through only
	// populates the cache if no write landed while it was reading.
	mu  sync.Mutex
	gen uint64
}

// New creates a new cached store wrapping the given store.
func New(underlying kv.Store, backend Backend) *Store {
	return &Store{
		underlying: underlying,
		backend:    backend,
	}
}

// Get reads a record, checking the cache first.
func (s *Store) Get(ctx context.Context, key string) (kv.Record, error) {
	if rec, ok := s.backend.Get(key); ok {
		return rec, nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	rec, err := s.underlying.Get(ctx, key)
	if err != nil {
		return kv.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.backend.Set(rec)
	}
	return rec, nil
}

// Put writes through to the underlying store.
func (s *Store) Put(ctx context.Context, rec kv.Record) error {
	err := s.underlying.Put(ctx, rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if err != nil {
		// The stored value is unknown now; drop any cached copy.
		s.backend.Remove(rec.Key)
		return err
	}
	s.backend.Set(rec)
	return nil
}

// Delete removes key from both layers.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.underlying.Delete(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.backend.Remove(key)
	return err
}

// Clear empties both layers.
func (s *Store) Clear(ctx context.Context) error {
	err := s.underlying.Clear(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.backend.Purge()
	return err
}

// Keys lists keys of the underlying store.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return s.underlying.Keys(ctx)
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.underlying.Close()
}

// Stats returns cache statistics.
func (s *Store) Stats() Stats {
	return s.backend.Stats()
}
