// Package memkv provides an in-memory record store for tests and ephemeral
// clients.
package memkv

import (
	"context"
	"sync"

	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
)

// Compile-time check that Store implements kv.Store.
var _ kv.Store = (*Store)(nil)

// Store is an in-memory record store.
type Store struct {
	mu      sync.RWMutex
	records map[string]kv.Record

	// FailPut, when set, is consulted before every Put; a non-nil result is
	// returned instead of writing. Tests use it to simulate storage faults.
	FailPut func(key string) error
	// FailGet is the read-side counterpart of FailPut.
	FailGet func(key string) error
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]kv.Record),
	}
}

// Get returns a copy of the record at key.
func (s *Store) Get(ctx context.Context, key string) (kv.Record, error) {
	if err := ctx.Err(); err != nil {
		return kv.Record{}, err
	}
	if s.FailGet != nil {
		if err := s.FailGet(key); err != nil {
			return kv.Record{}, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return kv.Record{}, kv.ErrNotFound
	}
	return clone(rec), nil
}

// Put stores a copy of rec so later caller mutations do not leak in.
func (s *Store) Put(ctx context.Context, rec kv.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailPut != nil {
		if err := s.FailPut(rec.Key); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = clone(rec)
	return nil
}

// Delete removes the record at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]kv.Record)
	return nil
}

// Keys lists stored keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	return keys, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}

func clone(rec kv.Record) kv.Record {
	if rec.Data != nil {
		data := make([]byte, len(rec.Data))
		copy(data, rec.Data)
		rec.Data = data
	}
	return rec
}
