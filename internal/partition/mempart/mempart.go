// Package mempart implements in-memory partition storage.
package mempart

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
)

// Compile-time checks.
var (
	_ partition.Storage = (*Storage)(nil)
	_ partition.Cache   = (*Cache)(nil)
)

// Storage is an in-memory set of partitions.
type Storage struct {
	mu     sync.Mutex
	caches map[string]*Cache
}

// New creates an empty storage.
func New() *Storage {
	return &Storage{caches: make(map[string]*Cache)}
}

// Open returns the named partition, creating it if needed.
func (s *Storage) Open(ctx context.Context, name string) (partition.Cache, error) {
	if !partition.ValidName(name) {
		return nil, fmt.Errorf("%w: %q", partition.ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[name]
	if !ok {
		c = &Cache{name: name, entries: make(map[string]*partition.Entry)}
		s.caches[name] = c
	}
	return c, nil
}

// Has reports whether the named partition exists.
func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.caches[name]
	return ok, nil
}

// Delete removes the named partition.
func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.caches[name]
	delete(s.caches, name)
	return ok, nil
}

// Names lists partitions.
func (s *Storage) Names(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	return names, nil
}

// Cache is an in-memory partition. Entries are copied in and out.
type Cache struct {
	name string

	mu      sync.RWMutex
	entries map[string]*partition.Entry
}

// Name returns the partition name.
func (c *Cache) Name() string { return c.name }

// Match returns a copy of the entry for req.
func (c *Cache) Match(ctx context.Context, req *http.Request) (*partition.Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[partition.Key(req)]
	if !ok {
		return nil, partition.ErrNotFound
	}
	return e.Clone(), nil
}

// Put stores a copy of e.
func (c *Cache) Put(ctx context.Context, req *http.Request, e *partition.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[partition.Key(req)] = e.Clone()
	return nil
}

// PutAll swaps in a new entry map built from pairs.
func (c *Cache) PutAll(ctx context.Context, pairs []partition.Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries := make(map[string]*partition.Entry, len(pairs))
	for _, p := range pairs {
		entries[partition.Key(p.Request)] = p.Entry.Clone()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = entries
	return nil
}

// Len returns the number of entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}
