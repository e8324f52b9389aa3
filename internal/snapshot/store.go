// Package snapshot implements the persistent structured store that holds
// whole application-data snapshots for offline use.
//
// A Store wraps a kv.Store backend. Snapshots are written key by key and
// stamped with a _metadata record only once every key has been written, so
// the metadata never vouches for a partial snapshot.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Opener opens the backend a Store persists into.
type Opener func(ctx context.Context) (kv.Store, error)

// Backend returns an Opener for an already open backend.
func Backend(s kv.Store) Opener {
	return func(context.Context) (kv.Store, error) {
		return s, nil
	}
}

// Store is the persistent structured store.
// A Store is safe for concurrent use by multiple goroutines.
type Store struct {
	opener Opener
	logger *zap.Logger
	stats  stats.Collector
	now    func() time.Time

	mu      sync.RWMutex
	backend kv.Store
	updated time.Time

	// saveMu serializes SaveSnapshot so data keys and metadata of one
	// snapshot are never interleaved with another.
	saveMu sync.Mutex
}

// New creates a Store that opens its backend with opener on Open.
func New(opener Opener, opts ...Option) *Store {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return &Store{
		opener: opener,
		logger: cfg.logger,
		stats:  cfg.stats,
		now:    cfg.now,
	}
}

// Open opens the backend and loads the freshness timestamp. It is
// idempotent: once open, later calls return nil without touching the
// backend. On failure the store stays unusable and the error wraps
// fault.ErrStorageUnavailable.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend != nil {
		return nil
	}
	if s.opener == nil {
		return fmt.Errorf("opening snapshot store: %w", fault.ErrUnconfigured)
	}

	backend, err := s.opener(ctx)
	if err != nil {
		s.stats.IncCounter(stats.MetricStorageFailures, 1)
		return fault.Storage("opening snapshot store", err)
	}

	meta, ok, err := readMetadata(ctx, backend)
	if err != nil {
		s.logger.Warn("ignoring unreadable snapshot metadata", zap.Error(err))
	} else if ok {
		s.updated = meta.LastUpdated
	}

	s.backend = backend
	s.logger.Debug("snapshot store opened", zap.Time("lastUpdated", s.updated))
	return nil
}

// Close closes the backend. The store must be opened again before reuse.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	return err
}

// Put JSON-encodes value and upserts it at key.
func (s *Store) Put(ctx context.Context, key string, value any) error {
	backend, err := s.open()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.put(ctx, backend, key, data)
}

// Get returns the payload stored at key. A key that was never written, or
// has been cleared, yields (nil, false, nil).
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	backend, err := s.open()
	if err != nil {
		return nil, false, err
	}
	return s.get(ctx, backend, key)
}

// SaveSnapshot writes every key of b, then the metadata record. If any key
// fails to write the metadata is left untouched and the error wraps
// fault.ErrPartialSnapshot.
func (s *Store) SaveSnapshot(ctx context.Context, b Bundle) error {
	backend, err := s.open()
	if err != nil {
		return err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.putAll(ctx, backend, b.fields()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	meta := Metadata{LastUpdated: s.now().UTC(), Version: FormatVersion}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := s.put(ctx, backend, KeyMetadata, data); err != nil {
		return fmt.Errorf("saving snapshot metadata: %w", err)
	}

	s.mu.Lock()
	s.updated = meta.LastUpdated
	s.mu.Unlock()

	s.stats.IncCounter(stats.MetricSnapshotSaves, 1)
	s.logger.Info("snapshot cached for offline use")
	return nil
}

// LoadSnapshot reads every snapshot key concurrently. It returns nil when
// items is absent or empty; other keys may be nil.
func (s *Store) LoadSnapshot(ctx context.Context) (*Bundle, error) {
	backend, err := s.open()
	if err != nil {
		return nil, err
	}

	var b Bundle
	if err := s.getAll(ctx, backend, b.fields()); err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	if !nonEmpty(b.Items) {
		s.stats.IncCounter(stats.MetricSnapshotMisses, 1)
		s.logger.Debug("no cached snapshot available")
		return nil, nil
	}

	s.stats.IncCounter(stats.MetricSnapshotLoads, 1)
	return &b, nil
}

// SaveTabSnapshot writes the tab_<tab>_ keys of b. It does not touch the
// snapshot metadata.
func (s *Store) SaveTabSnapshot(ctx context.Context, tab int, b TabBundle) error {
	backend, err := s.open()
	if err != nil {
		return err
	}
	if err := s.putAll(ctx, backend, b.fields(tab)); err != nil {
		return fmt.Errorf("saving tab %d snapshot: %w", tab, err)
	}
	s.logger.Debug("tab snapshot cached", zap.Int("tab", tab))
	return nil
}

// LoadTabSnapshot reads the tab_<tab>_ keys concurrently. It returns nil
// when the tab's items key is absent.
func (s *Store) LoadTabSnapshot(ctx context.Context, tab int) (*TabBundle, error) {
	backend, err := s.open()
	if err != nil {
		return nil, err
	}

	var b TabBundle
	if err := s.getAll(ctx, backend, b.fields(tab)); err != nil {
		return nil, fmt.Errorf("loading tab %d snapshot: %w", tab, err)
	}
	if b.Items == nil {
		return nil, nil
	}
	return &b, nil
}

// HasData reports whether a non-empty items payload is stored.
func (s *Store) HasData(ctx context.Context) (bool, error) {
	items, _, err := s.Get(ctx, KeyItems)
	if err != nil {
		return false, err
	}
	return nonEmpty(items), nil
}

// Clear deletes every record and forgets the freshness timestamp.
func (s *Store) Clear(ctx context.Context) error {
	backend, err := s.open()
	if err != nil {
		return err
	}
	if err := backend.Clear(ctx); err != nil {
		s.stats.IncCounter(stats.MetricStorageFailures, 1)
		return fault.Storage("clearing snapshot store", err)
	}

	s.mu.Lock()
	s.updated = time.Time{}
	s.mu.Unlock()

	s.logger.Info("snapshot store cleared")
	return nil
}

// Metadata returns the stored freshness record, if any.
func (s *Store) Metadata(ctx context.Context) (Metadata, bool, error) {
	backend, err := s.open()
	if err != nil {
		return Metadata{}, false, err
	}
	meta, ok, err := readMetadata(ctx, backend)
	if err != nil {
		return Metadata{}, false, fault.Storage("reading snapshot metadata", err)
	}
	return meta, ok, nil
}

// Keys lists the stored keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	backend, err := s.open()
	if err != nil {
		return nil, err
	}
	keys, err := backend.Keys(ctx)
	if err != nil {
		return nil, fault.Storage("listing snapshot keys", err)
	}
	return keys, nil
}

// LastUpdated returns the time of the last complete snapshot, or the zero
// time if none is recorded.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// LastUpdatedLabel renders LastUpdated for display, e.g. "5m ago".
func (s *Store) LastUpdatedLabel() string {
	return Label(s.LastUpdated(), s.now())
}

func (s *Store) open() (kv.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.backend == nil {
		return nil, fmt.Errorf("snapshot store: %w", fault.ErrUnconfigured)
	}
	return s.backend, nil
}

func (s *Store) put(ctx context.Context, backend kv.Store, key string, data json.RawMessage) error {
	rec := kv.Record{Key: key, Data: data, Timestamp: s.now().UTC()}
	if err := backend.Put(ctx, rec); err != nil {
		s.stats.IncCounter(stats.MetricStorageFailures, 1)
		return fault.Storage("writing "+key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, backend kv.Store, key string) (json.RawMessage, bool, error) {
	rec, err := backend.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.stats.IncCounter(stats.MetricStorageFailures, 1)
		return nil, false, fault.Storage("reading "+key, err)
	}
	if !present(rec.Data) {
		return nil, false, nil
	}
	return rec.Data, true, nil
}

// putAll writes each field independently. Every write is attempted; if any
// failed the joined causes are wrapped in fault.ErrPartialSnapshot.
func (s *Store) putAll(ctx context.Context, backend kv.Store, fields []field) error {
	var errs []error
	for _, f := range fields {
		data := *f.slot
		if !present(data) {
			data = jsonNull
		}
		if err := s.put(ctx, backend, f.key, data); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}

	s.stats.IncCounter(stats.MetricSnapshotPartial, 1)
	s.logger.Warn("snapshot only partially written",
		zap.Int("failed", len(errs)),
		zap.Int("keys", len(fields)),
		zap.Error(errs[0]),
	)
	return fmt.Errorf("%d of %d keys failed: %w: %w",
		len(errs), len(fields), fault.ErrPartialSnapshot, errors.Join(errs...))
}

// getAll reads every field concurrently; the first failure fails the call.
func (s *Store) getAll(ctx context.Context, backend kv.Store, fields []field) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fields {
		g.Go(func() error {
			data, _, err := s.get(gctx, backend, f.key)
			if err != nil {
				return err
			}
			*f.slot = data
			return nil
		})
	}
	return g.Wait()
}

func readMetadata(ctx context.Context, backend kv.Store) (Metadata, bool, error) {
	rec, err := backend.Get(ctx, KeyMetadata)
	if errors.Is(err, kv.ErrNotFound) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, err
	}
	if !present(rec.Data) {
		return Metadata{}, false, nil
	}

	var meta Metadata
	if err := json.Unmarshal(rec.Data, &meta); err != nil {
		return Metadata{}, false, fmt.Errorf("decoding metadata: %w", err)
	}
	return meta, true, nil
}
