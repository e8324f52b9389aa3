package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/memkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/sqlitekv"
)

var errDisk = errors.New("disk full")

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func openStore(t *testing.T, backend kv.Store, opts ...Option) *Store {
	t.Helper()
	s := New(Backend(backend), opts...)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func sampleBundle(items string) Bundle {
	return Bundle{
		Settings:   json.RawMessage(`{"title":"Catalogue"}`),
		Headers:    json.RawMessage(`["Name","Price"]`),
		Items:      json.RawMessage(items),
		TabsConfig: json.RawMessage(`[{"name":"Main"}]`),
		User:       json.RawMessage(`{"email":"a@example.com"}`),
	}
}

func TestStore_UnopenedIsUnconfigured(t *testing.T) {
	s := New(Backend(memkv.New()))
	ctx := context.Background()

	if _, _, err := s.Get(ctx, KeyItems); !errors.Is(err, fault.ErrUnconfigured) {
		t.Errorf("Get() error = %v, want ErrUnconfigured", err)
	}
	if err := s.Put(ctx, KeyItems, []int{1}); !errors.Is(err, fault.ErrUnconfigured) {
		t.Errorf("Put() error = %v, want ErrUnconfigured", err)
	}
	if err := s.SaveSnapshot(ctx, sampleBundle(`[1]`)); !errors.Is(err, fault.ErrUnconfigured) {
		t.Errorf("SaveSnapshot() error = %v, want ErrUnconfigured", err)
	}
}

func TestStore_OpenFailure(t *testing.T) {
	s := New(func(context.Context) (kv.Store, error) {
		return nil, errDisk
	})

	err := s.Open(context.Background())
	if !errors.Is(err, fault.ErrStorageUnavailable) || !errors.Is(err, errDisk) {
		t.Fatalf("Open() error = %v, want ErrStorageUnavailable wrapping cause", err)
	}
	if _, _, err := s.Get(context.Background(), KeyItems); !errors.Is(err, fault.ErrUnconfigured) {
		t.Errorf("Get() after failed open error = %v, want ErrUnconfigured", err)
	}
}

func TestStore_OpenIdempotent(t *testing.T) {
	var opens atomic.Int32
	backend := memkv.New()
	s := New(func(context.Context) (kv.Store, error) {
		opens.Add(1)
		return backend, nil
	})

	done := make(chan error)
	for i := 0; i < 8; i++ {
		go func() { done <- s.Open(context.Background()) }()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}
	if got := opens.Load(); got != 1 {
		t.Errorf("backend opened %d times, want 1", got)
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	s := openStore(t, memkv.New())

	for _, key := range []string{KeyItems, KeyMetadata, "never-written", TabKey(3, KeyItems)} {
		data, ok, err := s.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", key, err)
		}
		if ok || data != nil {
			t.Errorf("Get(%q) = %s, %v, want absent", key, data, ok)
		}
	}
}

func TestStore_PutGet(t *testing.T) {
	backend := memkv.New()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := openStore(t, backend, WithClock(clock.now))
	ctx := context.Background()

	if err := s.Put(ctx, "settings", map[string]string{"theme": "dark"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "settings", map[string]string{"theme": "light"}); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	data, ok, err := s.Get(ctx, "settings")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if string(data) != `{"theme":"light"}` {
		t.Errorf("Get() = %s, want last write", data)
	}

	rec, err := backend.Get(ctx, "settings")
	if err != nil {
		t.Fatalf("backend Get() error = %v", err)
	}
	if !rec.Timestamp.Equal(clock.t) {
		t.Errorf("record timestamp = %v, want %v", rec.Timestamp, clock.t)
	}
}

func TestStore_PutStorageFailure(t *testing.T) {
	backend := memkv.New()
	backend.FailPut = func(string) error { return errDisk }
	s := openStore(t, backend)

	err := s.Put(context.Background(), KeyItems, []int{1})
	if !errors.Is(err, fault.ErrStorageUnavailable) {
		t.Errorf("Put() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		items string
	}{
		{"single", `[{"id":1}]`},
		{"many", `[{"id":1},{"id":2},{"id":3}]`},
		{"scalars", `["a","b"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t, memkv.New())
			ctx := context.Background()

			if err := s.SaveSnapshot(ctx, sampleBundle(tt.items)); err != nil {
				t.Fatalf("SaveSnapshot() error = %v", err)
			}
			got, err := s.LoadSnapshot(ctx)
			if err != nil {
				t.Fatalf("LoadSnapshot() error = %v", err)
			}
			if got == nil {
				t.Fatal("LoadSnapshot() = nil, want bundle")
			}
			if string(got.Items) != tt.items {
				t.Errorf("Items = %s, want %s", got.Items, tt.items)
			}
			if string(got.User) != `{"email":"a@example.com"}` {
				t.Errorf("User = %s", got.User)
			}
			if got.ColumnConfig != nil || got.LayersData != nil {
				t.Errorf("absent fields = %s, %s, want nil", got.ColumnConfig, got.LayersData)
			}
		})
	}
}

func TestStore_EmptyItemsIsNoSnapshot(t *testing.T) {
	for _, items := range []string{`[]`, `null`, ``} {
		t.Run(items, func(t *testing.T) {
			s := openStore(t, memkv.New())
			ctx := context.Background()

			if err := s.SaveSnapshot(ctx, sampleBundle(items)); err != nil {
				t.Fatalf("SaveSnapshot() error = %v", err)
			}
			got, err := s.LoadSnapshot(ctx)
			if err != nil {
				t.Fatalf("LoadSnapshot() error = %v", err)
			}
			if got != nil {
				t.Errorf("LoadSnapshot() = %+v, want nil", got)
			}
			has, err := s.HasData(ctx)
			if err != nil {
				t.Fatalf("HasData() error = %v", err)
			}
			if has {
				t.Error("HasData() = true, want false")
			}
		})
	}
}

func TestStore_HasDataFollowsLatestWrite(t *testing.T) {
	s := openStore(t, memkv.New())
	ctx := context.Background()

	steps := []struct {
		items string
		clear bool
		want  bool
	}{
		{items: `[1]`, want: true},
		{items: `[]`, want: false},
		{items: `[1,2]`, want: true},
		{clear: true, want: false},
		{items: `[3]`, want: true},
	}
	for i, step := range steps {
		if step.clear {
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("step %d: Clear() error = %v", i, err)
			}
		} else if err := s.SaveSnapshot(ctx, sampleBundle(step.items)); err != nil {
			t.Fatalf("step %d: SaveSnapshot() error = %v", i, err)
		}

		got, err := s.HasData(ctx)
		if err != nil {
			t.Fatalf("step %d: HasData() error = %v", i, err)
		}
		if got != step.want {
			t.Errorf("step %d: HasData() = %v, want %v", i, got, step.want)
		}
	}
}

func TestStore_ClearResetsLabel(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := openStore(t, memkv.New(), WithClock(clock.now))
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, sampleBundle(`[1]`)); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	clock.t = clock.t.Add(5 * time.Minute)
	if got := s.LastUpdatedLabel(); got != "5m ago" {
		t.Errorf("LastUpdatedLabel() = %q, want %q", got, "5m ago")
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := s.LastUpdatedLabel(); got != NeverLabel {
		t.Errorf("LastUpdatedLabel() after Clear = %q, want %q", got, NeverLabel)
	}
	if has, _ := s.HasData(ctx); has {
		t.Error("HasData() after Clear = true")
	}
}

func TestStore_PartialSnapshotKeepsMetadata(t *testing.T) {
	backend := memkv.New()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := openStore(t, backend, WithClock(clock.now))
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, sampleBundle(`[1]`)); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	first := s.LastUpdated()

	clock.t = clock.t.Add(time.Hour)
	backend.FailPut = func(key string) error {
		if key == KeyLayerConfig {
			return errDisk
		}
		return nil
	}

	err := s.SaveSnapshot(ctx, sampleBundle(`[1,2]`))
	if !errors.Is(err, fault.ErrPartialSnapshot) {
		t.Fatalf("SaveSnapshot() error = %v, want ErrPartialSnapshot", err)
	}
	if !errors.Is(err, errDisk) {
		t.Errorf("SaveSnapshot() error = %v, want cause preserved", err)
	}

	if !s.LastUpdated().Equal(first) {
		t.Errorf("LastUpdated() = %v, want unchanged %v", s.LastUpdated(), first)
	}
	meta, ok, err := s.Metadata(ctx)
	if err != nil || !ok {
		t.Fatalf("Metadata() = %v, %v", ok, err)
	}
	if !meta.LastUpdated.Equal(first) {
		t.Errorf("stored metadata = %v, want unchanged %v", meta.LastUpdated, first)
	}
}

func TestStore_LoadFailsWhenAnyReadFails(t *testing.T) {
	backend := memkv.New()
	s := openStore(t, backend)
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, sampleBundle(`[1]`)); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	backend.FailGet = func(key string) error {
		if key == KeyHeaders {
			return errDisk
		}
		return nil
	}

	if _, err := s.LoadSnapshot(ctx); !errors.Is(err, fault.ErrStorageUnavailable) {
		t.Errorf("LoadSnapshot() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestStore_TabSnapshot(t *testing.T) {
	s := openStore(t, memkv.New())
	ctx := context.Background()

	got, err := s.LoadTabSnapshot(ctx, 2)
	if err != nil {
		t.Fatalf("LoadTabSnapshot() error = %v", err)
	}
	if got != nil {
		t.Fatalf("LoadTabSnapshot() on empty store = %+v, want nil", got)
	}

	tab := TabBundle{
		Items:       json.RawMessage(`[]`),
		LayerConfig: json.RawMessage(`{"layers":2}`),
	}
	if err := s.SaveTabSnapshot(ctx, 2, tab); err != nil {
		t.Fatalf("SaveTabSnapshot() error = %v", err)
	}

	got, err = s.LoadTabSnapshot(ctx, 2)
	if err != nil {
		t.Fatalf("LoadTabSnapshot() error = %v", err)
	}
	if got == nil {
		t.Fatal("LoadTabSnapshot() = nil, want bundle with empty items")
	}
	if string(got.LayerConfig) != `{"layers":2}` {
		t.Errorf("LayerConfig = %s", got.LayerConfig)
	}
	if other, _ := s.LoadTabSnapshot(ctx, 3); other != nil {
		t.Errorf("LoadTabSnapshot(3) = %+v, want nil", other)
	}
	if !s.LastUpdated().IsZero() {
		t.Error("SaveTabSnapshot() should not stamp metadata")
	}
}

func TestStore_ReopenRestoresFreshness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.db")
	ctx := context.Background()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	open := func(ctx context.Context) (kv.Store, error) {
		return sqlitekv.Open(ctx, path)
	}

	s := New(open, WithClock(clock.now))
	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.SaveSnapshot(ctx, sampleBundle(`[{"id":7}]`)); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	clock.t = clock.t.Add(3 * time.Hour)
	reopened := New(open, WithClock(clock.now))
	if err := reopened.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	if got := reopened.LastUpdatedLabel(); got != "3h ago" {
		t.Errorf("LastUpdatedLabel() = %q, want %q", got, "3h ago")
	}
	b, err := reopened.LoadSnapshot(ctx)
	if err != nil || b == nil {
		t.Fatalf("LoadSnapshot() = %v, %v", b, err)
	}
	if string(b.Items) != `[{"id":7}]` {
		t.Errorf("Items = %s", b.Items)
	}
}
