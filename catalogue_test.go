package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/memkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/netstatus"
	"github.com/3vilTid/Catalogue-Web-App/internal/rpc"
	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
)

const appData = `{"settings":{"title":"Shop"},"headers":["name"],"items":[{"name":"a"}],"user":{"email":"x@example.com"}}`

// fakeBackend answers getAppData and getTabData, or fails with err.
type fakeBackend struct {
	err   error
	calls atomic.Int32
}

func (f *fakeBackend) Invoke(_ context.Context, name string, args []any) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	switch name {
	case DefaultAppDataCall:
		return json.RawMessage(appData), nil
	case DefaultTabDataCall:
		return json.RawMessage(fmt.Sprintf(`{"items":[{"tab":%d}]}`, args[0])), nil
	}
	return nil, fmt.Errorf("unknown function %s", name)
}

func newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	store := snapshot.New(snapshot.Backend(memkv.New()))
	client, err := New(append([]Option{WithStore(store)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New()
	if !errors.Is(err, ErrNoStore) {
		t.Errorf("New() error = %v, want ErrNoStore", err)
	}
}

func TestClient_Load_OnlineSavesSnapshot(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, WithInvoker(backend), WithMonitor(netstatus.New(true)))
	ctx := context.Background()

	b, source, err := client.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source != SourceNetwork {
		t.Errorf("Load() source = %v, want network", source)
	}
	if string(b.Items) != `[{"name":"a"}]` {
		t.Errorf("Items = %s", b.Items)
	}

	saved, err := client.Store().LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if saved == nil || string(saved.User) != `{"email":"x@example.com"}` {
		t.Errorf("LoadSnapshot() = %+v, want saved user", saved)
	}
	if client.Store().LastUpdatedLabel() != "just now" {
		t.Errorf("LastUpdatedLabel() = %q, want %q", client.Store().LastUpdatedLabel(), "just now")
	}
}

func TestClient_Load_OfflineServesSnapshot(t *testing.T) {
	backend := &fakeBackend{}
	monitor := netstatus.New(true)
	client := newClient(t, WithInvoker(backend), WithMonitor(monitor))
	ctx := context.Background()

	if _, _, err := client.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	monitor.Signal(false)

	b, source, err := client.Load(ctx)
	if err != nil {
		t.Fatalf("Load() offline error = %v", err)
	}
	if source != SourceCache {
		t.Errorf("Load() source = %v, want cache", source)
	}
	if string(b.Settings) != `{"title":"Shop"}` {
		t.Errorf("Settings = %s", b.Settings)
	}
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestClient_Load_NoData(t *testing.T) {
	client := newClient(t, WithInvoker(&fakeBackend{}), WithMonitor(netstatus.New(false)))

	_, _, err := client.Load(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Load() error = %v, want ErrNoData", err)
	}
}

func TestClient_Load_NetworkFailureFallsBack(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, WithInvoker(backend))
	ctx := context.Background()

	if _, _, err := client.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	backend.err = fmt.Errorf("calling getAppData: %w", fault.ErrTimeout)
	_, source, err := client.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source != SourceCache {
		t.Errorf("Load() source = %v, want cache", source)
	}
}

func TestClient_Load_OtherErrorsReturned(t *testing.T) {
	client := newClient(t, WithInvoker(rpc.InvokerFunc(func(context.Context, string, []any) (json.RawMessage, error) {
		return nil, fmt.Errorf("calling: %w", fault.ErrUnconfigured)
	})))

	_, _, err := client.Load(context.Background())
	if !errors.Is(err, fault.ErrUnconfigured) {
		t.Errorf("Load() error = %v, want ErrUnconfigured", err)
	}
}

func TestClient_Load_WithoutInvoker(t *testing.T) {
	store := snapshot.New(snapshot.Backend(memkv.New()))
	ctx := context.Background()
	if err := store.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.SaveSnapshot(ctx, snapshot.Bundle{Items: json.RawMessage(`[1]`)}); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	client, err := New(WithStore(store))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	_, source, err := client.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source != SourceCache {
		t.Errorf("Load() source = %v, want cache", source)
	}
}

func TestClient_LoadTab(t *testing.T) {
	backend := &fakeBackend{}
	monitor := netstatus.New(true)
	client := newClient(t, WithInvoker(backend), WithMonitor(monitor))
	ctx := context.Background()

	b, source, err := client.LoadTab(ctx, 2)
	if err != nil {
		t.Fatalf("LoadTab() error = %v", err)
	}
	if source != SourceNetwork || string(b.Items) != `[{"tab":2}]` {
		t.Errorf("LoadTab() = %s, %v", b.Items, source)
	}

	monitor.Signal(false)
	b, source, err = client.LoadTab(ctx, 2)
	if err != nil {
		t.Fatalf("LoadTab() offline error = %v", err)
	}
	if source != SourceCache || string(b.Items) != `[{"tab":2}]` {
		t.Errorf("LoadTab() offline = %s, %v", b.Items, source)
	}

	if _, _, err := client.LoadTab(ctx, 3); !errors.Is(err, ErrNoData) {
		t.Errorf("LoadTab(3) error = %v, want ErrNoData", err)
	}
}

func TestClient_Close(t *testing.T) {
	client, err := New(WithStore(snapshot.New(snapshot.Backend(memkv.New()))))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() error = %v, want ErrClosed", err)
	}
	if _, _, err := client.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Load() after Close error = %v, want ErrClosed", err)
	}
}

func TestSource_String(t *testing.T) {
	tests := []struct {
		source Source
		want   string
	}{
		{SourceNetwork, "network"},
		{SourceCache, "cache"},
		{Source(7), "Source(7)"},
	}
	for _, tt := range tests {
		if got := tt.source.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
