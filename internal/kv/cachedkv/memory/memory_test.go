package memory

import (
	"encoding/json"
	"testing"

	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv/cachestrategy/lru"
)

func record(key, data string) kv.Record {
	return kv.Record{Key: key, Data: json.RawMessage(data)}
}

func TestBackend_GetSetRemove(t *testing.T) {
	strategy, err := lru.New(10)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	b := New(strategy, nil)

	if _, ok := b.Get("items"); ok {
		t.Error("Get() should return false for missing key")
	}

	b.Set(record("items", `[1]`))
	rec, ok := b.Get("items")
	if !ok {
		t.Fatal("Get() should return true after Set")
	}
	if string(rec.Data) != `[1]` {
		t.Errorf("Get().Data = %s, want [1]", rec.Data)
	}

	b.Remove("items")
	if _, ok := b.Get("items"); ok {
		t.Error("Get() should return false after Remove")
	}
}

func TestBackend_Stats(t *testing.T) {
	strategy, err := lru.New(10)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	b := New(strategy, nil)

	b.Set(record("settings", `{}`))
	b.Get("settings")
	b.Get("user")

	stats := b.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, size 1", stats)
	}
}

func TestBackend_LRUEviction(t *testing.T) {
	strategy, err := lru.New(2)
	if err != nil {
		t.Fatalf("lru.New() error = %v", err)
	}
	b := New(strategy, nil)

	b.Set(record("a", `1`))
	b.Set(record("b", `2`))
	b.Get("a") // a is now most recently used.
	b.Set(record("c", `3`))

	if _, ok := b.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := b.Get("a"); !ok {
		t.Error("a should still be cached")
	}

	b.Purge()
	if got := b.Stats().Size; got != 0 {
		t.Errorf("Stats().Size after Purge = %d, want 0", got)
	}
}
