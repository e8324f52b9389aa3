package netstatus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMonitor_InitialState(t *testing.T) {
	for _, initial := range []bool{true, false} {
		if got := New(initial).IsOnline(); got != initial {
			t.Errorf("New(%v).IsOnline() = %v", initial, got)
		}
	}
}

func TestMonitor_FiresOnlyOnEdges(t *testing.T) {
	tests := []struct {
		name    string
		initial bool
		signals []bool
		want    []bool
	}{
		{"duplicates suppressed", true, []bool{true, true, true}, nil},
		{"single drop", true, []bool{false}, []bool{false}},
		{"flapping", true, []bool{false, false, true, true, false}, []bool{false, true, false}},
		{"starts offline", false, []bool{false, true, true, false, false}, []bool{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.initial)
			var got []bool
			m.OnChange(func(online bool) { got = append(got, online) })

			for _, s := range tt.signals {
				m.Signal(s)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("observer calls = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("call %d = %v, want %v", i, got[i], tt.want[i])
				}
				if i > 0 && got[i] == got[i-1] {
					t.Errorf("observer fired twice in a row with %v", got[i])
				}
			}
		})
	}
}

func TestMonitor_OnChangeReplaces(t *testing.T) {
	m := New(true)
	var first, second int
	m.OnChange(func(bool) { first++ })
	m.OnChange(func(bool) { second++ })

	m.Signal(false)

	if first != 0 || second != 1 {
		t.Errorf("first = %d, second = %d, want 0, 1", first, second)
	}

	m.OnChange(nil)
	if !m.Signal(true) {
		t.Error("Signal(true) should report a transition")
	}
}

func TestMonitor_ObserverMayReadState(t *testing.T) {
	m := New(true)
	var seen atomic.Bool
	m.OnChange(func(online bool) {
		seen.Store(m.IsOnline() == online)
	})

	m.Signal(false)

	if !seen.Load() {
		t.Error("observer should see the new state through IsOnline")
	}
}

func TestMonitor_ConcurrentSignals(t *testing.T) {
	m := New(true)
	var mu sync.Mutex
	var calls []bool
	m.OnChange(func(online bool) {
		mu.Lock()
		calls = append(calls, online)
		mu.Unlock()
	})

	var transitions atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(online bool) {
			defer wg.Done()
			if m.Signal(online) {
				transitions.Add(1)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if int(transitions.Load()) != len(calls) {
		t.Errorf("transitions = %d, observer calls = %d", transitions.Load(), len(calls))
	}
	if len(calls) > 0 && calls[0] {
		t.Error("first observer call = true, want false from an online start")
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] == calls[i-1] {
			t.Fatalf("observer calls %d and %d both %v", i-1, i, calls[i])
		}
	}
}

func TestMonitor_SlowObserverKeepsOrder(t *testing.T) {
	m := New(true)
	gate := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var calls []bool
	m.OnChange(func(online bool) {
		once.Do(func() { <-gate })
		mu.Lock()
		calls = append(calls, online)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Signal(false)
	}()
	time.Sleep(10 * time.Millisecond)

	for _, online := range []bool{true, false} {
		wg.Add(1)
		go func(online bool) {
			defer wg.Done()
			m.Signal(online)
		}(online)
		time.Sleep(10 * time.Millisecond)
	}
	close(gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(calls) == 0 || calls[0] {
		t.Fatalf("observer calls = %v, want first call false", calls)
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] == calls[i-1] {
			t.Fatalf("observer calls = %v, repeated %v", calls, calls[i])
		}
	}
	if got := m.IsOnline(); len(calls) > 0 && calls[len(calls)-1] != got {
		t.Errorf("last observer call = %v, IsOnline() = %v", calls[len(calls)-1], got)
	}
}

func TestMonitor_Watch(t *testing.T) {
	m := New(true)
	changes := make(chan bool, 4)
	m.OnChange(func(online bool) { changes <- online })

	var n atomic.Int32
	results := []bool{false, false, true}
	prober := ProberFunc(func(context.Context) bool {
		i := int(n.Add(1)) - 1
		if i >= len(results) {
			return true
		}
		return results[i]
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Watch(ctx, prober, time.Millisecond)
		close(done)
	}()

	for _, want := range []bool{false, true} {
		select {
		case got := <-changes:
			if got != want {
				t.Errorf("transition = %v, want %v", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for transition to %v", want)
		}
	}

	cancel()
	<-done
}

func TestHTTPProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	p := NewHTTPProber(srv.URL)
	if !p.Probe(context.Background()) {
		t.Error("Probe() = false for a server answering 503, want true")
	}

	srv.Close()
	if p.Probe(context.Background()) {
		t.Error("Probe() = true for a closed server, want false")
	}
}
