// Package netstatus tracks whether the network is reachable and notifies a
// single observer on online/offline edges.
package netstatus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Monitor is a two-state (online/offline) connectivity tracker.
// A Monitor is safe for concurrent use by multiple goroutines.
type Monitor struct {
	logger *zap.Logger
	stats  stats.Collector

	// deliver serializes transitions end to end so the observer sees them
	// in the order they were applied.
	deliver sync.Mutex

	mu       sync.Mutex
	online   bool
	observer func(online bool)
}

// New creates a Monitor whose initial state is the platform's current
// connectivity signal.
func New(initial bool, opts ...Option) *Monitor {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	m := &Monitor{
		logger: cfg.logger,
		stats:  cfg.stats,
		online: initial,
	}
	m.stats.SetGauge(stats.MetricOnline, gauge(initial))
	return m
}

// IsOnline returns the current state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers fn as the observer, replacing any previous one.
// A nil fn removes the observer.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// Signal feeds a raw connectivity signal. The observer is called only when
// the state actually changes, in transition order, and never with the
// state lock held; it may call IsOnline but must not call Signal.
// It reports whether a transition happened.
func (m *Monitor) Signal(online bool) bool {
	m.deliver.Lock()
	defer m.deliver.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	observer := m.observer
	m.mu.Unlock()

	m.logger.Info("network status", zap.String("status", label(online)))
	m.stats.IncCounter(stats.MetricTransitions, 1)
	m.stats.SetGauge(stats.MetricOnline, gauge(online))

	if observer != nil {
		observer(online)
	}
	return true
}

func label(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func gauge(online bool) int64 {
	if online {
		return 1
	}
	return 0
}
