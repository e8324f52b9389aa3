package catalogue

import (
	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/netstatus"
	"github.com/3vilTid/Catalogue-Web-App/internal/rpc"
	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Default remote function names.
const (
	DefaultAppDataCall = "getAppData"
	DefaultTabDataCall = "getTabData"
)

// Option configures a Client.
type Option interface {
	apply(*options)
}

// options holds the client configuration.
type options struct {
	store   *snapshot.Store
	monitor *netstatus.Monitor
	invoker rpc.Invoker
	appCall string
	tabCall string
	stats   stats.Collector
	logger  *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		appCall: DefaultAppDataCall,
		tabCall: DefaultTabDataCall,
		stats:   stats.NewNoop(),
		logger:  zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithStore sets the snapshot store. It is required.
func WithStore(s *snapshot.Store) Option {
	return optionFunc(func(o *options) {
		o.store = s
	})
}

// WithMonitor sets the network-status monitor consulted before each fetch.
// If not set, the network is assumed reachable.
func WithMonitor(m *netstatus.Monitor) Option {
	return optionFunc(func(o *options) {
		o.monitor = m
	})
}

// WithInvoker sets the remote-call client.
// If not set, only the snapshot is served.
func WithInvoker(inv rpc.Invoker) Option {
	return optionFunc(func(o *options) {
		o.invoker = inv
	})
}

// WithAppDataCall sets the remote function that returns the full dataset.
func WithAppDataCall(name string) Option {
	return optionFunc(func(o *options) {
		if name != "" {
			o.appCall = name
		}
	})
}

// WithTabDataCall sets the remote function that returns one tab's dataset.
// It is called with the tab index as its only parameter.
func WithTabDataCall(name string) Option {
	return optionFunc(func(o *options) {
		if name != "" {
			o.tabCall = name
		}
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		if c != nil {
			o.stats = c
		}
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}
