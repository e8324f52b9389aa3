package netstatus

import (
	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Option configures a Monitor.
type Option interface {
	apply(*options)
}

type options struct {
	logger *zap.Logger
	stats  stats.Collector
}

func defaultOptions() options {
	return options{
		logger: zap.NewNop(),
		stats:  stats.NewNoop(),
	}
}

type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithLogger sets the logger used for transition lines.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithStats sets the metrics collector.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		if c != nil {
			o.stats = c
		}
	})
}
