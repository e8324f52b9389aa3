package intercept

import (
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/intercept/strategy"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Partition base names.
const (
	PrecacheBase = "catalogue-pwa"
	RuntimeBase  = "catalogue-runtime"
	ImageBase    = "catalogue-images"
)

// DefaultDataHosts are the hosts serving RPC data and images.
var DefaultDataHosts = []string{
	"script.google.com",
	"script.googleusercontent.com",
}

// DefaultImageParam marks a data-host request as an image fetch.
const DefaultImageParam = "img"

// Option configures a Layer.
type Option interface {
	apply(*options)
}

type options struct {
	origin       *url.URL
	dataHosts    []string
	imageParam   string
	manifest     Manifest
	shell        strategy.Kind
	autoActivate bool
	installLimit int
	logger       *zap.Logger
	stats        stats.Collector
	now          func() time.Time
}

func defaultOptions() options {
	return options{
		dataHosts:    DefaultDataHosts,
		imageParam:   DefaultImageParam,
		manifest:     DefaultManifest(),
		shell:        strategy.KindNetworkFirst,
		autoActivate: true,
		installLimit: 4,
		logger:       zap.NewNop(),
		stats:        stats.NewNoop(),
		now:          time.Now,
	}
}

type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithOrigin sets the shell origin; relative manifest assets resolve
// against it.
func WithOrigin(origin *url.URL) Option {
	return optionFunc(func(o *options) {
		o.origin = origin
	})
}

// WithDataHosts replaces the data hosts. A request whose host contains one
// of them is data traffic.
func WithDataHosts(hosts ...string) Option {
	return optionFunc(func(o *options) {
		o.dataHosts = hosts
	})
}

// WithImageParam sets the query parameter marking image fetches.
func WithImageParam(name string) Option {
	return optionFunc(func(o *options) {
		o.imageParam = name
	})
}

// WithVersion sets the partition version.
func WithVersion(v int) Option {
	return optionFunc(func(o *options) {
		o.manifest.Version = v
	})
}

// WithManifest sets the precache manifest and its version.
func WithManifest(m Manifest) Option {
	return optionFunc(func(o *options) {
		o.manifest = m
	})
}

// WithShellStrategy selects how shell assets are served. Network-first is
// the default; cache-first is the earlier shell behavior.
func WithShellStrategy(k strategy.Kind) Option {
	return optionFunc(func(o *options) {
		o.shell = k
	})
}

// WithAutoActivate controls whether a successful Install activates
// immediately. When false the layer waits for Activate or SKIP_WAITING.
func WithAutoActivate(auto bool) Option {
	return optionFunc(func(o *options) {
		o.autoActivate = auto
	})
}

// WithInstallConcurrency bounds concurrent asset fetches during Install.
func WithInstallConcurrency(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.installLimit = n
		}
	})
}

// WithLogger sets the logger.
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

// WithClock overrides the time source for entry timestamps and latency.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		if now != nil {
			o.now = now
		}
	})
}
