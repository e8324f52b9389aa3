// Package intercept implements the interception cache layer: an
// http.RoundTripper that sits at the transport boundary and serves each
// request from the network, a cache partition, or both, depending on what
// kind of request it is.
//
// Requests are classified in order:
//
//  1. Non-GET and non-HTTP(S) requests pass through.
//  2. Image requests to a data host use stale-while-revalidate against the
//     Image partition.
//  3. Other data-host requests pass through.
//  4. Everything else is a shell asset, served network-first with the
//     Runtime and Precache partitions as fallback.
//
// Until the layer is activated every request passes through.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/intercept/strategy"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// ErrNoStorage indicates no partition storage was provided.
var ErrNoStorage = errors.New("intercept: no partition storage provided")

// Layer is the interception cache layer.
// A Layer is safe for concurrent use by multiple goroutines.
type Layer struct {
	next         http.RoundTripper
	storage      partition.Storage
	origin       *url.URL
	dataHosts    []string
	imageParam   string
	manifest     Manifest
	autoActivate bool
	installLimit int
	logger       *zap.Logger
	stats        stats.Collector
	now          func() time.Time

	passthrough strategy.Strategy
	shell       strategy.Strategy
	images      strategy.Strategy

	mu    sync.Mutex
	state State

	// background tracks detached cache writes and revalidations.
	background sync.WaitGroup
}

// Compile-time check that Layer implements http.RoundTripper.
var _ http.RoundTripper = (*Layer)(nil)

// New creates a Layer that fetches through next and caches into storage.
// If next is nil, http.DefaultTransport is used.
func New(next http.RoundTripper, storage partition.Storage, opts ...Option) (*Layer, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if storage == nil {
		return nil, ErrNoStorage
	}
	if next == nil {
		next = http.DefaultTransport
	}
	if cfg.manifest.Version < 0 {
		return nil, fmt.Errorf("intercept: negative version %d", cfg.manifest.Version)
	}

	l := &Layer{
		next:         next,
		storage:      storage,
		origin:       cfg.origin,
		dataHosts:    cfg.dataHosts,
		imageParam:   cfg.imageParam,
		manifest:     cfg.manifest,
		autoActivate: cfg.autoActivate,
		installLimit: cfg.installLimit,
		logger:       cfg.logger.Named("intercept"),
		stats:        cfg.stats,
		now:          cfg.now,
	}

	env := &strategy.Env{
		Next:    next,
		Storage: storage,
		Logger:  l.logger,
		Stats:   l.stats,
		Now:     l.now,
		Detach:  l.detach,
	}

	l.passthrough = &strategy.Passthrough{Env: env}
	l.images = &strategy.StaleWhileRevalidate{Env: env, Partition: l.ImageName()}

	switch cfg.shell {
	case strategy.KindNetworkFirst:
		l.shell = &strategy.NetworkFirst{
			Env:      env,
			Runtime:  l.RuntimeName(),
			Fallback: []string{l.RuntimeName(), l.PrecacheName()},
		}
	case strategy.KindCacheFirst:
		cf := &strategy.CacheFirst{
			Env:     env,
			Runtime: l.RuntimeName(),
			Lookup:  []string{l.PrecacheName(), l.RuntimeName()},
		}
		if l.origin != nil {
			cf.Index = base(l.origin).JoinPath("index.html").String()
		}
		l.shell = cf
	default:
		return nil, fmt.Errorf("intercept: %s cannot serve shell assets", cfg.shell)
	}

	l.logger.Debug("layer created",
		zap.Int("version", l.manifest.Version),
		zap.Stringer("shellStrategy", cfg.shell),
	)
	return l, nil
}

// RoundTrip routes req to the strategy for its class.
func (l *Layer) RoundTrip(req *http.Request) (*http.Response, error) {
	l.stats.IncCounter(stats.MetricRequests, 1)
	return l.route(req).RoundTrip(req)
}

// Route reports the strategy that would serve req.
func (l *Layer) Route(req *http.Request) strategy.Kind {
	return l.route(req).Kind()
}

func (l *Layer) route(req *http.Request) strategy.Strategy {
	if l.State() != StateActivated {
		return l.passthrough
	}
	if req.Method != http.MethodGet {
		return l.passthrough
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return l.passthrough
	}
	if l.isDataHost(req.URL.Hostname()) {
		if req.URL.Query().Has(l.imageParam) {
			return l.images
		}
		return l.passthrough
	}
	return l.shell
}

func (l *Layer) isDataHost(host string) bool {
	for _, h := range l.dataHosts {
		if h != "" && strings.Contains(host, h) {
			return true
		}
	}
	return false
}

// Version returns the partition version.
func (l *Layer) Version() int { return l.manifest.Version }

// PrecacheName returns the current Precache partition name.
func (l *Layer) PrecacheName() string {
	return partition.Name{Base: PrecacheBase, Version: l.manifest.Version}.String()
}

// RuntimeName returns the current Runtime partition name.
func (l *Layer) RuntimeName() string {
	return partition.Name{Base: RuntimeBase, Version: l.manifest.Version}.String()
}

// ImageName returns the current Image partition name.
func (l *Layer) ImageName() string {
	return partition.Name{Base: ImageBase, Version: l.manifest.Version}.String()
}

// Partitions returns the three current partition names.
func (l *Layer) Partitions() []string {
	return []string{l.PrecacheName(), l.RuntimeName(), l.ImageName()}
}

// Wait blocks until every detached cache write and revalidation started so
// far has finished.
func (l *Layer) Wait() {
	l.background.Wait()
}

// detach runs fn on its own goroutine with a context that keeps the
// request's values but not its cancellation.
func (l *Layer) detach(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	l.background.Add(1)
	go func() {
		defer l.background.Done()
		fn(ctx)
	}()
}
