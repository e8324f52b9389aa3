// Package catalogue provides offline-first access to catalogue data.
//
// A Client loads the application dataset from the backend when the network
// is available, persists it as a snapshot, and serves the last snapshot
// when it is not.
//
// Example usage:
//
//	store := snapshot.New(snapshot.Backend(memkv.New()))
//	client, err := catalogue.New(
//	    catalogue.WithStore(store),
//	    catalogue.WithInvoker(rpc.New("https://example.com/exec")),
//	    catalogue.WithMonitor(netstatus.New(true)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	bundle, source, err := client.Load(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("loaded from %s\n", source)
package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
	"github.com/3vilTid/Catalogue-Web-App/internal/netstatus"
	"github.com/3vilTid/Catalogue-Web-App/internal/rpc"
	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrNoData indicates neither the network nor the snapshot could supply data.
	ErrNoData = errors.New("catalogue: no data available")

	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("catalogue: client closed")

	// ErrNoStore indicates no snapshot store was provided.
	ErrNoStore = errors.New("catalogue: no store provided")
)

// Source tells where a loaded dataset came from.
type Source int

const (
	// SourceNetwork means the data was fetched and saved as the new snapshot.
	SourceNetwork Source = iota
	// SourceCache means the data was read from the last snapshot.
	SourceCache
)

func (s Source) String() string {
	switch s {
	case SourceNetwork:
		return "network"
	case SourceCache:
		return "cache"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Client loads catalogue data. A Client is safe for concurrent use by
// multiple goroutines.
type Client struct {
	store   *snapshot.Store
	monitor *netstatus.Monitor
	invoker rpc.Invoker
	appCall string
	tabCall string
	stats   stats.Collector
	logger  *zap.Logger
	closed  atomic.Bool
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.store == nil {
		return nil, ErrNoStore
	}

	c := &Client{
		store:   cfg.store,
		monitor: cfg.monitor,
		invoker: cfg.invoker,
		appCall: cfg.appCall,
		tabCall: cfg.tabCall,
		stats:   cfg.stats,
		logger:  cfg.logger,
	}

	c.logger.Debug("client initialized",
		zap.String("appCall", c.appCall),
		zap.String("tabCall", c.tabCall),
		zap.Bool("invoker", c.invoker != nil),
	)

	return c, nil
}

// Load returns the application dataset. When online it is fetched from the
// backend and saved as the new snapshot; when offline, or when the fetch
// fails with a network failure, the last snapshot is served. ErrNoData is
// returned when there is no snapshot to fall back on.
func (c *Client) Load(ctx context.Context) (*snapshot.Bundle, Source, error) {
	if err := c.ready(ctx); err != nil {
		return nil, SourceCache, err
	}

	if c.online() {
		b, err := c.fetch(ctx)
		if err == nil {
			c.stats.IncCounter(stats.MetricLoadsNetwork, 1)
			return b, SourceNetwork, nil
		}
		if !errors.Is(err, fault.ErrNetworkFailure) {
			return nil, SourceNetwork, err
		}
		c.logger.Warn("fetch failed, serving snapshot", zap.Error(err))
	}

	b, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, SourceCache, fmt.Errorf("loading snapshot: %w", err)
	}
	if b == nil {
		return nil, SourceCache, ErrNoData
	}
	c.stats.IncCounter(stats.MetricLoadsCache, 1)
	return b, SourceCache, nil
}

// LoadTab is Load for the dataset of one tab.
func (c *Client) LoadTab(ctx context.Context, tab int) (*snapshot.TabBundle, Source, error) {
	if err := c.ready(ctx); err != nil {
		return nil, SourceCache, err
	}

	if c.online() {
		b, err := c.fetchTab(ctx, tab)
		if err == nil {
			c.stats.IncCounter(stats.MetricLoadsNetwork, 1)
			return b, SourceNetwork, nil
		}
		if !errors.Is(err, fault.ErrNetworkFailure) {
			return nil, SourceNetwork, err
		}
		c.logger.Warn("tab fetch failed, serving snapshot", zap.Int("tab", tab), zap.Error(err))
	}

	b, err := c.store.LoadTabSnapshot(ctx, tab)
	if err != nil {
		return nil, SourceCache, fmt.Errorf("loading tab %d snapshot: %w", tab, err)
	}
	if b == nil {
		return nil, SourceCache, ErrNoData
	}
	c.stats.IncCounter(stats.MetricLoadsCache, 1)
	return b, SourceCache, nil
}

// Close releases all resources associated with the client.
// After Close, the client should not be used.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// Store returns the snapshot store used by this client.
func (c *Client) Store() *snapshot.Store {
	return c.store
}

func (c *Client) ready(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.store.Open(ctx)
}

// online reports whether a fetch should be attempted. Without a monitor the
// network is assumed reachable.
func (c *Client) online() bool {
	if c.invoker == nil {
		return false
	}
	return c.monitor == nil || c.monitor.IsOnline()
}

func (c *Client) fetch(ctx context.Context) (*snapshot.Bundle, error) {
	raw, err := c.invoker.Invoke(ctx, c.appCall, nil)
	if err != nil {
		return nil, err
	}

	var b snapshot.Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", c.appCall, err)
	}

	// A failed save leaves the previous snapshot authoritative; the fresh
	// data is still returned.
	if err := c.store.SaveSnapshot(ctx, b); err != nil {
		c.logger.Warn("saving snapshot", zap.Error(err))
	}
	return &b, nil
}

func (c *Client) fetchTab(ctx context.Context, tab int) (*snapshot.TabBundle, error) {
	raw, err := c.invoker.Invoke(ctx, c.tabCall, []any{tab})
	if err != nil {
		return nil, err
	}

	var b snapshot.TabBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", c.tabCall, err)
	}

	if err := c.store.SaveTabSnapshot(ctx, tab, b); err != nil {
		c.logger.Warn("saving tab snapshot", zap.Int("tab", tab), zap.Error(err))
	}
	return &b, nil
}
