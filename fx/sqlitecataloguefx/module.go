// Package sqlitecataloguefx provides an fx module for a SQLite-backed catalogue client.
package sqlitecataloguefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	catalogue "github.com/3vilTid/Catalogue-Web-App"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv/cachestrategy/lru"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv/memory"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/sqlitekv"
	"github.com/3vilTid/Catalogue-Web-App/internal/netstatus"
	"github.com/3vilTid/Catalogue-Web-App/internal/rpc"
	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats/logger"
)

// Config holds configuration for the SQLite-backed catalogue client.
type Config struct {
	// Path is the database file.
	Path string

	// CacheSize is the number of records to cache in memory.
	// Default is 64.
	CacheSize int

	// Endpoint is the remote-call URL. Empty means snapshot-only.
	Endpoint string
}

// Module provides a SQLite-backed catalogue client.
// Requires a *zap.Logger to be provided; a *netstatus.Monitor is used when
// one is provided.
var Module = fx.Module("sqlitecatalogue",
	fx.Provide(
		newStatsCollector,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("catalogue.stats"))
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Monitor   *netstatus.Monitor `optional:"true"`
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *catalogue.Client
}

func newClient(p Params) (Result, error) {
	cacheSize := p.Config.CacheSize
	if cacheSize <= 0 {
		cacheSize = 64
	}

	lruStrategy, err := lru.New(cacheSize)
	if err != nil {
		return Result{}, err
	}
	cache := memory.New(lruStrategy, p.Collector)

	opener := func(ctx context.Context) (kv.Store, error) {
		base, err := sqlitekv.Open(ctx, p.Config.Path, sqlitekv.WithMkdirAll())
		if err != nil {
			return nil, err
		}
		return cachedkv.New(base, cache), nil
	}

	store := snapshot.New(opener,
		snapshot.WithLogger(p.Logger.Named("catalogue.snapshot")),
		snapshot.WithStats(p.Collector),
	)

	opts := []catalogue.Option{
		catalogue.WithStore(store),
		catalogue.WithMonitor(p.Monitor),
		catalogue.WithStats(p.Collector),
		catalogue.WithLogger(p.Logger.Named("catalogue")),
	}
	if p.Config.Endpoint != "" {
		opts = append(opts, catalogue.WithInvoker(rpc.New(p.Config.Endpoint,
			rpc.WithLogger(p.Logger.Named("catalogue.rpc")),
		)))
	}

	client, err := catalogue.New(opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return store.Open(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{Client: client}, nil
}
