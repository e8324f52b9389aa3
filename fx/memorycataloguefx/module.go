// Package memorycataloguefx provides an fx module for an in-memory catalogue client.
// Useful for testing.
package memorycataloguefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	catalogue "github.com/3vilTid/Catalogue-Web-App"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/memkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/netstatus"
	"github.com/3vilTid/Catalogue-Web-App/internal/rpc"
	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats/logger"
)

// Module provides an in-memory catalogue client for testing.
// Requires a *zap.Logger to be provided. The backing *memkv.Store is
// provided too, for test setup; an rpc.Invoker and a *netstatus.Monitor
// are used when provided.
var Module = fx.Module("memorycatalogue",
	fx.Provide(
		newStatsCollector,
		newMemStore,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("catalogue.stats"))
}

func newMemStore() *memkv.Store {
	return memkv.New()
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Logger    *zap.Logger
	Collector stats.Collector
	Store     *memkv.Store
	Invoker   rpc.Invoker        `optional:"true"`
	Monitor   *netstatus.Monitor `optional:"true"`
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *catalogue.Client
}

func newClient(p Params) (Result, error) {
	store := snapshot.New(snapshot.Backend(p.Store),
		snapshot.WithLogger(p.Logger.Named("catalogue.snapshot")),
		snapshot.WithStats(p.Collector),
	)

	client, err := catalogue.New(
		catalogue.WithStore(store),
		catalogue.WithInvoker(p.Invoker),
		catalogue.WithMonitor(p.Monitor),
		catalogue.WithStats(p.Collector),
		catalogue.WithLogger(p.Logger.Named("catalogue")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{Client: client}, nil
}
