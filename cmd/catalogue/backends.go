package main

import (
	"context"
	"fmt"

	"github.com/3vilTid/Catalogue-Web-App/internal/codec"
	"github.com/3vilTid/Catalogue-Web-App/internal/codec/gzipcodec"
	"github.com/3vilTid/Catalogue-Web-App/internal/codec/noopcodec"
	"github.com/3vilTid/Catalogue-Web-App/internal/codec/zstdcodec"
	"github.com/3vilTid/Catalogue-Web-App/internal/config"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv/cachestrategy/lru"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/cachedkv/memory"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/diskkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/gcskv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/memkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/rediskv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/s3kv"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/sqlitekv"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition/diskpart"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition/mempart"
	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

// newCodec returns the codec named by name.
func newCodec(name string) (codec.Codec, error) {
	switch name {
	case "", "zstd":
		return zstdcodec.New(), nil
	case "gzip":
		return gzipcodec.New(), nil
	case "none":
		return noopcodec.New(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// storeOpener returns an Opener for the configured structured store
// backend, fronted by an LRU when a cache size is set.
func storeOpener(sc config.StoreConfig, collector stats.Collector) snapshot.Opener {
	return func(ctx context.Context) (kv.Store, error) {
		base, err := openBackend(ctx, sc)
		if err != nil {
			return nil, err
		}
		if sc.CacheSize <= 0 {
			return base, nil
		}
		strategy, err := lru.New(sc.CacheSize)
		if err != nil {
			base.Close()
			return nil, fmt.Errorf("creating LRU strategy: %w", err)
		}
		return cachedkv.New(base, memory.New(strategy, collector)), nil
	}
}

func openBackend(ctx context.Context, sc config.StoreConfig) (kv.Store, error) {
	switch sc.Backend {
	case config.BackendMemory:
		return memkv.New(), nil
	case config.BackendSQLite:
		return sqlitekv.Open(ctx, sc.Path, sqlitekv.WithMkdirAll())
	case config.BackendRedis:
		return rediskv.Open(ctx, sc.Redis)
	}

	c, err := newCodec(sc.Codec)
	if err != nil {
		return nil, err
	}
	switch sc.Backend {
	case config.BackendDisk:
		return diskkv.New(sc.Path, c)
	case config.BackendGCS:
		return gcskv.New(ctx, sc.Bucket, c, gcskv.WithPrefix(sc.Prefix))
	case config.BackendS3:
		opts := []s3kv.Option{s3kv.WithPrefix(sc.Prefix)}
		if sc.Region != "" {
			opts = append(opts, s3kv.WithRegion(sc.Region))
		}
		if sc.Endpoint != "" {
			opts = append(opts, s3kv.WithEndpoint(sc.Endpoint))
		}
		return s3kv.New(ctx, sc.Bucket, c, opts...)
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

// newPartitions returns the partition storage for the interception layer:
// on disk when a directory is configured, in memory otherwise.
func newPartitions(cc config.CacheConfig, codecName string) (partition.Storage, error) {
	if cc.Dir == "" {
		return mempart.New(), nil
	}
	c, err := newCodec(codecName)
	if err != nil {
		return nil, err
	}
	return diskpart.New(cc.Dir, c)
}
