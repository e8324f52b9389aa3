// Package rediskv implements the record store on Redis. All records live in
// one hash so Clear is a single DEL.
package rediskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
)

// Compile-time check that Store implements kv.Store.
var _ kv.Store = (*Store)(nil)

// DefaultPrefix namespaces the keys the store writes.
const DefaultPrefix = "catalogue"

// ErrEmptyAddress is returned when no Redis address is configured.
var ErrEmptyAddress = errors.New("rediskv: address is required")

// connectionTimeout bounds the initial ping.
const connectionTimeout = 5 * time.Second

// Config holds Redis connection configuration.
type Config struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
}

// Store is a Redis-backed record store.
type Store struct {
	client  *redis.Client
	records string
	version string
	owned   bool
}

// Open connects to Redis, verifies the connection and checks the schema
// version, resetting the records hash when it differs.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("rediskv: ping failed: %w", err)
	}

	s, err := New(ctx, client, cfg.Prefix)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing client. The caller keeps ownership of client.
func New(ctx context.Context, client *redis.Client, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := &Store{
		client:  client,
		records: prefix + ":records",
		version: prefix + ":version",
	}
	if err := s.ensureVersion(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureVersion(ctx context.Context) error {
	want := strconv.Itoa(kv.SchemaVersion)

	got, err := s.client.Get(ctx, s.version).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("rediskv: read schema version: %w", err)
	}
	if got == want {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.records)
		pipe.Set(ctx, s.version, want, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rediskv: reset schema: %w", err)
	}
	return nil
}

// Get returns the record at key.
func (s *Store) Get(ctx context.Context, key string) (kv.Record, error) {
	data, err := s.client.HGet(ctx, s.records, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return kv.Record{}, kv.ErrNotFound
	}
	if err != nil {
		return kv.Record{}, fmt.Errorf("rediskv: get %q: %w", key, err)
	}

	var rec kv.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return kv.Record{}, fmt.Errorf("rediskv: decode %q: %w", key, err)
	}
	return rec, nil
}

// Put upserts rec.
func (s *Store) Put(ctx context.Context, rec kv.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("rediskv: encode %q: %w", rec.Key, err)
	}
	if err := s.client.HSet(ctx, s.records, rec.Key, data).Err(); err != nil {
		return fmt.Errorf("rediskv: put %q: %w", rec.Key, err)
	}
	return nil
}

// Delete removes the record at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.records, key).Err(); err != nil {
		return fmt.Errorf("rediskv: delete %q: %w", key, err)
	}
	return nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.records).Err(); err != nil {
		return fmt.Errorf("rediskv: clear: %w", err)
	}
	return nil
}

// Keys lists stored keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.records).Result()
	if err != nil {
		return nil, fmt.Errorf("rediskv: keys: %w", err)
	}
	return keys, nil
}

// Close closes the client if Open created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
