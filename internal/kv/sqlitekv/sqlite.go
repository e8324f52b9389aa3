// Package sqlitekv implements the record store on SQLite.
//
// The schema version lives in PRAGMA user_version and is checked inside the
// same transaction that creates the table, so concurrent opens of one file
// create the schema exactly once.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
)

// Compile-time check that Store implements kv.Store.
var _ kv.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key       TEXT PRIMARY KEY,
	data      BLOB,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS records_timestamp ON records (timestamp);`

// Store is a SQLite-backed record store.
type Store struct {
	db *sql.DB
}

type options struct {
	busyTimeout int
	mkdirAll    bool
}

// Option configures Open.
type Option func(*options)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeout = ms } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// Open opens the database at path and brings its schema to kv.SchemaVersion.
// A database stamped with any other non-zero version is reset.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	cfg := options{busyTimeout: 5000}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlitekv: mkdir: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		// Pragmas in the DSN apply to every pooled connection; immediate
		// transactions keep two openers from racing the schema check.
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate",
			path, cfg.busyTimeout)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitekv: ping: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitekv: begin: %w", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("sqlitekv: read schema version: %w", err)
	}

	switch version {
	case kv.SchemaVersion:
		return tx.Commit()
	case 0:
	default:
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS records"); err != nil {
			return fmt.Errorf("sqlitekv: reset schema v%d: %w", version, err)
		}
	}

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlitekv: create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", kv.SchemaVersion)); err != nil {
		return fmt.Errorf("sqlitekv: stamp schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitekv: commit: %w", err)
	}
	return nil
}

// Get returns the record at key.
func (s *Store) Get(ctx context.Context, key string) (kv.Record, error) {
	var (
		data []byte
		ts   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, timestamp FROM records WHERE key = ?`, key,
	).Scan(&data, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Record{}, kv.ErrNotFound
	}
	if err != nil {
		return kv.Record{}, fmt.Errorf("sqlitekv: get %q: %w", key, err)
	}

	rec := kv.Record{Key: key, Data: data}
	if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return kv.Record{}, fmt.Errorf("sqlitekv: parse timestamp of %q: %w", key, err)
	}
	return rec, nil
}

// Put upserts rec.
func (s *Store) Put(ctx context.Context, rec kv.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (key, data, timestamp) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET data = excluded.data, timestamp = excluded.timestamp`,
		rec.Key, []byte(rec.Data), rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlitekv: put %q: %w", rec.Key, err)
	}
	return nil
}

// Delete removes the record at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlitekv: delete %q: %w", key, err)
	}
	return nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("sqlitekv: clear: %w", err)
	}
	return nil
}

// Keys lists stored keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM records`)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlitekv: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
