// Package kv defines the keyed record storage interface behind the snapshot
// store.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("kv: record not found")

// SchemaVersion is the on-disk layout version every backend stamps into its
// storage at open time. A backend that finds a different version resets its
// storage rather than reading records it does not understand.
const SchemaVersion = 1

// Record is one stored value. Timestamp is set when the record is written and
// is never changed afterwards.
type Record struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store defines the interface for record storage backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the record stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)

	// Put upserts rec, replacing any record with the same key.
	Put(ctx context.Context, rec Record) error

	// Delete removes the record at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Keys lists the keys of all stored records in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
