// Package gcskv implements the record store on Google Cloud Storage, one
// object per record.
package gcskv

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/3vilTid/Catalogue-Web-App/internal/codec"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
)

// Compile-time check that Store implements kv.Store.
var _ kv.Store = (*Store)(nil)

// Store is a Google Cloud Storage record store.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	codec  codec.Codec
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
	}
}

// New creates a GCS store and checks the schema version object, clearing
// the records when it is missing or different. The bucket must already exist.
func New(ctx context.Context, bucketName string, c codec.Codec, opts ...Option) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s := &Store{
		client: client,
		bucket: client.Bucket(bucketName),
		codec:  c,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureVersion(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureVersion(ctx context.Context) error {
	want := strconv.Itoa(kv.SchemaVersion) + " " + s.codec.Name()

	got, err := s.readObject(ctx, s.versionKey())
	if err == nil && string(got) == want {
		return nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if err := s.Clear(ctx); err != nil {
		return fmt.Errorf("resetting records: %w", err)
	}
	return s.writeObject(ctx, s.versionKey(), []byte(want))
}

// Get reads and decodes the record at key.
func (s *Store) Get(ctx context.Context, key string) (kv.Record, error) {
	compressed, err := s.readObject(ctx, s.recordKey(key))
	if err != nil {
		return kv.Record{}, err
	}

	data, err := codec.Decode(s.codec, bytes.NewReader(compressed))
	if err != nil {
		return kv.Record{}, fmt.Errorf("decompressing record: %w", err)
	}
	var rec kv.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return kv.Record{}, fmt.Errorf("decoding record: %w", err)
	}
	return rec, nil
}

// Put encodes and uploads rec.
func (s *Store) Put(ctx context.Context, rec kv.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	compressed, err := codec.Encode(s.codec, data)
	if err != nil {
		return fmt.Errorf("compressing record: %w", err)
	}
	return s.writeObject(ctx, s.recordKey(rec.Key), compressed)
}

// Delete removes the object for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(s.recordKey(key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// Clear deletes every record object under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	names, err := s.list(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		err := s.bucket.Object(name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("deleting %s: %w", name, err)
		}
	}
	return nil
}

// Keys lists the keys of stored records.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	names, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if key, ok := s.keyFromObject(name); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) list(ctx context.Context) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.recordsPrefix()})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (s *Store) readObject(ctx context.Context, name string) ([]byte, error) {
	reader, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("creating reader: %w", err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *Store) writeObject(ctx context.Context, name string, data []byte) error {
	w := s.bucket.Object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", name, err)
	}
	return nil
}

func (s *Store) versionKey() string {
	return s.prefix + "VERSION"
}

func (s *Store) recordsPrefix() string {
	return s.prefix + "records/"
}

// recordKey returns the full object name for a record key.
func (s *Store) recordKey(key string) string {
	name := hex.EncodeToString([]byte(key))
	if ext := s.codec.Extension(); ext != "" {
		name += "." + ext
	}
	return s.recordsPrefix() + name
}

func (s *Store) keyFromObject(name string) (string, bool) {
	name = strings.TrimPrefix(name, s.recordsPrefix())
	if ext := s.codec.Extension(); ext != "" {
		name = strings.TrimSuffix(name, "."+ext)
	}
	key, err := hex.DecodeString(name)
	if err != nil {
		return "", false
	}
	return string(key), true
}
