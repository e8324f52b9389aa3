// Package s3kv implements the record store on AWS S3 or an S3-compatible
// service, one object per record.
package s3kv

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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/3vilTid/Catalogue-Web-App/internal/codec"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
)

// Compile-time check that Store implements kv.Store.
var _ kv.Store = (*Store)(nil)

// Store is an S3 record store.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	codec  codec.Codec
}

// Option configures a Store.
type Option func(*Store) error

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) error {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
		return nil
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(s *Store) error {
		cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
		if err != nil {
			return fmt.Errorf("loading AWS config with region: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
		return nil
	}
}

// WithEndpoint sets a custom endpoint (for S3-compatible services like MinIO).
func WithEndpoint(endpoint string) Option {
	return func(s *Store) error {
		cfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			return fmt.Errorf("loading AWS config for endpoint: %w", err)
		}
		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
		return nil
	}
}

// New creates an S3 store and checks the schema version object, clearing the
// records when it is missing or different. The bucket must already exist.
func New(ctx context.Context, bucketName string, c codec.Codec, opts ...Option) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	s := &Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucketName,
		codec:  c,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := s.ensureVersion(ctx); err != nil {
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

// Delete removes the object for key. S3 deletes are idempotent.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(key)),
	})
	if err != nil {
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
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(name),
		})
		if err != nil {
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
	// S3 client doesn't need explicit closing.
	return nil
}

func (s *Store) list(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.recordsPrefix()),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, aws.ToString(obj.Key))
		}
	}
	return names, nil
}

func (s *Store) readObject(ctx context.Context, name string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}

func (s *Store) writeObject(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (s *Store) versionKey() string {
	return s.prefix + "VERSION"
}

func (s *Store) recordsPrefix() string {
	return s.prefix + "records/"
}

// recordKey returns the full object key for a record key.
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
