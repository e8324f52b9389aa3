// Package diskkv implements a filesystem record store: one compressed file
// per key.
package diskkv

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/3vilTid/Catalogue-Web-App/internal/codec"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv"
)

// Compile-time check that Store implements kv.Store.
var _ kv.Store = (*Store)(nil)

const (
	recordsDir  = "records"
	versionFile = "VERSION"
)

// Store is a disk-based record store.
type Store struct {
	root  string
	codec codec.Codec
}

// New opens (creating if needed) a disk store rooted at root.
//
// The root holds a VERSION file with the schema version and codec name. When
// it does not match, the records directory is discarded and recreated: records
// written under another layout are never read back.
func New(root string, c codec.Codec) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	s := &Store{root: root, codec: c}
	if err := s.ensureVersion(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get reads and decodes the record at key.
func (s *Store) Get(ctx context.Context, key string) (kv.Record, error) {
	if err := ctx.Err(); err != nil {
		return kv.Record{}, err
	}

	compressed, err := os.ReadFile(s.recordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return kv.Record{}, kv.ErrNotFound
		}
		return kv.Record{}, fmt.Errorf("reading record: %w", err)
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

// Put encodes rec and replaces the file for its key atomically.
func (s *Store) Put(ctx context.Context, rec kv.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	compressed, err := codec.Encode(s.codec, data)
	if err != nil {
		return fmt.Errorf("compressing record: %w", err)
	}
	return writeFileAtomic(s.recordPath(rec.Key), compressed)
}

// Delete removes the file for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.recordPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing record: %w", err)
	}
	return nil
}

// Clear removes every record file.
func (s *Store) Clear(ctx context.Context) error {
	dir := filepath.Join(s.root, recordsDir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing records: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating records directory: %w", err)
	}
	return nil
}

// Keys lists the keys of stored records.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, recordsDir))
	if err != nil {
		return nil, fmt.Errorf("reading records directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		if ext := s.codec.Extension(); ext != "" {
			name = strings.TrimSuffix(name, "."+ext)
		}
		key, err := hex.DecodeString(name)
		if err != nil {
			continue
		}
		keys = append(keys, string(key))
	}
	return keys, nil
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	return nil
}

// Root returns the directory the store lives in.
func (s *Store) Root() string {
	return s.root
}

// recordPath returns the filesystem path for a key.
func (s *Store) recordPath(key string) string {
	return filepath.Join(s.root, recordsDir, s.recordName(key))
}

// recordName hex-encodes key so any key is a valid file name.
func (s *Store) recordName(key string) string {
	name := hex.EncodeToString([]byte(key))
	if ext := s.codec.Extension(); ext != "" {
		name += "." + ext
	}
	return name
}

func (s *Store) versionStamp() string {
	return strconv.Itoa(kv.SchemaVersion) + " " + s.codec.Name() + "\n"
}

func (s *Store) ensureVersion() error {
	path := filepath.Join(s.root, versionFile)
	dir := filepath.Join(s.root, recordsDir)

	current, err := os.ReadFile(path)
	switch {
	case err == nil && string(current) == s.versionStamp():
		return os.MkdirAll(dir, 0o755)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading version: %w", err)
	}

	// Missing or foreign version: start from an empty records directory.
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("resetting records: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating records directory: %w", err)
	}
	return writeFileAtomic(path, []byte(s.versionStamp()))
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
