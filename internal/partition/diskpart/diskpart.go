// Package diskpart implements partition storage on the filesystem.
//
// Each partition is a directory under the root; each entry is one
// compressed JSON file named by the SHA-256 of its request key. Directories
// whose names start with a dot are staging areas and never listed.
package diskpart

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/3vilTid/Catalogue-Web-App/internal/codec"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
)

// Compile-time checks.
var (
	_ partition.Storage = (*Storage)(nil)
	_ partition.Cache   = (*Cache)(nil)
)

// Storage is a directory of partitions.
type Storage struct {
	root  string
	codec codec.Codec

	// mu guards the directory layout: readers and single-entry writers
	// share it, PutAll and Delete take it exclusively.
	mu sync.RWMutex
}

// New opens (creating if needed) partition storage rooted at root.
func New(root string, c codec.Codec) (*Storage, error) {
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
	return &Storage{root: root, codec: c}, nil
}

// Root returns the directory the storage lives in.
func (s *Storage) Root() string {
	return s.root
}

// Open returns the named partition, creating its directory if needed.
func (s *Storage) Open(ctx context.Context, name string) (partition.Cache, error) {
	if !partition.ValidName(name) {
		return nil, fmt.Errorf("%w: %q", partition.ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("creating partition %s: %w", name, err)
	}
	return &Cache{storage: s, name: name}, nil
}

// Has reports whether the named partition directory exists.
func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	if !partition.ValidName(name) {
		return false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.dir(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat partition %s: %w", name, err)
	}
	return info.IsDir(), nil
}

// Delete removes the named partition directory.
func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	if !partition.ValidName(name) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.dir(name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("deleting partition %s: %w", name, err)
	}
	return true, nil
}

// Names lists partition directories.
func (s *Storage) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading root directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && partition.ValidName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *Storage) dir(name string) string {
	return filepath.Join(s.root, name)
}

func (s *Storage) fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:]) + ".json"
	if ext := s.codec.Extension(); ext != "" {
		name += "." + ext
	}
	return name
}

func (s *Storage) encode(e *partition.Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding entry: %w", err)
	}
	return codec.Encode(s.codec, data)
}

func (s *Storage) decode(compressed []byte) (*partition.Entry, error) {
	data, err := codec.Decode(s.codec, bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompressing entry: %w", err)
	}
	var e partition.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}
	return &e, nil
}

// Cache is one partition directory.
type Cache struct {
	storage *Storage
	name    string
}

// Name returns the partition name.
func (c *Cache) Name() string { return c.name }

// Match reads the entry for req.
func (c *Cache) Match(ctx context.Context, req *http.Request) (*partition.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := c.storage
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := partition.Key(req)
	compressed, err := os.ReadFile(filepath.Join(s.dir(c.name), s.fileName(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, partition.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading entry: %w", err)
	}

	e, err := s.decode(compressed)
	if err != nil {
		return nil, err
	}
	if e.Key != key {
		return nil, partition.ErrNotFound
	}
	return e, nil
}

// Put writes the entry for req atomically.
func (c *Cache) Put(ctx context.Context, req *http.Request, e *partition.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := c.storage
	stored := e.Clone()
	stored.Key = partition.Key(req)
	data, err := s.encode(stored)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.dir(c.name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating partition %s: %w", c.name, err)
	}
	return writeFileAtomic(filepath.Join(dir, s.fileName(stored.Key)), data)
}

// PutAll writes pairs into an empty staging directory and swaps it in for
// the partition with renames, so readers see either the old contents or
// exactly pairs.
func (c *Cache) PutAll(ctx context.Context, pairs []partition.Pair) error {
	s := c.storage
	files := make(map[string][]byte, len(pairs))
	for _, p := range pairs {
		e := p.Entry.Clone()
		e.Key = partition.Key(p.Request)
		data, err := s.encode(e)
		if err != nil {
			return err
		}
		files[s.fileName(e.Key)] = data
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staging, err := os.MkdirTemp(s.root, ".staging-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	dir := s.dir(c.name)
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(staging, name), data, 0o644); err != nil {
			return fmt.Errorf("staging entry: %w", err)
		}
	}

	retired := staging + "-old"
	if err := os.Rename(dir, retired); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("retiring partition %s: %w", c.name, err)
	}
	if err := os.Rename(staging, dir); err != nil {
		// Put the previous contents back.
		_ = os.Rename(retired, dir)
		return fmt.Errorf("installing partition %s: %w", c.name, err)
	}
	return os.RemoveAll(retired)
}

// Len counts entry files.
func (c *Cache) Len(ctx context.Context) (int, error) {
	s := c.storage
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir(c.name))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading partition %s: %w", c.name, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n, nil
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
