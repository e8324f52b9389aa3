// Package partition defines named, versioned buckets of cached HTTP
// responses and the storage that holds them.
package partition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a partition holds no entry for a request.
var ErrNotFound = errors.New("partition: no matching entry")

// ErrInvalidName is returned for partition names that cannot be stored.
var ErrInvalidName = errors.New("partition: invalid name")

// Name identifies a partition by base name and explicit version.
type Name struct {
	Base    string
	Version int
}

// String renders the storage name, e.g. "catalogue-runtime-v10".
func (n Name) String() string {
	return n.Base + "-v" + strconv.Itoa(n.Version)
}

// ParseName splits a storage name produced by Name.String. Names that do
// not carry a version suffix report false.
func ParseName(s string) (Name, bool) {
	i := strings.LastIndex(s, "-v")
	if i <= 0 {
		return Name{}, false
	}
	v, err := strconv.Atoi(s[i+2:])
	if err != nil || v < 0 {
		return Name{}, false
	}
	return Name{Base: s[:i], Version: v}, true
}

// ValidName reports whether name can be used as a partition name.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// Entry is one cached request/response pair.
type Entry struct {
	Key      string      `json:"key"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body,omitempty"`
	StoredAt time.Time   `json:"storedAt"`
}

// Key returns the lookup key for req: method and full URL, query included.
func Key(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// Response materializes a new response for req from the entry. Every call
// returns an independent body.
func (e *Entry) Response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Header = e.Header.Clone()
	c.Body = bytes.Clone(e.Body)
	return &c
}

// EntryFromResponse buffers resp's body into an Entry for req. resp.Body is
// replaced with an equivalent unread body so the caller can still return
// resp.
func EntryFromResponse(req *http.Request, resp *http.Response, now time.Time) (*Entry, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	return &Entry{
		Key:      Key(req),
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     bytes.Clone(body),
		StoredAt: now.UTC(),
	}, nil
}

// Pair is a request and the entry to store for it.
type Pair struct {
	Request *http.Request
	Entry   *Entry
}

// Cache is one partition.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Name returns the partition's storage name.
	Name() string

	// Match returns the entry stored for req, or ErrNotFound.
	Match(ctx context.Context, req *http.Request) (*Entry, error)

	// Put stores e for req, replacing any previous entry.
	Put(ctx context.Context, req *http.Request, e *Entry) error

	// PutAll replaces the partition's contents with pairs. On failure the
	// previous contents are left intact.
	PutAll(ctx context.Context, pairs []Pair) error

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)
}

// Storage holds the set of partitions.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Open returns the named partition, creating it if needed.
	Open(ctx context.Context, name string) (Cache, error)

	// Has reports whether the named partition exists.
	Has(ctx context.Context, name string) (bool, error)

	// Delete removes the named partition and reports whether it existed.
	Delete(ctx context.Context, name string) (bool, error)

	// Names lists every partition.
	Names(ctx context.Context) ([]string, error)
}

// Match looks req up in each named partition in order and returns the
// first hit. Partitions that do not exist are skipped, not created.
func Match(ctx context.Context, s Storage, req *http.Request, names ...string) (*Entry, error) {
	for _, name := range names {
		ok, err := s.Has(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("checking partition %s: %w", name, err)
		}
		if !ok {
			continue
		}
		c, err := s.Open(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("opening partition %s: %w", name, err)
		}
		e, err := c.Match(ctx, req)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("matching in %s: %w", name, err)
		}
		return e, nil
	}
	return nil, ErrNotFound
}
