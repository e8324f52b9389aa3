// Package gzipcodec provides a gzip codec for records that must stay
// readable by standard tools.
package gzipcodec

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/3vilTid/Catalogue-Web-App/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements gzip compression at a fixed level.
type Codec struct {
	level int
}

// New returns a gzip codec tuned for speed.
func New() *Codec {
	return &Codec{level: gzip.BestSpeed}
}

// Name returns "gzip".
func (c *Codec) Name() string { return "gzip" }

// Reader wraps r to decompress gzip data.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Writer wraps w to compress data at the codec's level.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, c.level)
}

// Extension returns "gz".
func (c *Codec) Extension() string { return "gz" }
