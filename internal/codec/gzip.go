package codec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/lodtree/lodtree/internal/schema"
	"github.com/lodtree/lodtree/internal/utils"
)

// GzipCodec compresses chunk payloads with DEFLATE. Compression
// levels below 1 or above 9 are adjusted to 6.
type GzipCodec struct {
	level int
}

// NewGzipCodec builds a GzipCodec at the given compression level.
func NewGzipCodec(level int) *GzipCodec {
	if level < 1 || level > 9 {
		level = 6
	}
	return &GzipCodec{level: level}
}

func (c *GzipCodec) Name() string { return "gzip" }

func (c *GzipCodec) Compress(data []byte, _ schema.Schema) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("codec: gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("codec: gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GzipCodec) Decompress(data []byte, _ schema.Schema, expectedSize int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("codec: gzip reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	out := utils.GetBuffer(expectedSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("codec: gzip decompress: %w", err)
	}
	return out, nil
}
