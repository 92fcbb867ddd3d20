package codec

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/lodtree/lodtree/internal/schema"
	"github.com/lodtree/lodtree/internal/utils"
)

// SnappyCodec compresses chunk payloads with Snappy block compression,
// trading compression ratio for throughput on the write hot path.
type SnappyCodec struct{}

func NewSnappyCodec() *SnappyCodec { return &SnappyCodec{} }

func (c *SnappyCodec) Name() string { return "snappy" }

func (c *SnappyCodec) Compress(data []byte, _ schema.Schema) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c *SnappyCodec) Decompress(data []byte, _ schema.Schema, expectedSize int) ([]byte, error) {
	out, err := snappy.Decode(utils.GetBuffer(expectedSize), data)
	if err != nil {
		return nil, fmt.Errorf("codec: snappy decompress: %w", err)
	}
	if len(out) != expectedSize {
		return nil, fmt.Errorf("codec: snappy decompress: got %d bytes, want %d", len(out), expectedSize)
	}
	return out, nil
}
