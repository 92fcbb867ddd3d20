// Package codec provides the compression collaborator the chunk
// storage engine treats as opaque: it compresses and decompresses a
// byte sequence against a schema, knowing nothing about tubes, cells,
// or tails.
package codec

import "github.com/lodtree/lodtree/internal/schema"

// Codec compresses and decompresses the packed celled-record payload
// that makes up a chunk's serialized body. The schema argument lets
// implementations that can exploit column layout (e.g. per-field
// delta coding) do so; the gzip and snappy codecs here ignore it.
type Codec interface {
	// Name identifies the codec in tree metadata so a reader can pick
	// the matching Decompress implementation.
	Name() string
	Compress(data []byte, s schema.Schema) ([]byte, error)
	// Decompress expects the caller to supply the exact decompressed
	// byte count, per the collaborator contract (spec section 6). The
	// returned slice is drawn from utils's shared buffer pool; once the
	// caller is done reading it, it should hand it back with
	// utils.ReleaseBuffer rather than let it go to the garbage collector.
	Decompress(data []byte, s schema.Schema, expectedSize int) ([]byte, error)
}
