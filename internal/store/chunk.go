package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/lodtree/lodtree/internal/bignum"
	"github.com/lodtree/lodtree/internal/codec"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/metrics"
	"github.com/lodtree/lodtree/internal/octerr"
	"github.com/lodtree/lodtree/internal/octree"
	"github.com/lodtree/lodtree/internal/pointpool"
	"github.com/lodtree/lodtree/internal/schema"
	"github.com/lodtree/lodtree/internal/utils"
)

// Tail type bytes, appended after a chunk's compressed body so a
// reader can size its decompression buffer and pick its variant
// before touching a single record.
const (
	TailSparse     uint8 = 0
	TailContiguous uint8 = 1
)

const tailSize = 9 // 8-byte little-endian numPoints + 1-byte type

// PushTail appends a chunk's trailer to its compressed body: the
// point count, then the variant byte. Readers consume both
// back-to-front, since the compressed body's own length is only
// known once the trailer has been stripped.
func PushTail(body []byte, numPoints uint64, kind uint8) []byte {
	var buf [tailSize]byte
	binary.LittleEndian.PutUint64(buf[:8], numPoints)
	buf[8] = kind
	return append(body, buf[:]...)
}

// PopTail strips and parses a chunk blob's trailer, returning the
// remaining compressed body.
func PopTail(blob []byte) (body []byte, numPoints uint64, kind uint8, err error) {
	if len(blob) < tailSize {
		return nil, 0, 0, fmt.Errorf("store: blob of %d bytes too short for tail: %w", len(blob), octerr.ErrMalformedBlob)
	}
	tail := blob[len(blob)-tailSize:]
	kind = tail[8]
	if kind != TailSparse && kind != TailContiguous {
		return nil, 0, 0, fmt.Errorf("store: tail type %d unrecognized: %w", kind, octerr.ErrMalformedBlob)
	}
	numPoints = binary.LittleEndian.Uint64(tail[:8])
	if err := utils.ValidateChunkPointCount(numPoints); err != nil {
		return nil, 0, 0, fmt.Errorf("store: %w: %w", err, octerr.ErrMalformedBlob)
	}
	return blob[:len(blob)-tailSize], numPoints, kind, nil
}

// Chunk is a persistable unit spanning the contiguous id-range
// [Id, Id+MaxPoints). It groups the Tubes for every node in that
// range and knows how to serialize and restore them.
type Chunk interface {
	// GetCell returns (creating if necessary) the Cell a climb
	// terminating at climber belongs to.
	GetCell(climber *octree.Climber) (cell *Cell, created bool, err error)
	Id() bignum.Id
	MaxPoints() uint64
	Depth() int
	BBox() geom.BBox
	NumPoints() uint64
	// Bytes reports the chunk's current resident payload footprint,
	// for the caller's eviction cache to reverse out of the
	// process-wide counters when the chunk is dropped.
	Bytes() int64
	// Serialize packs every populated cell into a compressed, tailed
	// blob in the deterministic order spec'd for reproducible builds:
	// ascending normalized index, then ascending tick.
	Serialize() ([]byte, error)
	// Cells returns the populated cells at the node with global index
	// raw, one per occupied tick of its Tube, without creating
	// anything. Used by the read path, which must never fabricate an
	// empty cell the way GetCell's write-path contract does.
	Cells(raw bignum.Id) []*Cell
}

// meta holds the fields and helpers shared by both Chunk variants.
// Embedding it, rather than composing via an interface, mirrors how
// the two variants really do share everything except tube storage.
type meta struct {
	schema    schema.Schema
	celled    schema.Schema
	structure *geom.Structure
	pool      *pointpool.Pool
	rootBBox  geom.BBox
	bbox      geom.BBox
	depth     int
	id        bignum.Id
	maxPoints uint64
	codec     codec.Codec

	numPoints int64
}

func newMeta(s schema.Schema, structure *geom.Structure, pool *pointpool.Pool, rootBBox geom.BBox, depth int, id bignum.Id, maxPoints uint64, c codec.Codec) meta {
	return meta{
		schema:    s,
		celled:    schema.CelledSchema(s),
		structure: structure,
		pool:      pool,
		rootBBox:  rootBBox,
		bbox:      geom.BBoxAt(structure.Dimensions, structure.Factor, rootBBox, id),
		depth:     depth,
		id:        id,
		maxPoints: maxPoints,
		codec:     c,
	}
}

func (m *meta) Id() bignum.Id     { return m.id }
func (m *meta) MaxPoints() uint64 { return m.maxPoints }
func (m *meta) Depth() int        { return m.depth }
func (m *meta) BBox() geom.BBox   { return m.bbox }
func (m *meta) NumPoints() uint64 { return uint64(atomic.LoadInt64(&m.numPoints)) }

// Bytes is the chunk's native-payload footprint: point count times the
// native (uncelled) point size, matching what AddBytes/AddChunk tracked
// as this chunk's points arrived.
func (m *meta) Bytes() int64 {
	return int64(atomic.LoadInt64(&m.numPoints)) * int64(m.schema.PointSize())
}

// normalize maps a global node index into this chunk's local
// [0, maxPoints) range. raw outside that range is a programmer error:
// the caller routed a climb to the wrong chunk.
func (m *meta) normalize(raw bignum.Id) uint64 {
	if raw.Less(m.id) {
		octerr.OutOfRangeId(raw.String(), m.id.String(), m.maxPoints)
	}
	off := raw.Sub(m.id).Simple()
	if off >= m.maxPoints {
		octerr.OutOfRangeId(raw.String(), m.id.String(), m.maxPoints)
	}
	return off
}

// record is one populated (node, tick) pair ready to be written out,
// or just read back in.
type record struct {
	normIndex uint64
	tick      uint64
	cell      *Cell
}

// serializeRecords packs records, already in their required
// deterministic order, into a compressed celled-schema blob.
func (m *meta) serializeRecords(records []record) ([]byte, error) {
	native := int(m.schema.PointSize())
	raw := make([]byte, 0, len(records)*(8+native))
	for _, r := range records {
		var idx [8]byte
		binary.LittleEndian.PutUint64(idx[:], r.normIndex)
		raw = append(raw, idx[:]...)
		raw = append(raw, m.pool.Get(r.cell.Handle)...)
	}
	return m.codec.Compress(raw, m.celled)
}

// loadedRecord is one decoded record from a restored blob: the node
// it belongs to and its raw native payload, not yet placed in a Tube
// (placement needs the owning chunk's tubes, which differ by variant).
type loadedRecord struct {
	normIndex uint64
	point     geom.Point
	native    []byte
}

// deserializeRecords decompresses body into loadedRecords.
func (m *meta) deserializeRecords(body []byte, numPoints uint64) ([]loadedRecord, error) {
	native := int(m.schema.PointSize())
	celledSize := native + 8
	expected64, err := utils.CalculatePayloadSize(numPoints, uint32(celledSize))
	if err != nil {
		return nil, fmt.Errorf("store: chunk body size: %w: %w", err, octerr.ErrMalformedBlob)
	}
	if expected64 > 0 {
		if err := utils.ValidateBufferSize(expected64, utils.MaxChunkPayload, "chunk payload"); err != nil {
			return nil, fmt.Errorf("store: %w: %w", err, octerr.ErrMalformedBlob)
		}
	}
	expected := int(expected64)

	raw, err := m.codec.Decompress(body, m.celled, expected)
	if err != nil {
		return nil, fmt.Errorf("store: decompress chunk body: %w", err)
	}
	if len(raw) != expected {
		return nil, fmt.Errorf("store: decompressed %d bytes, want %d: %w", len(raw), expected, octerr.ErrMalformedBlob)
	}
	defer utils.ReleaseBuffer(raw)

	xDim, err := m.schema.Find("X")
	if err != nil {
		return nil, err
	}
	yDim, err := m.schema.Find("Y")
	if err != nil {
		return nil, err
	}
	zDim, err := m.schema.Find("Z")
	if err != nil {
		return nil, err
	}

	out := make([]loadedRecord, numPoints)
	for i := range out {
		rec := raw[i*celledSize : (i+1)*celledSize]
		normIndex := binary.LittleEndian.Uint64(rec[:8])
		native := append([]byte(nil), rec[8:]...)

		point := geom.Point{
			X: readFloat64(native, xDim.Offset),
			Y: readFloat64(native, yDim.Offset),
			Z: readFloat64(native, zDim.Offset),
		}

		out[i] = loadedRecord{normIndex: normIndex, point: point, native: native}
	}
	return out, nil
}

func readFloat64(b []byte, offset uint32) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[offset : offset+8]))
}

// depthAndBBoxFor returns the depth and box to feed CalcTick when
// restoring the cell at normIndex. Every variant other than the base
// chunk carries one depth for every node it owns, so depth itself is
// always m.depth; but the box is per-node, not per-chunk, since a 3D
// structure's Octant split carves up Z and gives siblings at the same
// depth different Z sub-ranges. m.bbox is only the box of the chunk's
// own base id (node normIndex 0); every other node needs its own box
// recomputed the same way the base chunk's per-node depth-0 case
// already does.
func (m *meta) depthAndBBoxFor(normIndex uint64) (int, geom.BBox) {
	if normIndex == 0 {
		return m.depth, m.bbox
	}
	globalIndex := m.id.AddUint64(normIndex)
	depth := m.depth
	if m.depth == 0 {
		depth = geom.DepthOf(m.structure.Factor, globalIndex)
	}
	box := geom.BBoxAt(m.structure.Dimensions, m.structure.Factor, m.rootBBox, globalIndex)
	return depth, box
}

func (m *meta) acquireCell(point geom.Point, native []byte) (*Cell, error) {
	h, err := m.pool.Acquire(point, native)
	if err != nil {
		return nil, err
	}
	return &Cell{Point: point, Handle: h, Payload: true}, nil
}

// LoadChunk strips blob's tail to pick the variant it was saved as,
// then restores it.
func LoadChunk(s schema.Schema, structure *geom.Structure, pool *pointpool.Pool, rootBBox geom.BBox, depth int, id bignum.Id, maxPoints uint64, c codec.Codec, blob []byte) (Chunk, error) {
	body, numPoints, kind, err := PopTail(blob)
	if err != nil {
		return nil, err
	}
	switch kind {
	case TailContiguous:
		return LoadContiguousChunk(s, structure, pool, rootBBox, depth, id, maxPoints, c, body, numPoints)
	case TailSparse:
		return LoadSparseChunk(s, structure, pool, rootBBox, depth, id, maxPoints, c, body, numPoints)
	default:
		return nil, fmt.Errorf("store: tail type %d unrecognized: %w", kind, octerr.ErrMalformedBlob)
	}
}
