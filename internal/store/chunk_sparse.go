package store

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lodtree/lodtree/internal/bignum"
	"github.com/lodtree/lodtree/internal/codec"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/metrics"
	"github.com/lodtree/lodtree/internal/octree"
	"github.com/lodtree/lodtree/internal/pointpool"
	"github.com/lodtree/lodtree/internal/schema"
)

// SparseChunk backs a wide id-range with a map, used once a tree is
// deep enough that most nodes in a chunk's range are expected to stay
// empty and an array of that width would waste memory for nothing.
type SparseChunk struct {
	meta
	mu    sync.Mutex
	tubes map[uint64]*Tube
}

// NewSparseChunk creates an empty sparse chunk covering
// [id, id+maxPoints).
func NewSparseChunk(s schema.Schema, structure *geom.Structure, pool *pointpool.Pool, rootBBox geom.BBox, depth int, id bignum.Id, maxPoints uint64, c codec.Codec) *SparseChunk {
	chunk := &SparseChunk{
		meta:  newMeta(s, structure, pool, rootBBox, depth, id, maxPoints, c),
		tubes: make(map[uint64]*Tube),
	}
	metrics.AddChunk(0)
	return chunk
}

// GetCell returns the cell for climber's current position, creating
// its Tube on first touch. The lock is held only long enough to get
// or create the Tube reference; all further work happens on the Tube
// itself, which carries its own map.
func (c *SparseChunk) GetCell(climber *octree.Climber) (*Cell, bool, error) {
	norm := c.normalize(climber.Index())
	tube := c.tubeLocked(norm)

	created, cell := tube.GetCell(climber.Tick())
	if created {
		atomic.AddInt64(&c.numPoints, 1)
		metrics.AddBytes(int64(c.schema.PointSize()))
	}
	return cell, created, nil
}

// Cells returns the populated cells at raw's normalized index, reading
// the tube directly rather than through GetCell so a miss stays a miss.
func (c *SparseChunk) Cells(raw bignum.Id) []*Cell {
	norm := c.normalize(raw)

	c.mu.Lock()
	tube := c.tubes[norm]
	c.mu.Unlock()
	if tube == nil {
		return nil
	}

	ticks := tube.Ticks()
	cells := make([]*Cell, 0, len(ticks))
	for _, tick := range ticks {
		if cell, ok := tube.Cell(tick); ok {
			cells = append(cells, cell)
		}
	}
	return cells
}

func (c *SparseChunk) tubeLocked(norm uint64) *Tube {
	c.mu.Lock()
	defer c.mu.Unlock()

	tube, ok := c.tubes[norm]
	if !ok {
		tube = NewTube()
		c.tubes[norm] = tube
	}
	return tube
}

// Serialize walks populated indices in ascending order, emitting one
// record per occupied tick of every tube.
func (c *SparseChunk) Serialize() ([]byte, error) {
	c.mu.Lock()
	indices := make([]uint64, 0, len(c.tubes))
	for norm := range c.tubes {
		indices = append(indices, norm)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	var records []record
	for _, norm := range indices {
		tube := c.tubes[norm]
		for _, tick := range tube.Ticks() {
			cell, _ := tube.Cell(tick)
			records = append(records, record{normIndex: norm, tick: tick, cell: cell})
		}
	}
	c.mu.Unlock()

	body, err := c.serializeRecords(records)
	if err != nil {
		return nil, err
	}
	return PushTail(body, uint64(len(records)), TailSparse), nil
}

// LoadSparseChunk restores a sparse chunk from a compressed body
// (the tail already stripped by the caller).
func LoadSparseChunk(s schema.Schema, structure *geom.Structure, pool *pointpool.Pool, rootBBox geom.BBox, depth int, id bignum.Id, maxPoints uint64, c codec.Codec, body []byte, numPoints uint64) (*SparseChunk, error) {
	chunk := NewSparseChunk(s, structure, pool, rootBBox, depth, id, maxPoints, c)

	records, err := chunk.deserializeRecords(body, numPoints)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		cell, err := chunk.acquireCell(r.point, r.native)
		if err != nil {
			return nil, err
		}
		tube := chunk.tubeLocked(r.normIndex)
		tickDepth, tickBBox := chunk.depthAndBBoxFor(r.normIndex)
		tube.AddCell(geom.CalcTick(r.point, tickBBox, tickDepth), cell)
	}
	atomic.StoreInt64(&chunk.numPoints, int64(numPoints))
	metrics.AddBytes(int64(numPoints) * int64(s.PointSize()))
	return chunk, nil
}
