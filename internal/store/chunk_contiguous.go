package store

import (
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

// ContiguousChunk backs a dense id-range with an array, one slot per
// normalized index. It is the variant used while the tree is shallow
// enough that every node in the range is expected to be populated,
// and it is always the variant used for the base chunk spanning the
// root down through the nominal chunk depth.
type ContiguousChunk struct {
	meta
	mu    sync.Mutex
	tubes []*Tube
}

// NewContiguousChunk creates an empty contiguous chunk covering
// [id, id+maxPoints).
func NewContiguousChunk(s schema.Schema, structure *geom.Structure, pool *pointpool.Pool, rootBBox geom.BBox, depth int, id bignum.Id, maxPoints uint64, c codec.Codec) *ContiguousChunk {
	chunk := &ContiguousChunk{
		meta:  newMeta(s, structure, pool, rootBBox, depth, id, maxPoints, c),
		tubes: make([]*Tube, maxPoints),
	}
	metrics.AddChunk(0)
	return chunk
}

// GetCell returns the cell for climber's current position, creating
// its Tube on first touch. Concurrent calls for distinct indices never
// contend past the lock that guards the tubes slice itself.
func (c *ContiguousChunk) GetCell(climber *octree.Climber) (*Cell, bool, error) {
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
func (c *ContiguousChunk) Cells(raw bignum.Id) []*Cell {
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

func (c *ContiguousChunk) tubeLocked(norm uint64) *Tube {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tubes[norm] == nil {
		c.tubes[norm] = NewTube()
	}
	return c.tubes[norm]
}

// Serialize walks every index in order, emitting one record per
// occupied tick of every populated tube.
func (c *ContiguousChunk) Serialize() ([]byte, error) {
	c.mu.Lock()
	var records []record
	for norm, tube := range c.tubes {
		if tube == nil {
			continue
		}
		for _, tick := range tube.Ticks() {
			cell, _ := tube.Cell(tick)
			records = append(records, record{normIndex: uint64(norm), tick: tick, cell: cell})
		}
	}
	c.mu.Unlock()

	body, err := c.serializeRecords(records)
	if err != nil {
		return nil, err
	}
	return PushTail(body, uint64(len(records)), TailContiguous), nil
}

// LoadContiguousChunk restores a contiguous chunk from a compressed
// body (the tail already stripped by the caller).
func LoadContiguousChunk(s schema.Schema, structure *geom.Structure, pool *pointpool.Pool, rootBBox geom.BBox, depth int, id bignum.Id, maxPoints uint64, c codec.Codec, body []byte, numPoints uint64) (*ContiguousChunk, error) {
	chunk := NewContiguousChunk(s, structure, pool, rootBBox, depth, id, maxPoints, c)

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
