// Package octree implements the addressing scheme used to place
// points in a level-of-detail octree: Climber walks a single point
// down the tree, SplitClimber walks a bounded region across it.
package octree

import (
	"fmt"

	"github.com/lodtree/lodtree/internal/bignum"
	"github.com/lodtree/lodtree/internal/geom"
)

// Climber is a stateful cursor that maps a point to a path of (node
// index, chunk id, depth, tick) down the tree, one octant at a time.
// A Climber is single-use: create a fresh one per point, or Reset it.
type Climber struct {
	structure *geom.Structure
	rootBBox  geom.BBox

	index      bignum.Id
	levelIndex bignum.Id
	chunkId    bignum.Id
	chunkNum   uint64
	depth      int

	chunkPoints uint64
	depthChunks uint64

	bbox geom.BBox

	lastPoint geom.Point
}

// NewClimber creates a Climber positioned at the root of a tree with
// the given geometry.
func NewClimber(structure *geom.Structure, rootBBox geom.BBox) *Climber {
	c := &Climber{structure: structure, rootBBox: rootBBox}
	c.Reset()
	return c
}

// Reset returns the Climber to the root, ready to descend for a new
// point.
func (c *Climber) Reset() {
	c.index = bignum.FromUint64(0)
	c.levelIndex = bignum.FromUint64(0)
	c.chunkId = bignum.FromUint64(0)
	c.chunkNum = 0
	c.depth = 0
	c.chunkPoints = c.structure.BaseChunkPoints
	c.depthChunks = 1
	c.bbox = c.rootBBox
	c.lastPoint = geom.NonExistent
}

// Magnify computes the octant of point relative to the current bbox's
// midpoint, descends into the matching sub-bbox, and calls climb with
// the chosen octant code. Bit 0 of the octant is east, bit 1 is
// north, bit 2 is up (3D structures only).
func (c *Climber) Magnify(point geom.Point) error {
	if !c.bbox.Contains(point) {
		return fmt.Errorf("octree: magnify %+v outside bbox %+v: %w", point, c.bbox, ErrOutOfBounds)
	}

	mid := c.bbox.Mid()
	dir := 0
	if point.X >= mid.X {
		dir |= 1
	}
	if point.Y >= mid.Y {
		dir |= 2
	}
	if c.structure.Dimensions == 3 && point.Z >= mid.Z {
		dir |= 4
	}

	c.bbox = c.bbox.Octant(dir, c.structure.Dimensions)
	c.lastPoint = point
	c.climb(dir)
	return nil
}

// Descend advances the Climber by one octant, the same state
// transition Magnify performs, but driven by an already-known octant
// code rather than a point to classify. Used by traversal code (a
// SplitClimber's recorded octant path) that needs a node's chunk
// binding without re-deriving the octant from spatial coordinates.
func (c *Climber) Descend(dir int) {
	c.bbox = c.bbox.Octant(dir, c.structure.Dimensions)
	c.climb(dir)
}

// climb advances depth and updates index, levelIndex, chunkId,
// chunkNum, chunkPoints, and depthChunks per the octant just chosen.
func (c *Climber) climb(dir int) {
	dim := uint(c.structure.Dimensions)

	c.depth++
	c.index = c.index.Lsh(dim).AddUint64(1 + uint64(dir))
	c.levelIndex = c.levelIndex.Lsh(dim).AddUint64(1)

	if c.depth <= c.structure.NominalChunkDepth {
		return
	}

	factor := c.structure.Factor
	sparseBegin := c.structure.SparseDepthBegin

	if sparseBegin == 0 || c.depth < sparseBegin {
		perOctant := c.chunkPoints / factor
		chunkRatio := c.index.Sub(c.chunkId).Simple() / perOctant
		if chunkRatio >= factor {
			panic(fmt.Sprintf("octree: chunkRatio %d out of range [0, %d)", chunkRatio, factor))
		}
		c.chunkId = c.chunkId.Lsh(dim).AddUint64(1 + chunkRatio*c.chunkPoints)
		if c.depth >= c.structure.ColdDepthBegin {
			c.chunkNum = c.chunkId.Sub(c.structure.ColdIndexBegin).DivUint64(c.chunkPoints).Simple()
		}
		c.depthChunks *= factor
	} else {
		// Sparse chunks are windows of chunkPoints consecutive global
		// indices, so the chunk owning the current node is found by
		// flooring the real index to the nearest chunkPoints boundary.
		// A position-independent recurrence off the parent chunkId
		// cannot reproduce that: it never revisits the real index, so
		// sibling octants sharing one chunkId-growth step would all
		// compute the same chunkId regardless of which one was taken,
		// and that chunkId would drift arbitrarily far from the index
		// it is supposed to bound once several sparse levels have
		// passed without ever having run the ratio branch above.
		c.chunkNum += c.depthChunks
		c.chunkPoints *= factor
		windows := c.index.DivUint64(c.chunkPoints)
		c.chunkId = windows.MulUint64(c.chunkPoints)
	}
}

// Index returns the current node's global id.
func (c *Climber) Index() bignum.Id { return c.index }

// ChunkId returns the id of the chunk owning the current node.
func (c *Climber) ChunkId() bignum.Id { return c.chunkId }

// ChunkNum returns the ordinal of the current chunk within cold
// storage.
func (c *Climber) ChunkNum() uint64 { return c.chunkNum }

// Depth returns the current depth, the root being depth 0.
func (c *Climber) Depth() int { return c.depth }

// ChunkPoints returns the current chunk's node-id span.
func (c *Climber) ChunkPoints() uint64 { return c.chunkPoints }

// BBox returns the current node's bounding box.
func (c *Climber) BBox() geom.BBox { return c.bbox }

// RootBBox returns the tree's root bounding box, needed by the
// storage layer to recompute a node's box from its index alone.
func (c *Climber) RootBBox() geom.BBox { return c.rootBBox }

// Tick returns the vertical bin of the last climbed point within its
// node's Tube, disambiguating points whose lineage collapsed onto the
// same node. It is a function of the current bbox and depth alone, so
// it can be recomputed identically from a stored point at load time:
// the point's Z is placed among 2^depth bins spanning the current
// bbox's Z extent. A 2D structure never carves up Z, so that extent
// stays the full root span at every depth; a 3D structure has already
// narrowed it to the node's own slice, so the bins subdivide that
// slice and points of one node at different heights still get
// different ticks.
func (c *Climber) Tick() uint64 {
	return geom.CalcTick(c.lastPoint, c.bbox, c.depth)
}
