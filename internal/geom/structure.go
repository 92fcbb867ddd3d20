package geom

import (
	"fmt"

	"github.com/lodtree/lodtree/internal/bignum"
)

// Structure is the pure value object describing how a tree is shaped:
// branching factor, dimensionality, and the depth thresholds at which
// chunking behavior changes (nominal -> cold -> sparse). It is
// constructed once per tree and never mutated.
type Structure struct {
	Dimensions        int
	Factor            uint64
	NominalChunkDepth int
	ColdDepthBegin    int
	SparseDepthBegin  int // 0 means sparse storage is disabled
	BaseChunkPoints   uint64

	// NominalChunkIndex and ColdIndexBegin are the node index of the
	// first node at NominalChunkDepth and ColdDepthBegin respectively,
	// derived once so climbers don't recompute a geometric sum on
	// every step.
	NominalChunkIndex bignum.Id
	ColdIndexBegin    bignum.Id
}

// NewStructure validates and builds a Structure, precomputing the
// depth-boundary indices used by Climber and SplitClimber.
func NewStructure(dimensions, nominalChunkDepth, coldDepthBegin, sparseDepthBegin int, baseChunkPoints uint64) (*Structure, error) {
	if dimensions != 2 && dimensions != 3 {
		return nil, fmt.Errorf("geom: dimensions must be 2 or 3, got %d", dimensions)
	}
	if coldDepthBegin < nominalChunkDepth {
		return nil, fmt.Errorf("geom: coldDepthBegin (%d) must be >= nominalChunkDepth (%d)", coldDepthBegin, nominalChunkDepth)
	}
	if sparseDepthBegin != 0 && sparseDepthBegin <= coldDepthBegin {
		return nil, fmt.Errorf("geom: sparseDepthBegin (%d) must be > coldDepthBegin (%d) when enabled", sparseDepthBegin, coldDepthBegin)
	}
	if baseChunkPoints == 0 {
		return nil, fmt.Errorf("geom: baseChunkPoints must be non-zero")
	}

	factor := uint64(1) << uint(dimensions)

	s := &Structure{
		Dimensions:        dimensions,
		Factor:            factor,
		NominalChunkDepth: nominalChunkDepth,
		ColdDepthBegin:    coldDepthBegin,
		SparseDepthBegin:  sparseDepthBegin,
		BaseChunkPoints:   baseChunkPoints,
		NominalChunkIndex: firstIndexAtDepth(factor, nominalChunkDepth),
		ColdIndexBegin:    firstIndexAtDepth(factor, coldDepthBegin),
	}
	return s, nil
}

// ChunkMaxPoints returns the id-span a chunk at depth must be sized to,
// given the chunkPoints a Climber reports at that depth. Every variant
// except the base chunk can trust the Climber's own figure; the base
// chunk spans every depth from 0 through NominalChunkDepth under one
// frozen chunkId, so its
// real span has to be recovered from BaseChunkSpan instead of whatever
// chunkPoints happened to be left at by the early-return phase.
func (s *Structure) ChunkMaxPoints(depth int, chunkPoints uint64) uint64 {
	if depth <= s.NominalChunkDepth {
		return s.BaseChunkSpan()
	}
	return chunkPoints
}

// BaseChunkSpan returns the number of distinct node indices the base
// chunk must cover: every node from the root through NominalChunkDepth
// inclusive. A Climber's chunkId stays at 0 for that whole span (see
// Climber.climb's early return), so the base chunk is addressed by the
// raw node index directly and must be sized to its cumulative node
// count, not the configured BaseChunkPoints field, which only seeds
// the chunkPoints arithmetic used once a climb moves past that depth.
func (s *Structure) BaseChunkSpan() uint64 {
	return firstIndexAtDepth(s.Factor, s.NominalChunkDepth+1).Simple()
}

// firstIndexAtDepth returns the node index of the first (leftmost)
// node at the given depth: sum_{j=0}^{depth-1} factor^j, the geometric
// series that accounts for every node at shallower depths.
func firstIndexAtDepth(factor uint64, depth int) bignum.Id {
	sum := bignum.FromUint64(0)
	pow := bignum.FromUint64(1)
	for i := 0; i < depth; i++ {
		sum = sum.Add(pow)
		pow = pow.MulUint64(factor)
	}
	return sum
}

// BBoxAt reconstructs the bounding box of a single node from its
// global index alone, by decoding the node's octant path and
// replaying it against root from the top. Points sharing one Tube
// share one node index, hence one exact box; this is what lets chunk
// restoration recompute tick without having stored every node's box.
func BBoxAt(dimensions int, factor uint64, root BBox, index bignum.Id) BBox {
	depth := DepthOf(factor, index)
	local := index.Sub(firstIndexAtDepth(factor, depth))

	digits := make([]int, depth)
	for i := depth - 1; i >= 0; i-- {
		q := local.DivUint64(factor)
		r := local.Sub(q.MulUint64(factor))
		digits[i] = int(r.Simple())
		local = q
	}

	box := root
	for _, dir := range digits {
		box = box.Octant(dir, dimensions)
	}
	return box
}

// DepthOf is the inverse of firstIndexAtDepth: it returns the depth d
// such that firstIndexAtDepth(factor, d) <= index < firstIndexAtDepth(factor, d+1).
// The base chunk is the one structure whose node-id range spans more
// than one depth, so restoring it from a serialized blob needs this
// per-node lookup; every other chunk carries its one shared depth
// directly.
func DepthOf(factor uint64, index bignum.Id) int {
	depth := 0
	sum := bignum.FromUint64(0)
	pow := bignum.FromUint64(1)
	for sum.Cmp(index) <= 0 {
		sum = sum.Add(pow)
		pow = pow.MulUint64(factor)
		depth++
	}
	return depth - 1
}
