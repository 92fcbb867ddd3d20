package octree

import (
	"github.com/lodtree/lodtree/internal/bignum"
	"github.com/lodtree/lodtree/internal/geom"
)

// SplitClimber walks the tree in depth-first preorder, visiting only
// the nodes whose bbox overlaps a query region and whose depth falls
// in [depthBegin, depthEnd). It maintains the octant path explicitly
// so each step is an O(1) index/position update rather than a
// recomputation from the root.
type SplitClimber struct {
	structure  *geom.Structure
	root       geom.BBox
	query      geom.BBox
	depthBegin int
	depthEnd   int

	stack []int
	index bignum.Id

	xPos, yPos, zPos uint64
	splits           uint64
	depth            int
}

// NewSplitClimber creates a traversal over structure's tree rooted at
// root, restricted to nodes overlapping query within [depthBegin,
// depthEnd).
func NewSplitClimber(structure *geom.Structure, root, query geom.BBox, depthBegin, depthEnd int) *SplitClimber {
	return &SplitClimber{
		structure:  structure,
		root:       root,
		query:      query,
		depthBegin: depthBegin,
		depthEnd:   depthEnd,
		index:      bignum.FromUint64(0),
		splits:     1,
	}
}

// Index returns the current node's global id.
func (s *SplitClimber) Index() bignum.Id { return s.index }

// Depth returns the current node's depth, root being 0.
func (s *SplitClimber) Depth() int { return s.depth }

// BBox returns the current node's bounding box.
func (s *SplitClimber) BBox() geom.BBox { return s.currentBBox() }

// Path returns the sequence of octant codes from the root down to the
// current node, letting a caller replay the same descent through a
// fresh Climber to recover that node's chunk binding.
func (s *SplitClimber) Path() []int {
	return append([]int(nil), s.stack...)
}

// Next advances the traversal by one step and reports whether the
// node now current should be emitted to the caller. Pass terminate to
// force a backtrack out of the current subtree (the caller has
// decided it cannot contain anything of interest).
func (s *SplitClimber) Next(terminate bool) bool {
	dim := uint(s.structure.Dimensions)
	factor := int(s.structure.Factor)

	if terminate || s.depth+1 == s.depthEnd {
		s.backtrack(dim, factor)
	} else {
		s.descend(dim)
	}

	if s.depth == 0 {
		return false
	}
	if s.depth < s.depthBegin {
		return s.Next(false)
	}
	if s.currentBBox().Overlaps(s.query) {
		return true
	}
	return s.Next(true)
}

func (s *SplitClimber) backtrack(dim uint, factor int) {
	for len(s.stack) > 0 && s.stack[len(s.stack)-1]+1 == factor {
		s.stack = s.stack[:len(s.stack)-1]
		s.splits >>= 1
		s.index = s.index.Rsh(dim).SubUint64(1)
		s.xPos >>= 1
		s.yPos >>= 1
		s.zPos >>= 1
	}
	if len(s.stack) > 0 {
		s.stack[len(s.stack)-1]++
		dir := s.stack[len(s.stack)-1]
		s.index = s.index.AddUint64(1)
		applyOctantDelta(dir, &s.xPos, &s.yPos, &s.zPos)
	}
	s.depth = len(s.stack)
}

func (s *SplitClimber) descend(dim uint) {
	s.stack = append(s.stack, 0)
	s.splits <<= 1
	s.index = s.index.Lsh(dim).AddUint64(1)
	s.xPos <<= 1
	s.yPos <<= 1
	s.zPos <<= 1
	s.depth = len(s.stack)
}

// applyOctantDelta updates the running grid coordinate for a move to
// sibling octant dir, given the octant bit layout (bit 0 = east, bit
// 1 = north, bit 2 = up). Siblings are always visited in ascending
// order, so this incremental table is equivalent to recomputing the
// coordinate from dir's bits directly.
func applyOctantDelta(dir int, x, y, z *uint64) {
	switch {
	case dir%2 == 1:
		*x++
	case dir == 2 || dir == 6:
		*x--
		*y++
	case dir == 4:
		*x--
		*y--
		*z++
	}
}

func (s *SplitClimber) currentBBox() geom.BBox {
	extentX := s.root.Max.X - s.root.Min.X
	extentY := s.root.Max.Y - s.root.Min.Y
	cellX := extentX / float64(s.splits)
	cellY := extentY / float64(s.splits)

	minX := s.root.Min.X + float64(s.xPos)*cellX
	minY := s.root.Min.Y + float64(s.yPos)*cellY

	minZ := s.root.Min.Z
	maxZ := s.root.Max.Z
	if s.structure.Dimensions == 3 {
		extentZ := s.root.Max.Z - s.root.Min.Z
		cellZ := extentZ / float64(s.splits)
		minZ = s.root.Min.Z + float64(s.zPos)*cellZ
		maxZ = minZ + cellZ
	}

	return geom.NewBBox(
		geom.Point{X: minX, Y: minY, Z: minZ},
		geom.Point{X: minX + cellX, Y: minY + cellY, Z: maxZ},
	)
}
