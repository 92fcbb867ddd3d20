package octree

import (
	"testing"

	"github.com/lodtree/lodtree/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rootBBox() geom.BBox {
	return geom.NewBBox(geom.Point{X: 0, Y: 0, Z: 0}, geom.Point{X: 256, Y: 256, Z: 256})
}

func testStructure(t *testing.T) *geom.Structure {
	t.Helper()
	s, err := geom.NewStructure(3, 4, 6, 0, 1048576)
	require.NoError(t, err)
	return s
}

func TestClimber_MagnifyRejectsOutOfBounds(t *testing.T) {
	c := NewClimber(testStructure(t), rootBBox())
	err := c.Magnify(geom.Point{X: -1, Y: 0, Z: 0})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestClimber_OctantDeterminism(t *testing.T) {
	structure := testStructure(t)
	box := rootBBox()
	p := geom.Point{X: 10, Y: 200, Z: 130}

	c := NewClimber(structure, box)
	const depth = 5
	for i := 0; i < depth; i++ {
		require.NoError(t, c.Magnify(p))
	}

	assert.Equal(t, depth, c.Depth())
	assert.True(t, c.BBox().Contains(p))
}

func TestClimber_IndexComposition(t *testing.T) {
	// spec: index = sum(dir_k * factor^k for k=0..d-1) + (factor^d-1)/(factor-1)
	structure := testStructure(t)
	box := rootBBox()
	p := geom.Point{X: 250, Y: 250, Z: 250} // always picks the "all bits set" octant (dir=7)

	c := NewClimber(structure, box)
	const depth = 3
	var dirs []uint64
	for i := 0; i < depth; i++ {
		mid := c.BBox().Mid()
		dir := 0
		if p.X >= mid.X {
			dir |= 1
		}
		if p.Y >= mid.Y {
			dir |= 2
		}
		if p.Z >= mid.Z {
			dir |= 4
		}
		dirs = append(dirs, uint64(dir))
		require.NoError(t, c.Magnify(p))
	}

	const factor = 8
	var want uint64
	pow := uint64(1)
	for i := depth - 1; i >= 0; i-- {
		want += dirs[i] * pow
		pow *= factor
	}
	offset := (pow - 1) / (factor - 1)
	want += offset

	assert.Equal(t, want, c.Index().Simple())
}

func TestClimber_SparseBoundaryChunkPoints(t *testing.T) {
	// scenario 4: with sparseDepthBegin=10, reaching depth 10 yields
	// chunkPoints == baseChunkPoints * factor^(10-nominalChunkDepth).
	// Picking nominalChunkDepth one short of sparseDepthBegin means the
	// very first climb past nominal already lands in the sparse regime,
	// so the exponent is exactly one sparse-branch multiplication.
	s, err := geom.NewStructure(3, 9, 9, 10, 64)
	require.NoError(t, err)

	c := NewClimber(s, rootBBox())
	p := geom.Point{X: 1, Y: 1, Z: 1}
	for i := 0; i < 10; i++ {
		require.NoError(t, c.Magnify(p))
	}

	var want uint64 = 64
	for i := 0; i < 10-9; i++ {
		want *= 8
	}
	assert.Equal(t, want, c.ChunkPoints())
}

func TestClimber_TickDisambiguatesSharedLineage(t *testing.T) {
	// 2D structures never split on Z, so two points with identical X/Y
	// share every node down to any depth; Tick must still tell them
	// apart using the full accumulated depth against the untouched Z span.
	s, err := geom.NewStructure(2, 6, 6, 0, 16)
	require.NoError(t, err)
	box := rootBBox()

	low := geom.Point{X: 10, Y: 10, Z: 20}
	high := geom.Point{X: 10, Y: 10, Z: 220}

	cLow := NewClimber(s, box)
	cHigh := NewClimber(s, box)
	for i := 0; i < 6; i++ {
		require.NoError(t, cLow.Magnify(low))
		require.NoError(t, cHigh.Magnify(high))
	}

	assert.Equal(t, cLow.Index().Simple(), cHigh.Index().Simple())
	assert.NotEqual(t, cLow.Tick(), cHigh.Tick())
}

func TestClimber_Reset(t *testing.T) {
	c := NewClimber(testStructure(t), rootBBox())
	require.NoError(t, c.Magnify(geom.Point{X: 1, Y: 1, Z: 1}))
	assert.Equal(t, 1, c.Depth())

	c.Reset()
	assert.Equal(t, 0, c.Depth())
	assert.Equal(t, uint64(0), c.Index().Simple())
}
