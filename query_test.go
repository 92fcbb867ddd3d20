package lodtree

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodtree/lodtree/internal/build"
	"github.com/lodtree/lodtree/internal/codec"
	"github.com/lodtree/lodtree/internal/endpoint"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/schema"
)

type sliceSource struct {
	mu     sync.Mutex
	points []geom.Point
	idx    int
	size   int
}

func (s *sliceSource) Next() (geom.Point, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.points) {
		return geom.Point{}, nil, io.EOF
	}
	p := s.points[s.idx]
	s.idx++
	return p, encodeNativePoint(p, s.size), nil
}

func encodeNativePoint(p geom.Point, size int) []byte {
	native := make([]byte, size)
	binary.LittleEndian.PutUint64(native[0:8], math.Float64bits(p.X))
	binary.LittleEndian.PutUint64(native[8:16], math.Float64bits(p.Y))
	binary.LittleEndian.PutUint64(native[16:24], math.Float64bits(p.Z))
	return native
}

type memEndpoint struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemEndpoint() *memEndpoint {
	return &memEndpoint{objects: make(map[string][]byte)}
}

func (m *memEndpoint) Put(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = append([]byte(nil), data...)
	return nil
}

func (m *memEndpoint) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("memEndpoint: missing %s: %w", path, endpoint.ErrChunkNotFound)
	}
	return data, nil
}

func queryTestSchema() schema.Schema {
	return schema.New([]schema.Dimension{
		{Name: "X", Size: 8},
		{Name: "Y", Size: 8},
		{Name: "Z", Size: 8},
	})
}

func TestQuery_FindsInsertedPointsWithinRegion(t *testing.T) {
	structure, err := geom.NewStructure(3, 4, 4, 0, 4096)
	require.NoError(t, err)
	root := geom.NewBBox(geom.Point{X: 0, Y: 0, Z: 0}, geom.Point{X: 256, Y: 256, Z: 256})
	s := queryTestSchema()

	// the first point through Build always claims the root cell itself
	// (depth 0), a node SplitClimber's depthBegin>=1 traversal never
	// revisits; dummy exists only to push near and far one level deeper,
	// where the query can actually find them
	dummy := geom.Point{X: 128, Y: 128, Z: 128}
	near := geom.Point{X: 10, Y: 10, Z: 10}
	far := geom.Point{X: 200, Y: 200, Z: 200}
	src := &sliceSource{points: []geom.Point{dummy, near, far}, size: int(s.PointSize())}

	ep := newMemEndpoint()
	cdc := codec.NewSnappyCodec()

	summary, err := build.Build(context.Background(), structure, s, root, src, ep, cdc, build.Options{
		Workers: 1, CacheSize: 4, MaxDepth: 10, Log: zerolog.Nop(),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(3), summary.Inserted)

	tree := NewTree(structure, s, root, ep, cdc)

	region := geom.NewBBox(geom.Point{X: 0, Y: 0, Z: 0}, geom.Point{X: 64, Y: 64, Z: 64})
	var found []Point
	err = tree.Query(context.Background(), region, 1, 10, QueryOptions{}, func(p Point) error {
		found = append(found, p)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, near, found[0].Point)
	assert.Len(t, found[0].Native, int(s.PointSize()))
}

func TestQuery_EmptyRegionYieldsNothing(t *testing.T) {
	structure, err := geom.NewStructure(3, 4, 4, 0, 4096)
	require.NoError(t, err)
	root := geom.NewBBox(geom.Point{X: 0, Y: 0, Z: 0}, geom.Point{X: 256, Y: 256, Z: 256})
	s := queryTestSchema()

	p := geom.Point{X: 10, Y: 10, Z: 10}
	src := &sliceSource{points: []geom.Point{p}, size: int(s.PointSize())}

	ep := newMemEndpoint()
	cdc := codec.NewSnappyCodec()

	_, err = build.Build(context.Background(), structure, s, root, src, ep, cdc, build.Options{
		Workers: 1, CacheSize: 4, MaxDepth: 10, Log: zerolog.Nop(),
	})
	require.NoError(t, err)

	tree := NewTree(structure, s, root, ep, cdc)

	region := geom.NewBBox(geom.Point{X: 200, Y: 200, Z: 200}, geom.Point{X: 210, Y: 210, Z: 210})
	var found []Point
	err = tree.Query(context.Background(), region, 1, 10, QueryOptions{}, func(p Point) error {
		found = append(found, p)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestQuery_VisitErrorAbortsQuery(t *testing.T) {
	structure, err := geom.NewStructure(3, 4, 4, 0, 4096)
	require.NoError(t, err)
	root := geom.NewBBox(geom.Point{X: 0, Y: 0, Z: 0}, geom.Point{X: 256, Y: 256, Z: 256})
	s := queryTestSchema()

	dummy := geom.Point{X: 128, Y: 128, Z: 128}
	p := geom.Point{X: 10, Y: 10, Z: 10}
	src := &sliceSource{points: []geom.Point{dummy, p}, size: int(s.PointSize())}

	ep := newMemEndpoint()
	cdc := codec.NewSnappyCodec()

	_, err = build.Build(context.Background(), structure, s, root, src, ep, cdc, build.Options{
		Workers: 1, CacheSize: 4, MaxDepth: 10, Log: zerolog.Nop(),
	})
	require.NoError(t, err)

	tree := NewTree(structure, s, root, ep, cdc)

	region := geom.NewBBox(geom.Point{X: 0, Y: 0, Z: 0}, geom.Point{X: 64, Y: 64, Z: 64})
	boom := assert.AnError
	err = tree.Query(context.Background(), region, 1, 10, QueryOptions{}, func(p Point) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
