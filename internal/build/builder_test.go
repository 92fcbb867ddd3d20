package build

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodtree/lodtree/internal/codec"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/schema"
)

type sliceSource struct {
	mu     sync.Mutex
	points []geom.Point
	native [][]byte
	idx    int
}

func (s *sliceSource) Next() (geom.Point, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.points) {
		return geom.Point{}, nil, io.EOF
	}
	p, n := s.points[s.idx], s.native[s.idx]
	s.idx++
	return p, n, nil
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
	return m.objects[path], nil
}

func buildTestSchema() schema.Schema {
	return schema.New([]schema.Dimension{
		{Name: "X", Size: 8},
		{Name: "Y", Size: 8},
		{Name: "Z", Size: 8},
	})
}

func encodePointNative(p geom.Point) []byte {
	native := make([]byte, 24)
	binary.LittleEndian.PutUint64(native[0:8], math.Float64bits(p.X))
	binary.LittleEndian.PutUint64(native[8:16], math.Float64bits(p.Y))
	binary.LittleEndian.PutUint64(native[16:24], math.Float64bits(p.Z))
	return native
}

func TestBuild_InsertsDistinctPointsIntoRootChunk(t *testing.T) {
	structure, err := geom.NewStructure(3, 4, 4, 0, 4096)
	require.NoError(t, err)
	root := geom.NewBBox(geom.Point{X: 0, Y: 0, Z: 0}, geom.Point{X: 256, Y: 256, Z: 256})
	s := buildTestSchema()

	points := []geom.Point{
		{X: 10, Y: 10, Z: 10},
		{X: 200, Y: 200, Z: 200},
		{X: 50, Y: 180, Z: 30},
	}
	src := &sliceSource{points: points, native: make([][]byte, len(points))}
	for i, p := range points {
		src.native[i] = encodePointNative(p)
	}

	ep := newMemEndpoint()
	cdc := codec.NewGzipCodec(6)

	summary, err := Build(context.Background(), structure, s, root, src, ep, cdc, Options{Workers: 2, CacheSize: 4, MaxDepth: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(len(points)), summary.Inserted)
	assert.Equal(t, uint64(0), summary.Dropped)
	assert.NotEqual(t, summary.RunID.String(), "")

	// every chunk touched must have been flushed out through the endpoint
	assert.NotEmpty(t, ep.objects)
}

func TestBuild_DropsPointsThatExceedMaxDepth(t *testing.T) {
	structure, err := geom.NewStructure(3, 4, 4, 0, 4096)
	require.NoError(t, err)
	root := geom.NewBBox(geom.Point{X: 0, Y: 0, Z: 0}, geom.Point{X: 256, Y: 256, Z: 256})
	s := buildTestSchema()

	// identical points always collide on the same cell
	same := geom.Point{X: 10, Y: 10, Z: 10}
	points := []geom.Point{same, same, same}
	src := &sliceSource{points: points, native: make([][]byte, len(points))}
	for i, p := range points {
		src.native[i] = encodePointNative(p)
	}

	ep := newMemEndpoint()
	cdc := codec.NewGzipCodec(6)

	// maxDepth=1: the first point claims the root cell, the second
	// claims the first empty cell one level down, and the third
	// collides with both and is dropped without climbing further.
	summary, err := Build(context.Background(), structure, s, root, src, ep, cdc, Options{Workers: 1, CacheSize: 4, MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), summary.Inserted)
	assert.Equal(t, uint64(1), summary.Dropped)
}
