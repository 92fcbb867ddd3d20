package store

import (
	"errors"
	"testing"

	"github.com/lodtree/lodtree/internal/bignum"
	"github.com/lodtree/lodtree/internal/codec"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/pointpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(t *testing.T, id uint64) Chunk {
	t.Helper()
	structure, err := geom.NewStructure(3, 2, 20, 0, 4096)
	require.NoError(t, err)
	s := testSchema()
	pool := pointpool.New(int(s.PointSize()))
	cdc := codec.NewGzipCodec(6)
	return NewContiguousChunk(s, structure, pool, testRootBBox(), 0, bignum.FromUint64(id), baseChunkMaxPoints(structure), cdc)
}

func TestCache_NewRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewCache(0, func(string, []byte) error { return nil })
	assert.Error(t, err)
}

func TestCache_GetPutRoundTrip(t *testing.T) {
	cache, err := NewCache(2, func(string, []byte) error { return nil })
	require.NoError(t, err)

	chunk := testChunk(t, 0)
	require.NoError(t, cache.Put("0", chunk))

	got, ok := cache.Get("0")
	require.True(t, ok)
	assert.Same(t, chunk, got)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_EvictsLeastRecentlyUsedOverCapacity(t *testing.T) {
	var saved []string
	cache, err := NewCache(2, func(id string, blob []byte) error {
		saved = append(saved, id)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, cache.Put("0", testChunk(t, 0)))
	require.NoError(t, cache.Put("1", testChunk(t, 1)))
	// touch "0" so "1" becomes the least-recently-used entry
	_, ok := cache.Get("0")
	require.True(t, ok)

	require.NoError(t, cache.Put("2", testChunk(t, 2)))

	assert.Equal(t, []string{"1"}, saved)
	assert.Equal(t, 2, cache.Len())
	_, ok = cache.Get("1")
	assert.False(t, ok)
}

func TestCache_PutSurfacesSaveError(t *testing.T) {
	saveErr := errors.New("upload failed")
	cache, err := NewCache(1, func(string, []byte) error { return saveErr })
	require.NoError(t, err)

	require.NoError(t, cache.Put("0", testChunk(t, 0)))
	err = cache.Put("1", testChunk(t, 1))
	assert.ErrorIs(t, err, saveErr)
}

func TestCache_RemoveRunsSavePath(t *testing.T) {
	var saved []string
	cache, err := NewCache(2, func(id string, blob []byte) error {
		saved = append(saved, id)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, cache.Put("0", testChunk(t, 0)))
	require.NoError(t, cache.Remove("0"))
	assert.Equal(t, []string{"0"}, saved)
	assert.Equal(t, 0, cache.Len())
}

func TestCache_FlushSavesEveryResidentChunk(t *testing.T) {
	var saved []string
	cache, err := NewCache(4, func(id string, blob []byte) error {
		saved = append(saved, id)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, cache.Put("0", testChunk(t, 0)))
	require.NoError(t, cache.Put("1", testChunk(t, 1)))

	require.NoError(t, cache.Flush())
	assert.ElementsMatch(t, []string{"0", "1"}, saved)
	assert.Equal(t, 0, cache.Len())
}
