package lodtree

import (
	"context"
	"errors"
	"fmt"

	"github.com/lodtree/lodtree/internal/bignum"
	"github.com/lodtree/lodtree/internal/endpoint"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/octree"
	"github.com/lodtree/lodtree/internal/pointpool"
	"github.com/lodtree/lodtree/internal/store"
)

// Point is one result handed back from a Query: a populated cell's
// location and its native-schema payload, exactly as it was given to
// Build.
type Point struct {
	geom.Point
	Native []byte
}

// QueryOptions tunes a Query run.
type QueryOptions struct {
	// CacheSize bounds how many chunks stay resident while the query
	// is in flight. Many visited nodes usually share one chunk, so
	// keeping it cached for the query's duration pays for its GET and
	// decompression once instead of once per node.
	CacheSize int
}

const defaultQueryCacheSize = 64

// Query walks region at depths in [depthBegin, depthEnd) and calls
// visit once for every populated cell belonging to a node whose bbox
// overlaps region, in the preorder SplitClimber visits nodes in.
// Returning an error from visit aborts the query and is returned from
// Query; ctx cancellation does the same.
func (t *Tree) Query(ctx context.Context, region geom.BBox, depthBegin, depthEnd int, opts QueryOptions, visit func(Point) error) error {
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultQueryCacheSize
	}
	cache, err := store.NewCache(cacheSize, func(string, []byte) error { return nil })
	if err != nil {
		return fmt.Errorf("lodtree: query chunk cache: %w", err)
	}

	q := &queryRun{
		tree:  t,
		cache: cache,
		pool:  pointpool.New(int(t.schema.PointSize())),
	}

	sc := octree.NewSplitClimber(t.structure, t.rootBBox, region, depthBegin, depthEnd)
	for sc.Next(false) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := q.visitNode(ctx, sc, visit); err != nil {
			return err
		}
	}
	return nil
}

// queryRun holds the state one Query call threads through its
// traversal: the chunk cache and pool are scoped to a single run and
// discarded once it returns.
type queryRun struct {
	tree  *Tree
	cache *store.Cache
	pool  *pointpool.Pool
}

// visitNode resolves the chunk owning sc's current node by replaying
// its recorded octant path through a fresh Climber (chunk-id
// arithmetic has no defined inverse for SplitClimber's backtracking to
// track incrementally), then emits every populated cell at that node.
func (q *queryRun) visitNode(ctx context.Context, sc *octree.SplitClimber, visit func(Point) error) error {
	climber := octree.NewClimber(q.tree.structure, q.tree.rootBBox)

	chunkID := climber.ChunkId()
	chunkDepth := climber.Depth()
	chunkPoints := climber.ChunkPoints()
	for _, dir := range sc.Path() {
		climber.Descend(dir)
		if id := climber.ChunkId(); !id.Equal(chunkID) {
			chunkID = id
			chunkDepth = climber.Depth()
			chunkPoints = climber.ChunkPoints()
		}
	}

	maxPoints := q.tree.structure.ChunkMaxPoints(chunkDepth, chunkPoints)
	chunk, err := q.chunkFor(ctx, chunkID, chunkDepth, maxPoints)
	if err != nil {
		return err
	}
	if chunk == nil {
		return nil // this chunk id was never written: nothing to find here
	}

	for _, cell := range chunk.Cells(sc.Index()) {
		if !cell.Payload {
			continue
		}
		if err := visit(Point{Point: cell.Point, Native: q.pool.Get(cell.Handle)}); err != nil {
			return err
		}
	}
	return nil
}

// chunkFor returns the resident or freshly loaded chunk for id, or
// nil if id was never written: an unpopulated region of the address
// space is an expected outcome, not an error.
func (q *queryRun) chunkFor(ctx context.Context, id bignum.Id, depth int, maxPoints uint64) (store.Chunk, error) {
	key := id.String()
	if chunk, ok := q.cache.Get(key); ok {
		return chunk, nil
	}

	blob, err := q.tree.ep.Get(ctx, key)
	if errors.Is(err, endpoint.ErrChunkNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lodtree: get chunk %s: %w", key, err)
	}

	chunk, err := store.LoadChunk(q.tree.schema, q.tree.structure, q.pool, q.tree.rootBBox, depth, id, maxPoints, q.tree.codec, blob)
	if err != nil {
		return nil, fmt.Errorf("lodtree: restore chunk %s: %w", key, err)
	}
	if err := q.cache.Put(key, chunk); err != nil {
		return nil, fmt.Errorf("lodtree: cache chunk %s: %w", key, err)
	}
	return chunk, nil
}
