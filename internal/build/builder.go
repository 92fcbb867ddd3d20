// Package build orchestrates a complete tree build: pulling points
// from a point source, driving them down the octree with a pool of
// Climbers, populating chunks, and evicting/uploading through a
// bounded in-memory cache.
package build

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lodtree/lodtree/internal/codec"
	"github.com/lodtree/lodtree/internal/endpoint"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/octree"
	"github.com/lodtree/lodtree/internal/pointpool"
	"github.com/lodtree/lodtree/internal/pointsource"
	"github.com/lodtree/lodtree/internal/schema"
	"github.com/lodtree/lodtree/internal/store"
)

// Options tunes a Build run.
type Options struct {
	// Workers is the number of goroutines concurrently climbing points.
	Workers int
	// CacheSize bounds how many chunks stay resident before the
	// least-recently-touched one is serialized and saved.
	CacheSize int
	// MaxDepth caps how far a point descends looking for an empty
	// cell before it is dropped as too dense for the configured
	// resolution.
	MaxDepth int
	Log      zerolog.Logger
}

// Build reads every point out of source, inserting each into the
// shallowest unoccupied node along its descent path (the level-of-detail
// placement rule: a node absorbs the first point that reaches it,
// coarser nodes end up holding sparser, lower-detail samples). Every
// chunk touched is evicted through cache and durably saved via ep
// once the build completes, leaving nothing resident afterward.
func Build(ctx context.Context, structure *geom.Structure, s schema.Schema, rootBBox geom.BBox, source pointsource.PointSource, ep endpoint.Endpoint, cdc codec.Codec, opts Options) (*Summary, error) {
	runID := uuid.New()
	log := opts.Log.With().Str("run_id", runID.String()).Logger()

	pool := pointpool.New(int(s.PointSize()))
	b := &builder{
		structure: structure,
		schema:    s,
		rootBBox:  rootBBox,
		pool:      pool,
		codec:     cdc,
		maxDepth:  opts.MaxDepth,
		log:       log,
	}

	cache, err := store.NewCache(opts.CacheSize, func(id string, blob []byte) error {
		return ep.Put(ctx, id, blob)
	})
	if err != nil {
		return nil, err
	}
	b.cache = cache

	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error { return b.work(gctx, source) })
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := b.cache.Flush(); err != nil {
		return nil, err
	}

	return b.summary(runID), nil
}

// builder holds everything a worker goroutine touches. sourceMu
// serializes point-source reads; cacheMu serializes the
// read-or-create step on the chunk cache, since two workers reaching
// the same previously-unseen chunk id must not both construct it.
type builder struct {
	structure *geom.Structure
	schema    schema.Schema
	rootBBox  geom.BBox
	pool      *pointpool.Pool
	codec     codec.Codec
	cache     *store.Cache
	maxDepth  int
	log       zerolog.Logger

	sourceMu sync.Mutex
	cacheMu  sync.Mutex

	mu       sync.Mutex
	inserted uint64
	dropped  uint64
}

func (b *builder) nextPoint(source pointsource.PointSource) (geom.Point, []byte, error) {
	b.sourceMu.Lock()
	defer b.sourceMu.Unlock()
	return source.Next()
}

func (b *builder) work(ctx context.Context, source pointsource.PointSource) error {
	climber := octree.NewClimber(b.structure, b.rootBBox)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		point, native, err := b.nextPoint(source)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := b.insert(climber, point, native); err != nil {
			return err
		}
	}
}

// insert descends point one octant at a time, claiming the first
// empty cell it finds. Reaching maxDepth without an empty cell drops
// the point rather than climbing forever.
func (b *builder) insert(climber *octree.Climber, point geom.Point, native []byte) error {
	climber.Reset()
	for {
		chunk, err := b.chunkFor(climber)
		if err != nil {
			return err
		}
		cell, created, err := chunk.GetCell(climber)
		if err != nil {
			return err
		}
		if created {
			handle, err := b.pool.Acquire(point, native)
			if err != nil {
				return err
			}
			cell.Point = point
			cell.Handle = handle
			cell.Payload = true
			b.mu.Lock()
			b.inserted++
			b.mu.Unlock()
			return nil
		}
		if b.maxDepth > 0 && climber.Depth() >= b.maxDepth {
			b.mu.Lock()
			b.dropped++
			b.mu.Unlock()
			return nil
		}
		if err := climber.Magnify(point); err != nil {
			return err
		}
	}
}

func (b *builder) chunkFor(climber *octree.Climber) (store.Chunk, error) {
	id := climber.ChunkId().String()

	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()

	if chunk, ok := b.cache.Get(id); ok {
		return chunk, nil
	}

	var chunk store.Chunk
	maxPoints := b.structure.ChunkMaxPoints(climber.Depth(), climber.ChunkPoints())
	if b.structure.SparseDepthBegin != 0 && climber.Depth() >= b.structure.SparseDepthBegin {
		chunk = store.NewSparseChunk(b.schema, b.structure, b.pool, b.rootBBox, climber.Depth(), climber.ChunkId(), maxPoints, b.codec)
	} else {
		chunk = store.NewContiguousChunk(b.schema, b.structure, b.pool, b.rootBBox, climber.Depth(), climber.ChunkId(), maxPoints, b.codec)
	}
	if err := b.cache.Put(id, chunk); err != nil {
		return nil, err
	}
	b.log.Debug().Str("chunk_id", id).Int("depth", climber.Depth()).Msg("build: chunk created")
	return chunk, nil
}
