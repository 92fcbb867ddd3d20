// Package store implements the chunk storage engine: Tube and Cell,
// the Contiguous and Sparse Chunk variants, chunk (de)serialization,
// and the resident-chunk cache.
package store

import (
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/pointpool"
)

// Cell holds one point and the arena handle for its serialized
// payload. A Cell that has never been written holds the sentinel
// non-point and no handle.
type Cell struct {
	Point   geom.Point
	Handle  pointpool.Handle
	Payload bool // true once a payload handle has been assigned
}

func newEmptyCell() *Cell {
	return &Cell{Point: geom.NonExistent}
}
