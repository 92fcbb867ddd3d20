package lodtree

import (
	"github.com/lodtree/lodtree/internal/codec"
	"github.com/lodtree/lodtree/internal/endpoint"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/schema"
)

// Tree ties a tree's geometry and schema to the durable store a prior
// build wrote its chunks to. Opening one does no I/O; chunks are
// pulled from ep lazily, one subtree at a time, as a Query descends
// into it.
type Tree struct {
	structure *geom.Structure
	schema    schema.Schema
	rootBBox  geom.BBox
	ep        endpoint.Endpoint
	codec     codec.Codec
}

// NewTree opens a tree for querying against the same structure,
// schema, root bounding box, endpoint, and codec a build used to
// write it.
func NewTree(structure *geom.Structure, s schema.Schema, rootBBox geom.BBox, ep endpoint.Endpoint, c codec.Codec) *Tree {
	return &Tree{structure: structure, schema: s, rootBBox: rootBBox, ep: ep, codec: c}
}
