// Package lodtree indexes unbounded 3D point clouds into a
// level-of-detail octree persisted as chunked, compressed binary
// blobs. Tree ties the addressing scheme (internal/octree) to a
// durable chunk store (internal/store) so a bounded-region,
// bounded-depth range query can stream a resolution-appropriate
// subset of points without scanning the whole dataset.
//
// Building a tree is internal/build.Build; this package is the read
// side, consumed after a build has written chunks out through an
// Endpoint.
package lodtree
