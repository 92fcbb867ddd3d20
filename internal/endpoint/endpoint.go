// Package endpoint provides the durable storage collaborator the
// chunk storage engine treats as opaque: given a path and a blob, put
// it somewhere and be able to get it back. The core never knows
// whether that somewhere is a local disk, S3, or Redis.
package endpoint

import (
	"context"

	"github.com/lodtree/lodtree/internal/octerr"
)

// ErrFatal marks a PUT or GET that exhausted its retry budget. It is
// octerr.ErrFatal under another name, kept here so callers that only
// ever touch this package don't need to import octerr just to check
// errors.Is against it.
var ErrFatal = octerr.ErrFatal

// ErrChunkNotFound marks a GET against a path nothing was ever PUT to.
// Query uses this to tell "this chunk id was never populated" apart
// from a real transient I/O failure.
var ErrChunkNotFound = octerr.ErrChunkNotFound

// Endpoint persists and retrieves chunk blobs by path. A path is the
// decimal string of a chunk's id, optionally followed by a
// caller-supplied postfix for the multi-part root chunk.
//
// Implementations see only transient failures; PUT is expected to be
// idempotent (a caller never writes two different payloads to the
// same path), so a retried PUT after a partial failure is always safe
// to repeat in full.
type Endpoint interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
}
