// Package octerr defines the error kinds shared across the storage
// engine, so callers can distinguish "report and abort this
// operation" from "the whole build must stop" with errors.Is.
package octerr

import (
	"errors"
	"fmt"
)

// ErrMalformedBlob marks an empty blob, an unknown tail type byte, or
// a truncated length prefix encountered while parsing a chunk's Tail.
// Chunk load aborts; the caller decides what to do next.
var ErrMalformedBlob = errors.New("octerr: malformed chunk blob")

// ErrChunkNotFound marks a GET against a path no chunk was ever PUT
// to. It is permanent, never worth retrying: an endpoint adapter
// should recognize its own "no such object" condition and wrap this
// sentinel instead of letting the retry driver burn through its whole
// schedule on something that will never change.
var ErrChunkNotFound = errors.New("octerr: chunk not found")

// ErrFatal marks a PUT that exhausted all retries. The source design
// called exit(1) here; this module instead propagates the error to
// the caller, which decides whether to abort the build or checkpoint
// and resume.
var ErrFatal = errors.New("octerr: fatal endpoint failure, retries exhausted")

// ErrMergeMismatch marks an attempt to merge chunks describing
// incompatible id-ranges or overlapping populated cells. The merge
// path itself is not implemented; this sentinel exists so a future
// merge operation has a defined error to return.
var ErrMergeMismatch = errors.New("octerr: chunk merge mismatch")

// OutOfRangeId panics reporting a normalize() call outside a chunk's
// id-range. This is a programmer error, not a recoverable condition:
// the caller violated normalize's precondition (id <= raw < id +
// maxPoints), the same way an out-of-bounds slice index panics rather
// than returning an error.
func OutOfRangeId(raw, id string, maxPoints uint64) {
	panic(fmt.Sprintf("octerr: id %s is out of range [%s, %s+%d)", raw, id, id, maxPoints))
}
