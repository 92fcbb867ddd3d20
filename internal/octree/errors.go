package octree

import "errors"

// ErrOutOfBounds is returned by Climber.Magnify when a point falls
// outside the current bbox.
var ErrOutOfBounds = errors.New("octree: point is outside the current bbox")
