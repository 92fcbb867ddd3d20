// Package geom provides the pure value objects describing tree
// geometry: points, axis-aligned boxes, and the Structure describing
// branching factor, dimensionality, and chunk-depth thresholds.
package geom

import "math"

// Point is a location in 2 or 3 dimensional space. Z is ignored when
// Structure.Dimensions is 2.
type Point struct {
	X, Y, Z float64
}

// NonExistent is the sentinel "does-not-exist" point (spec.md section
// 3): a Cell holding this value has no payload.
var NonExistent = Point{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}

// Exists reports whether p is a real point rather than the sentinel.
// Any NaN component marks a does-not-exist value.
func (p Point) Exists() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsNaN(p.Z)
}
