package geom

import "math"

// CalcTick deterministically maps p.Z into a vertical bin within
// [0, 2^levels), relative to base's Z extent. It is the function
// behind Tube's tick keying: every point sharing an XY lineage down to
// some chunk's base depth lands in the same Tube, and CalcTick
// separates them by where their Z falls within that base node's
// original vertical span.
func CalcTick(p Point, base BBox, levels int) uint64 {
	if levels <= 0 {
		return 0
	}
	if levels > 62 {
		levels = 62
	}
	span := base.Max.Z - base.Min.Z
	bins := uint64(1) << uint(levels)
	if span <= 0 {
		return 0
	}
	frac := (p.Z - base.Min.Z) / span
	if frac < 0 {
		frac = 0
	}
	if frac >= 1 {
		frac = math.Nextafter(1, 0)
	}
	tick := uint64(frac * float64(bins))
	if tick >= bins {
		tick = bins - 1
	}
	return tick
}
