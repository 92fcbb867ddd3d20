package geom

// BBox is an axis-aligned box with a cached midpoint, used both as a
// node's spatial extent while climbing and as a query region for range
// queries.
type BBox struct {
	Min, Max Point
	mid      Point
}

// NewBBox builds a box from its corners and precomputes the midpoint.
func NewBBox(min, max Point) BBox {
	b := BBox{Min: min, Max: max}
	b.mid = Point{
		X: (min.X + max.X) / 2,
		Y: (min.Y + max.Y) / 2,
		Z: (min.Z + max.Z) / 2,
	}
	return b
}

// Mid returns the cached midpoint.
func (b BBox) Mid() Point {
	return b.mid
}

// Contains reports whether p lies within b, inclusive of both bounds.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Overlaps reports whether b and other share any point.
func (b BBox) Overlaps(other BBox) bool {
	return b.Min.X <= other.Max.X && other.Min.X <= b.Max.X &&
		b.Min.Y <= other.Max.Y && other.Min.Y <= b.Max.Y &&
		b.Min.Z <= other.Max.Z && other.Min.Z <= b.Max.Z
}

// Area returns the box's XY footprint, the measure used to weigh
// candidate chunk/node regions for range queries. Z extent is ignored
// since tick binning already disambiguates vertical collisions within
// a node.
func (b BBox) Area() float64 {
	return (b.Max.X - b.Min.X) * (b.Max.Y - b.Min.Y)
}

// GrowBy returns a copy of b expanded by eps on every side, used to
// tolerate points that land exactly on a boundary due to floating
// point error.
func (b BBox) GrowBy(eps float64) BBox {
	return NewBBox(
		Point{X: b.Min.X - eps, Y: b.Min.Y - eps, Z: b.Min.Z - eps},
		Point{X: b.Max.X + eps, Y: b.Max.Y + eps, Z: b.Max.Z + eps},
	)
}

// Octant dir bit layout (spec.md section 4.1): bit 0 = east, bit 1 =
// north, bit 2 = up (3D only). The eight sub-boxes are conventionally
// named by the (west/east, south/north, down/up) triple they occupy;
// Octant returns the sub-box for a given dir in [0, factor).
func (b BBox) Octant(dir int, dimensions int) BBox {
	min, max := b.Min, b.Max
	mid := b.mid

	if dir&1 != 0 {
		min.X = mid.X
	} else {
		max.X = mid.X
	}
	if dir&2 != 0 {
		min.Y = mid.Y
	} else {
		max.Y = mid.Y
	}
	if dimensions == 3 {
		if dir&4 != 0 {
			min.Z = mid.Z
		} else {
			max.Z = mid.Z
		}
	}

	return NewBBox(min, max)
}
