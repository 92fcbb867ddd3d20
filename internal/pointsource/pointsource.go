// Package pointsource provides the point-source parsing collaborator
// a build pulls from: something that can be asked for one point, plus
// that point's raw native-schema bytes, until it runs out.
package pointsource

import "github.com/lodtree/lodtree/internal/geom"

// PointSource yields points one at a time. Next returns io.EOF once
// exhausted; native is the point's raw native-schema payload, already
// laid out the way the caller's Schema expects, ready to hand to
// pointpool.Acquire without further encoding.
type PointSource interface {
	Next() (point geom.Point, native []byte, err error)
}
