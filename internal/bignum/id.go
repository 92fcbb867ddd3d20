// Package bignum provides the arbitrary-precision non-negative integer
// used to address octree nodes and chunks. Node indices grow by
// factor^depth, which overflows a machine word well before a useful
// tree depth, so addressing is done in exact arithmetic and narrowed
// to a machine word only at the point of use (reading a tube index,
// hashing an endpoint path, sizing an arena).
package bignum

import (
	"fmt"
	"math/big"
)

// Id is an arbitrary-precision non-negative integer. The zero value is
// the integer 0 and is ready to use.
type Id struct {
	v big.Int
}

// FromUint64 constructs an Id from a machine word.
func FromUint64(v uint64) Id {
	var id Id
	id.v.SetUint64(v)
	return id
}

// FromString parses a decimal non-negative integer, as used for the
// endpoint path scheme (spec.md section 6: "path is the decimal string
// of I").
func FromString(s string) (Id, error) {
	var id Id
	if _, ok := id.v.SetString(s, 10); !ok {
		return Id{}, fmt.Errorf("bignum: invalid decimal id %q", s)
	}
	if id.v.Sign() < 0 {
		return Id{}, fmt.Errorf("bignum: id %q is negative", s)
	}
	return id, nil
}

// String renders the decimal representation used as an endpoint path.
func (a Id) String() string {
	return a.v.String()
}

// Lsh returns a shifted left by n bits (multiplication by 2^n), the
// operation behind index = (parent_index << dimensions) | octant.
func (a Id) Lsh(n uint) Id {
	var out Id
	out.v.Lsh(&a.v, n)
	return out
}

// Rsh returns a shifted right by n bits, used when SplitClimber
// backtracks up a level: index = (index >> dimensions) - 1.
func (a Id) Rsh(n uint) Id {
	var out Id
	out.v.Rsh(&a.v, n)
	return out
}

// Add returns a+b.
func (a Id) Add(b Id) Id {
	var out Id
	out.v.Add(&a.v, &b.v)
	return out
}

// AddUint64 returns a+b for a machine-word addend, the common case of
// adding a small octant or depth-derived offset.
func (a Id) AddUint64(b uint64) Id {
	var out Id
	out.v.Add(&a.v, new(big.Int).SetUint64(b))
	return out
}

// Sub returns a-b. Per spec.md section 3, callers must only invoke this
// when a >= b; violating that is a programmer error and panics, the
// same way an out-of-range slice index panics, rather than returning a
// silently wrapped value.
func (a Id) Sub(b Id) Id {
	if a.Cmp(b) < 0 {
		panic(fmt.Sprintf("bignum: Sub(%s, %s): minuend smaller than subtrahend", a, b))
	}
	var out Id
	out.v.Sub(&a.v, &b.v)
	return out
}

// SubUint64 returns a-b for a machine-word subtrahend.
func (a Id) SubUint64(b uint64) Id {
	return a.Sub(FromUint64(b))
}

// MulUint64 returns a*b for a machine-word multiplier, the operation
// behind chunkId << dimensions style growth and chunkPoints *= factor.
func (a Id) MulUint64(b uint64) Id {
	var out Id
	out.v.Mul(&a.v, new(big.Int).SetUint64(b))
	return out
}

// DivUint64 returns a/b (integer division) for a machine-word divisor.
func (a Id) DivUint64(b uint64) Id {
	var out Id
	out.v.Div(&a.v, new(big.Int).SetUint64(b))
	return out
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Id) Cmp(b Id) int {
	return a.v.Cmp(&b.v)
}

// Equal reports whether a and b represent the same value.
func (a Id) Equal(b Id) bool {
	return a.Cmp(b) == 0
}

// Less reports whether a < b.
func (a Id) Less(b Id) bool {
	return a.Cmp(b) < 0
}

// Simple narrows a to a uint64. It is only legal to call when the value
// is known to fit a machine word (spec.md section 3) — a normalized
// in-chunk index, a tick count, a depth-bounded ratio. Calling it on a
// value that overflows uint64 is a programmer error and panics.
func (a Id) Simple() uint64 {
	if !a.v.IsUint64() {
		panic(fmt.Sprintf("bignum: Simple(%s): value does not fit in a uint64", a))
	}
	return a.v.Uint64()
}

// Fits reports whether Simple would succeed, for callers that want to
// check before narrowing rather than recover from a panic.
func (a Id) Fits() bool {
	return a.v.IsUint64()
}
