// Package pointpool provides the arena that backs point payloads
// during bulk insertion, bounding per-point allocation overhead the
// way a single large file allocation bounds per-write syscall
// overhead.
package pointpool

import (
	"fmt"
	"sync"

	"github.com/lodtree/lodtree/internal/geom"
)

// slabSlots is the number of fixed-size slots per growth increment.
// Slabs, not individual slots, are what actually get allocated from
// the Go heap, the same end-of-file-style growth strategy used for
// file-backed allocation, adapted here to grow in memory instead of
// on disk and to support slot reuse via a free list (point payloads,
// unlike file bytes, are released in bulk on chunk eviction and must
// be recycled rather than left to accumulate forever).
const slabSlots = 4096

// Handle is an opaque reference to one arena slot. Cells hold a
// Handle rather than a pointer so that a batch Release can invalidate
// many cells' payloads atomically without chasing pointers.
type Handle struct {
	index uint64
	Point geom.Point
}

// Pool is a free-list-backed arena of fixed-size slots.
type Pool struct {
	mu       sync.Mutex
	slotSize int
	slabs    [][]byte
	free     []uint64
	next     uint64
}

// New creates a Pool whose slots are exactly slotSize bytes, the
// native point payload width for the tree's schema.
func New(slotSize int) *Pool {
	if slotSize <= 0 {
		panic("pointpool: slotSize must be positive")
	}
	return &Pool{slotSize: slotSize}
}

// Acquire copies size bytes from src into a slot, tags it with
// point's coordinates, and returns a Handle identifying it.
func (p *Pool) Acquire(point geom.Point, src []byte) (Handle, error) {
	if len(src) != p.slotSize {
		return Handle{}, fmt.Errorf("pointpool: payload is %d bytes, want %d", len(src), p.slotSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.allocIndexLocked()
	copy(p.slotLocked(idx), src)
	return Handle{index: idx, Point: point}, nil
}

// Get returns a copy of the payload bytes held by h. Handles to
// released slots must not be passed here; the pool does not detect
// use-after-release.
func (p *Pool) Get(h Handle) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, p.slotSize)
	copy(out, p.slotLocked(h.index))
	return out
}

// Release returns a batch of handles to the free list in one
// critical section, the "invalidates its indices atomically"
// contract.
func (p *Pool) Release(batch []Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, h := range batch {
		p.free = append(p.free, h.index)
	}
}

func (p *Pool) allocIndexLocked() uint64 {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return idx
	}
	idx := p.next
	p.next++
	p.growLocked(idx)
	return idx
}

func (p *Pool) growLocked(idx uint64) {
	slab := idx / slabSlots
	for uint64(len(p.slabs)) <= slab {
		p.slabs = append(p.slabs, make([]byte, slabSlots*p.slotSize))
	}
}

func (p *Pool) slotLocked(idx uint64) []byte {
	slab := idx / slabSlots
	offset := (idx % slabSlots) * uint64(p.slotSize)
	return p.slabs[slab][offset : offset+uint64(p.slotSize)]
}
