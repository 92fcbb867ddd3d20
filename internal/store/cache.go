package store

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lodtree/lodtree/internal/metrics"
)

// SaveFunc durably persists an evicted chunk's serialized blob under
// its id. The cache calls it synchronously from inside the eviction
// that triggered it; a slow or failing SaveFunc is the caller's to
// handle (typically via internal/endpoint's retrying Put).
type SaveFunc func(id string, blob []byte) error

// Cache bounds the number of Chunks held in memory at once. When
// adding a chunk pushes the cache past its capacity, the
// least-recently-touched chunk is serialized, handed to save, and its
// bytes released from the process-wide residency counters, the same
// way the teacher's B-tree chunk directory never tries to keep every
// chunk addressed by a file memory-resident at once.
type Cache struct {
	lru  *lru.Cache[string, Chunk]
	save SaveFunc

	mu      sync.Mutex
	pending []error
}

// NewCache creates a Cache holding at most capacity chunks. save is
// invoked for every chunk evicted to make room, including chunks
// evicted by an explicit Remove or Purge.
func NewCache(capacity int, save SaveFunc) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("store: cache capacity must be positive, got %d", capacity)
	}
	c := &Cache{save: save}
	l, err := lru.NewWithEvict[string, Chunk](capacity, c.evict)
	if err != nil {
		return nil, fmt.Errorf("store: create chunk cache: %w", err)
	}
	c.lru = l
	return c, nil
}

// evict runs on every chunk the LRU drops, whether from a capacity
// eviction, an explicit Remove, or a Purge. The chunk's bytes leave
// the process-wide counters here rather than at insertion time, so
// the counters always reflect exactly the chunks actually resident.
// Save failures are queued rather than returned, since golang-lru's
// eviction callback has no return value; Put and Flush drain the
// queue so a caller still learns about them.
func (c *Cache) evict(key string, chunk Chunk) {
	blob, err := chunk.Serialize()
	if err == nil {
		err = c.save(key, blob)
	}
	metrics.RemoveChunk(chunk.Bytes())
	if err != nil {
		c.mu.Lock()
		c.pending = append(c.pending, fmt.Errorf("store: evict chunk %s: %w", key, err))
		c.mu.Unlock()
	}
}

func (c *Cache) drainErrors() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	err := errors.Join(c.pending...)
	c.pending = nil
	return err
}

// Get returns the chunk for id, marking it most-recently-used.
func (c *Cache) Get(id string) (Chunk, bool) {
	return c.lru.Get(id)
}

// Put inserts or replaces the chunk for id, evicting the
// least-recently-used entry if the cache is now over capacity. The
// returned error, if any, is from saving whatever this Put evicted.
func (c *Cache) Put(id string, chunk Chunk) error {
	c.lru.Add(id, chunk)
	return c.drainErrors()
}

// Remove evicts id's chunk immediately, running the same save path a
// capacity eviction would.
func (c *Cache) Remove(id string) error {
	c.lru.Remove(id)
	return c.drainErrors()
}

// Len returns the number of chunks currently resident.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Flush evicts every resident chunk, saving each one. Used at the end
// of a build to make sure nothing stays only in memory.
func (c *Cache) Flush() error {
	c.lru.Purge()
	return c.drainErrors()
}
