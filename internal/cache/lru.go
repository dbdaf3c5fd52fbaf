package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/flowclust/internal/resource"
	"github.com/hupe1980/flowclust/matrix"
)

// LRU is a byte-bounded least-recently-used cache of matrices.
// Cached matrices are shared and must be treated as read-only.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   string
	value *matrix.Dense
	bytes int64
}

// NewLRU returns a cache holding at most capacity bytes. rc may be nil.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

func footprint(m *matrix.Dense) int64 {
	return int64(len(m.Data())) * 4
}

// Get returns a cached matrix.
func (c *LRU) Get(key string) (*matrix.Dense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches m under key. Matrices larger than the capacity, or that the
// resource controller refuses, are not cached.
func (c *LRU) Set(key string, m *matrix.Dense) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}

	n := footprint(m)
	if n > c.capacity {
		return
	}
	for c.size+n > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		c.removeElement(el)
	}

	if err := c.rc.AcquireMemory(n); err != nil {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: m, bytes: n})
	c.size += n
}

// Purge removes every entry and releases its memory charge.
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.evictList.Back(); el != nil; el = c.evictList.Back() {
		c.removeElement(el)
	}
}

// Stats returns hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	e := el.Value.(*entry)
	delete(c.items, e.key)
	c.size -= e.bytes
	c.rc.ReleaseMemory(e.bytes)
}
