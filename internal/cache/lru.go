package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/meshfeat/internal/resource"
)

// LRUBlockCache is an in-memory BlockCache bounded in bytes.
type LRUBlockCache struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	blocks   map[CacheKey]*list.Element
	order    *list.List // front = most recently used
	rc       *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type lruBlock struct {
	key  CacheKey
	data []byte
}

// NewLRUBlockCache creates a cache holding up to capacity bytes. Held bytes
// are also reserved against rc, which may be nil.
func NewLRUBlockCache(capacity int64, rc *resource.Controller) *LRUBlockCache {
	return &LRUBlockCache{
		capacity: capacity,
		blocks:   make(map[CacheKey]*list.Element),
		order:    list.New(),
		rc:       rc,
	}
}

// Get returns a cached block.
func (c *LRUBlockCache) Get(_ context.Context, key CacheKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.blocks[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.order.MoveToFront(el)
	return el.Value.(*lruBlock).data, true
}

// Set caches a block. A key already present is only touched; blocks of a
// given key never change. Blocks larger than the capacity, or refused by the
// resource controller, are dropped.
func (c *LRUBlockCache) Set(_ context.Context, key CacheKey, b []byte) {
	n := int64(len(b))

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.blocks[key]; ok {
		c.order.MoveToFront(el)
		return
	}
	if n > c.capacity {
		return
	}
	for c.size+n > c.capacity {
		c.remove(c.order.Back())
	}
	if !c.rc.TryAcquireMemory(n) {
		return
	}

	c.blocks[key] = c.order.PushFront(&lruBlock{key: key, data: b})
	c.size += n
}

func (c *LRUBlockCache) remove(el *list.Element) {
	blk := c.order.Remove(el).(*lruBlock)
	delete(c.blocks, blk.key)
	n := int64(len(blk.data))
	c.size -= n
	c.rc.ReleaseMemory(n)
}

// Close implements BlockCache.
func (c *LRUBlockCache) Close() error { return nil }

// Stats returns hit and miss counts.
func (c *LRUBlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the bytes held.
func (c *LRUBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
