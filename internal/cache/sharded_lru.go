package cache

import (
	"context"

	"github.com/hupe1980/meshfeat/internal/resource"
)

const numShards = 64

// ShardedLRUBlockCache spreads blocks over 64 LRU shards so partitions read
// in parallel do not contend on one mutex.
type ShardedLRUBlockCache struct {
	shards [numShards]*LRUBlockCache
}

// NewShardedLRUBlockCache creates a cache of capacity bytes split evenly
// across the shards.
func NewShardedLRUBlockCache(capacity int64, rc *resource.Controller) *ShardedLRUBlockCache {
	per := max(capacity/numShards, 1)

	s := &ShardedLRUBlockCache{}
	for i := range s.shards {
		s.shards[i] = NewLRUBlockCache(per, rc)
	}
	return s
}

func (s *ShardedLRUBlockCache) shard(key CacheKey) *LRUBlockCache {
	return s.shards[key.Sum64()%numShards]
}

// Get returns a cached block.
func (s *ShardedLRUBlockCache) Get(ctx context.Context, key CacheKey) ([]byte, bool) {
	return s.shard(key).Get(ctx, key)
}

// Set caches a block.
func (s *ShardedLRUBlockCache) Set(ctx context.Context, key CacheKey, b []byte) {
	s.shard(key).Set(ctx, key, b)
}

// Close implements BlockCache.
func (s *ShardedLRUBlockCache) Close() error { return nil }

// Stats sums hit and miss counts over all shards.
func (s *ShardedLRUBlockCache) Stats() (hits, misses int64) {
	for _, shard := range s.shards {
		h, m := shard.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the bytes held across all shards.
func (s *ShardedLRUBlockCache) Size() int64 {
	var total int64
	for _, shard := range s.shards {
		total += shard.Size()
	}
	return total
}
