package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedLRUBlockCache_BasicOperations(t *testing.T) {
	c := NewShardedLRUBlockCache(1<<20, nil)
	ctx := context.Background()

	key := CacheKey{Namespace: "file:///data", Path: "features/features_p00_r000.npy", Size: 9}
	c.Set(ctx, key, []byte("test data"))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "test data", string(got))

	other := key
	other.Namespace = "file:///other"
	_, ok = c.Get(ctx, other)
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestShardedLRUBlockCache_ShardDistribution(t *testing.T) {
	c := NewShardedLRUBlockCache(64<<20, nil)
	ctx := context.Background()
	data := make([]byte, 1024)

	for i := range 1000 {
		key := CacheKey{
			Path:  fmt.Sprintf("features/features_p%02d_r000.npy", i%16),
			Block: uint64(i),
		}
		c.Set(ctx, key, data)
	}

	nonEmpty := 0
	for _, s := range c.shards {
		if s.Size() > 0 {
			nonEmpty++
		}
	}
	assert.GreaterOrEqual(t, nonEmpty, 30)
	assert.Equal(t, int64(1000*1024), c.Size())
}

func TestShardedLRUBlockCache_Concurrent(t *testing.T) {
	c := NewShardedLRUBlockCache(64<<20, nil)
	ctx := context.Background()
	data := make([]byte, 64)

	var wg sync.WaitGroup
	for g := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				key := CacheKey{Path: fmt.Sprintf("p%d", g), Block: uint64(i)}
				c.Set(ctx, key, data)
				_, _ = c.Get(ctx, key)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(16*500*64), c.Size())
	require.NoError(t, c.Close())
}
