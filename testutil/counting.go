package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/meshfeat/blobstore"
)

// CountingStore wraps a BlobStore and counts Open calls per name.
type CountingStore struct {
	blobstore.BlobStore

	mu    sync.Mutex
	opens map[string]int
}

// NewCountingStore wraps inner.
func NewCountingStore(inner blobstore.BlobStore) *CountingStore {
	return &CountingStore{BlobStore: inner, opens: make(map[string]int)}
}

// Open implements blobstore.BlobStore.
func (c *CountingStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	return c.BlobStore.Open(ctx, name)
}

// Opens returns how often name was opened.
func (c *CountingStore) Opens(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}

// TotalOpens returns the number of Open calls across all names.
func (c *CountingStore) TotalOpens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.opens {
		n += v
	}
	return n
}
