package cache

import (
	"context"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// CacheKey identifies one block of one version of one blob in one dataset.
//
// Namespace and Version keep blocks of different stores, or of a blob that
// was rewritten, apart when a cache outlives the process.
type CacheKey struct {
	// Namespace is the store identity, e.g. "s3://bucket/prefix".
	Namespace string
	// Path is the blob name, e.g. "features/features_p03_r001.npy".
	Path string
	// Version is the blob's ETag or modification time, if the backend has one.
	Version string
	// Size is the blob size in bytes.
	Size int64
	// Block is the block number within the blob.
	Block uint64
}

// Sum64 returns the xxhash of the key.
func (k CacheKey) Sum64() uint64 {
	d := xxhash.New()
	for _, s := range []string{k.Namespace, k.Path, k.Version} {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(k.Size))
	binary.LittleEndian.PutUint64(buf[8:], k.Block)
	_, _ = d.Write(buf[:])
	return d.Sum64()
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	// Set caches a block. The cache may retain b; the caller must not modify it.
	Set(ctx context.Context, key CacheKey, b []byte)
	// Close waits for background work.
	Close() error
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}
