package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/meshfeat/internal/cache"
	"golang.org/x/sync/errgroup"
)

// CachingStore wraps a BlobStore and adds block-level caching.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to 64KB if <= 0.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = 64 * 1024
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}
}

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner: b,
		cache: s.cache,
		base: cache.CacheKey{
			Namespace: s.inner.ID(),
			Path:      name,
			Version:   VersionOf(b),
			Size:      b.Size(),
		},
		blockSize: s.blockSize,
	}, nil
}

// ID returns the ID of the wrapped store.
func (s *CachingStore) ID() string {
	return s.inner.ID()
}

// List delegates to the wrapped store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// CachingBlob wraps a Blob and uses the block cache for reads.
type CachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	base      cache.CacheKey
	blockSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

// Version returns the version of the wrapped blob.
func (b *CachingBlob) Version() string {
	return b.base.Version
}

func (b *CachingBlob) key(blk int64) cache.CacheKey {
	k := b.base
	k.Block = uint64(blk)
	return k
}

// ReadAt assembles p from cached blocks, fetching missing runs first.
// Returns io.EOF when the blob ends before p is full.
func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 || off >= b.Size() {
		return 0, io.EOF
	}

	startBlock := off / b.blockSize
	endBlock := (min(off+int64(len(p)), b.Size()) - 1) / b.blockSize

	if err := b.fillCache(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	total := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		blkStart := blk * b.blockSize

		// Intersection of [blkStart, blkStart+blockSize) and [off, off+len(p)).
		lo := max(blkStart, off)
		hi := min(blkStart+b.blockSize, off+int64(len(p)))
		if hi <= lo {
			continue
		}

		data, err := b.fetchBlock(ctx, blk)
		if err != nil {
			return total, err
		}

		src := lo - blkStart
		if src >= int64(len(data)) {
			break
		}
		total += copy(p[lo-off:hi-off], data[src:])
	}

	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fillCache loads missing blocks in [startBlock, endBlock], coalescing
// contiguous misses into single backend reads.
func (b *CachingBlob) fillCache(ctx context.Context, startBlock, endBlock int64) error {
	type span struct{ start, count int64 }

	var missing []span
	runStart := int64(-1)
	for blk := startBlock; blk <= endBlock; blk++ {
		if _, ok := b.cache.Get(ctx, b.key(blk)); !ok {
			if runStart == -1 {
				runStart = blk
			}
			continue
		}
		if runStart != -1 {
			missing = append(missing, span{runStart, blk - runStart})
			runStart = -1
		}
	}
	if runStart != -1 {
		missing = append(missing, span{runStart, endBlock + 1 - runStart})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for _, run := range missing {
		g.Go(func() error {
			byteStart := run.start * b.blockSize
			byteSize := min(run.count*b.blockSize, b.Size()-byteStart)
			if byteSize <= 0 {
				return nil
			}

			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			valid := buf[:n]

			for i := int64(0); i < run.count; i++ {
				lo := i * b.blockSize
				if lo >= int64(len(valid)) {
					break
				}
				hi := min(lo+b.blockSize, int64(len(valid)))

				// Copy so a cached block does not pin the whole run buffer.
				block := make([]byte, hi-lo)
				copy(block, valid[lo:hi])
				b.cache.Set(gctx, b.key(run.start+i), block)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *CachingBlob) fetchBlock(ctx context.Context, blk int64) ([]byte, error) {
	if data, ok := b.cache.Get(ctx, b.key(blk)); ok {
		return data, nil
	}

	// Evicted between fill and copy, or refused by the cache.
	buf := make([]byte, b.blockSize)
	n, err := b.inner.ReadAt(ctx, buf, blk*b.blockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n > 0 {
		b.cache.Set(ctx, b.key(blk), buf[:n])
	}
	return buf[:n], nil
}
