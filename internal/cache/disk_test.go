package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/meshfeat/internal/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskBlockCache(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := NewDiskBlockCache(DiskCacheConfig{
		RootDir:      tmpDir,
		MaxSizeBytes: 1024,
	})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	key1 := CacheKey{Namespace: "file:///data", Path: "features/features_p00_r000.npy", Size: 4096, Block: 0}
	data := make([]byte, 400)

	c.Set(ctx, key1, data)
	c.Flush()

	path1 := c.blockPath(key1.Sum64())
	assert.FileExists(t, path1)

	got, ok := c.Get(ctx, key1)
	assert.True(t, ok)
	assert.Equal(t, len(data), len(got))

	key2 := key1
	key2.Block = 1
	key3 := key1
	key3.Block = 2
	c.Set(ctx, key2, data)
	c.Flush()
	c.Set(ctx, key3, data)
	c.Flush()

	// Three 400-byte block files exceed 1KB; key1 is least recently used.
	_, ok = c.Get(ctx, key1)
	assert.False(t, ok)
	assert.NoFileExists(t, path1)

	_, ok = c.Get(ctx, key2)
	assert.True(t, ok)
	_, ok = c.Get(ctx, key3)
	assert.True(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(3), hits)
	assert.Equal(t, int64(1), misses)
}

func TestDiskBlockCache_Compressed(t *testing.T) {
	for _, typ := range []compress.Type{compress.LZ4, compress.ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			c, err := NewDiskBlockCache(DiskCacheConfig{
				RootDir:      t.TempDir(),
				MaxSizeBytes: 1 << 20,
				Compression:  typ,
			})
			require.NoError(t, err)

			ctx := context.Background()
			key := CacheKey{Namespace: "s3://bucket/run", Path: "features/features_p01_r002.npy", Version: `"etag"`, Size: 1 << 20, Block: 7}
			block := bytes.Repeat([]byte{0, 0, 128, 63}, 1024)

			c.Set(ctx, key, block)
			c.Flush()

			got, ok := c.Get(ctx, key)
			require.True(t, ok)
			assert.Equal(t, block, got)
			assert.Less(t, c.Size(), int64(len(block)))
		})
	}
}

func TestDiskBlockCache_Reload(t *testing.T) {
	config := DiskCacheConfig{RootDir: t.TempDir(), MaxSizeBytes: 10000, Compression: compress.LZ4}
	key := CacheKey{Namespace: "file:///data", Path: "features/features_p00_r000.npy", Size: 64, Block: 3}

	{
		c, err := NewDiskBlockCache(config)
		require.NoError(t, err)
		c.Set(context.Background(), key, []byte("hello"))
		require.NoError(t, c.Close())
	}

	// An interrupted write leaves a temp file behind.
	stray := filepath.Join(config.RootDir, tmpFilePrefix+"123")
	require.NoError(t, os.WriteFile(stray, []byte("partial"), 0o644))

	{
		c, err := NewDiskBlockCache(config)
		require.NoError(t, err)
		got, ok := c.Get(context.Background(), key)
		assert.True(t, ok)
		assert.Equal(t, "hello", string(got))
		assert.NoFileExists(t, stray)
	}
}

func TestDiskBlockCache_KeysStayApart(t *testing.T) {
	c, err := NewDiskBlockCache(DiskCacheConfig{RootDir: t.TempDir(), MaxSizeBytes: 1 << 20})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	base := CacheKey{Namespace: "s3://bucket-a/run", Path: "features/features_p00_r000.npy", Version: "v1", Size: 8, Block: 0}
	c.Set(ctx, base, []byte("AAAAAAAA"))
	c.Flush()

	otherStore := base
	otherStore.Namespace = "s3://bucket-b/run"
	rewritten := base
	rewritten.Version = "v2"
	resized := base
	resized.Size = 16

	for name, k := range map[string]CacheKey{"namespace": otherStore, "version": rewritten, "size": resized} {
		_, ok := c.Get(ctx, k)
		assert.False(t, ok, name)
	}

	got, ok := c.Get(ctx, base)
	require.True(t, ok)
	assert.Equal(t, "AAAAAAAA", string(got))
}

func TestDiskBlockCache_ForeignFileIsDropped(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	want := CacheKey{Namespace: "file:///a", Path: "x.npy", Size: 4}

	// A file under want's name holding another key's block, as after a
	// hash collision.
	c, err := NewDiskBlockCache(DiskCacheConfig{RootDir: root, MaxSizeBytes: 1 << 20})
	require.NoError(t, err)
	frame, err := compress.Encode([]byte("BBBB"), compress.None)
	require.NoError(t, err)
	other := CacheKey{Namespace: "file:///b", Path: "x.npy", Size: 4}
	require.NoError(t, writeFileAtomic(c.blockPath(want.Sum64()), encodeBlockFile(other, frame)))

	c, err = NewDiskBlockCache(DiskCacheConfig{RootDir: root, MaxSizeBytes: 1 << 20})
	require.NoError(t, err)
	assert.Positive(t, c.Size())

	_, ok := c.Get(ctx, want)
	assert.False(t, ok)
	assert.NoFileExists(t, c.blockPath(want.Sum64()))
	assert.Zero(t, c.Size())
}

func TestDecodeBlockFile(t *testing.T) {
	k := CacheKey{Namespace: "minio://host/bucket", Path: "p", Version: "e", Size: 123, Block: 9}
	got, frame, err := decodeBlockFile(encodeBlockFile(k, []byte("frame")))
	require.NoError(t, err)
	assert.Equal(t, k, got)
	assert.Equal(t, "frame", string(frame))

	for _, raw := range [][]byte{nil, []byte("XXXX"), []byte(blockFileMagic + "\xff")} {
		_, _, err := decodeBlockFile(raw)
		assert.ErrorIs(t, err, errBlockFile)
	}
}
