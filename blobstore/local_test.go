package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestLocalStore(t *testing.T) {
	root := writeTree(t, map[string]string{
		"features/metadata_p00.txt":      "metrics\na,b\nzones\n1\n",
		"features/features_p00_r000.npy": "0123456789",
		"indexes/indexes_p00_r000.txt":   "0 -> 0\n",
		"indexes/indexes_p01_r000.txt":   "0 -> 0\n",
	})

	for name, store := range map[string]*LocalStore{
		"mmap":  NewLocalStore(root),
		"plain": NewLocalStore(root, WithPlainFiles()),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.Equal(t, root, store.Root())

			blob, err := store.Open(ctx, "features/features_p00_r000.npy")
			require.NoError(t, err)
			defer blob.Close()

			assert.Equal(t, int64(10), blob.Size())

			buf := make([]byte, 4)
			n, err := blob.ReadAt(ctx, buf, 3)
			require.NoError(t, err)
			assert.Equal(t, 4, n)
			assert.Equal(t, "3456", string(buf))

			n, err = blob.ReadAt(ctx, buf, 8)
			assert.Equal(t, 2, n)
			assert.ErrorIs(t, err, io.EOF)

			n, err = blob.ReadAt(ctx, buf, 10)
			assert.Equal(t, 0, n)
			assert.ErrorIs(t, err, io.EOF)

			names, err := store.List(ctx, "indexes/indexes_p")
			require.NoError(t, err)
			assert.Equal(t, []string{"indexes/indexes_p00_r000.txt", "indexes/indexes_p01_r000.txt"}, names)

			names, err = store.List(ctx, "features/")
			require.NoError(t, err)
			assert.Len(t, names, 2)

			names, err = store.List(ctx, "failures/side_p")
			require.NoError(t, err)
			assert.Empty(t, names)

			_, err = store.Open(ctx, "features/metadata_p09.txt")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLocalStore_CancelledContext(t *testing.T) {
	root := writeTree(t, map[string]string{"a.npy": "abcd"})
	store := NewLocalStore(root)

	blob, err := store.Open(context.Background(), "a.npy")
	require.NoError(t, err)
	defer blob.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = blob.ReadAt(ctx, make([]byte, 2), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadAll(t *testing.T) {
	store := NewMemoryStore()
	store.Put("indexes/indexes_p00_r000.txt", []byte("5 -> 0\n"))
	store.Put("empty.txt", nil)

	ctx := context.Background()
	data, err := ReadAll(ctx, store, "indexes/indexes_p00_r000.txt")
	require.NoError(t, err)
	assert.Equal(t, "5 -> 0\n", string(data))

	data, err = ReadAll(ctx, store, "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = ReadAll(ctx, store, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewReader(t *testing.T) {
	store := NewMemoryStore()
	store.Put("x", []byte("line one\nline two\n"))

	ctx := context.Background()
	blob, err := store.Open(ctx, "x")
	require.NoError(t, err)
	defer blob.Close()

	data, err := io.ReadAll(NewReader(ctx, blob))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(data))
}

func TestStoreIDs(t *testing.T) {
	root := t.TempDir()
	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(abs), NewLocalStore(root).ID())

	a, b := NewMemoryStore(), NewMemoryStore()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, a.ID(), NewCachingStore(a, nil, 0).ID())
}

func TestBlobVersions(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	mem.Put("x", []byte("one"))
	b1, err := mem.Open(ctx, "x")
	require.NoError(t, err)
	mem.Put("x", []byte("two"))
	b2, err := mem.Open(ctx, "x")
	require.NoError(t, err)
	assert.NotEmpty(t, VersionOf(b1))
	assert.NotEqual(t, VersionOf(b1), VersionOf(b2))

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte("data"), 0o644))
	for _, store := range []*LocalStore{NewLocalStore(root), NewLocalStore(root, WithPlainFiles())} {
		blob, err := store.Open(ctx, "f")
		require.NoError(t, err)
		assert.NotEmpty(t, VersionOf(blob))
		require.NoError(t, blob.Close())
	}
}
