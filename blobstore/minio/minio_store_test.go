package minio

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/meshfeat/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	bucket := "test-meshfeat"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte("0 -> 0\n1 -> 16\n")
	key := "test-prefix/indexes/indexes_p00_r000.txt"
	_, err = client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	require.NoError(t, err)
	defer func() { _ = client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}) }()

	store := NewStore(client, bucket, "test-prefix/")

	blob, err := store.Open(ctx, "indexes/indexes_p00_r000.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 6)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "0 -> 0", string(buf[:n]))

	buf = make([]byte, 64)
	n, err = blob.ReadAt(ctx, buf, 7)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "1 -> 16\n", string(buf[:n]))

	names, err := store.List(ctx, "indexes/indexes_p")
	require.NoError(t, err)
	assert.Contains(t, names, "indexes/indexes_p00_r000.txt")

	_, err = store.Open(ctx, "features/metadata_p99.txt")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_ID(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)

	assert.Equal(t, "minio://localhost:9000/bucket/run-042", NewStore(client, "bucket", "run-042/").ID())
}
