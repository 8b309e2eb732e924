package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is a read-only view over the immutable files of a dataset.
// Names are slash-separated paths relative to the dataset root,
// e.g. "indexes/indexes_p00_r000.txt".
type BlobStore interface {
	// ID identifies the dataset behind the store, e.g. "s3://bucket/prefix".
	// Two stores with the same ID serve the same blobs.
	ID() string
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// List returns the names of all blobs starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
//
// ReadAt follows io.ReaderAt semantics: when fewer than len(p) bytes are
// available it returns the count and a non-nil error (io.EOF at the end).
type Blob interface {
	io.Closer
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Versioned is implemented by blobs whose backend reports a content
// version, such as an ETag or a modification time.
type Versioned interface {
	Version() string
}

// VersionOf returns b's version, or "" if its backend has none.
func VersionOf(b Blob) string {
	if v, ok := b.(Versioned); ok {
		return v.Version()
	}
	return ""
}

// ReadAll reads a whole blob into memory.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	buf := make([]byte, b.Size())
	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return nil, err
	}
	return buf[:n], nil
}

// NewReader adapts a Blob to a sequential io.Reader bound to ctx.
func NewReader(ctx context.Context, b Blob) io.Reader {
	return &sectionReader{blob: b, ctx: ctx, limit: b.Size()}
}

type sectionReader struct {
	blob  Blob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *sectionReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}
