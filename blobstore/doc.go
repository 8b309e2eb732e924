// Package blobstore provides read-only storage access for feature datasets.
//
// A dataset is a directory tree of immutable files (metadata, cycle indexes,
// float32 feature blocks). BlobStore hides where that tree lives.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, memory-mapped by default
//   - MemoryStore: in-memory, for tests and fixtures
//   - CachingStore: block cache in front of any other store
//   - s3.Store: Amazon S3 with ranged reads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    List(ctx, prefix) ([]string, error)
//	}
//
//	type Blob interface {
//	    ReadAt(ctx, p, off) (int, error)
//	    Size() int64
//	    Close() error
//	}
package blobstore
