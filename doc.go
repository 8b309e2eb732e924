// Package meshfeat reads partitioned simulation-mesh feature data.
//
// A dataset is a directory (or bucket prefix) of immutable files produced by
// a simulation: per-partition metadata naming the metric columns and zone
// rows, per-(partition, run) cycle indexes, and per-(partition, run) binary
// feature files holding one float32 block per recorded cycle.
//
//	features/metadata_p00.txt
//	features/features_p00_r000.npy
//	indexes/indexes_p00_r000.txt
//
// A Reader resolves zone, partition and cycle addresses into byte ranges
// using the metadata and the index files, so a query never scans a feature
// file.
//
// # Basic Usage
//
//	store := blobstore.NewLocalStore("/data/run-042")
//	r, err := meshfeat.Open(ctx, store)
//	if err != nil {
//	    return err
//	}
//
//	values, err := r.ReadZone(ctx, 0, 1200, 48213)     // one zone, one cycle
//	block, err := r.ReadPartition(ctx, 0, 3, 1200)     // zones x metrics
//	series, err := r.ReadAllCyclesForZone(ctx, 0, 48213) // cycles x metrics
//	mesh, err := r.ReadAllZonesInCycle(ctx, 0, 1200)   // all zones, one cycle
//
// # Caching
//
// Metadata, cycle indexes and the global zone table are loaded at most once
// per Reader and never invalidated. Feature bytes are not cached unless
// WithBlockCache is set or the store is wrapped in a blobstore.CachingStore.
//
// # Remote Storage
//
// Any blobstore.BlobStore works; see blobstore/s3 and blobstore/minio for
// object storage backends.
//
// # Concurrency
//
// A Reader is safe for concurrent use.
package meshfeat
