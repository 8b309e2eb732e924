// Package cache provides the caches behind the feature reader.
//
// # Block Cache (RAM)
//
// LRUBlockCache and ShardedLRUBlockCache hold fixed-size byte blocks of
// feature files keyed by blob path and block number. The sharded variant
// picks one of 64 shards with xxhash so parallel partition reads do not
// contend on a single mutex. Memory is accounted against an optional
// resource.Controller.
//
// # Disk Cache (L2)
//
// DiskBlockCache keeps blocks fetched from remote stores on local disk,
// optionally LZ4 or ZSTD compressed, with LRU eviction under a byte budget.
//
// # Load-once cache
//
// Memo memoizes immutable values (partition metadata, cycle indexes, the
// zone table) per key. Concurrent first access loads once; failed loads
// are not stored, so a retry reloads.
package cache
