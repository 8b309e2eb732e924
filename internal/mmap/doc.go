// Package mmap maps feature files read-only for random access.
//
// A zone read touches one row per cycle at scattered offsets; mapping the
// file turns each of those into a copy out of the page cache.
//
//	f, err := mmap.Open("features/features_p00_r000.npy")
//	if err != nil { ... }
//	defer f.Close()
//
//	n, err := f.ReadAt(buf, off)
//
// Unix uses mmap(2) with MADV_RANDOM. Windows uses MapViewOfFile.
package mmap
