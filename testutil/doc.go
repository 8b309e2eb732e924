// Package testutil provides testing utilities for meshfeat.
//
// This package is intended for use in tests only. It builds small datasets
// in the on-disk layout the Reader expects and wraps stores to count opens.
//
//	ds := testutil.NewDataset()
//	ds.AddPartition(0, []string{"a", "b"}, []int64{10, 20})
//	ds.AddCycle(0, 0, 5, []float32{1, 2, 3, 4})
//
//	store := ds.MemoryStore()       // or ds.WriteDir(t, t.TempDir())
//	counting := testutil.NewCountingStore(store)
package testutil
