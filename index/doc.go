// Package index parses per-(partition, run) cycle index files.
//
// Each line maps a cycle id to the byte offset of that cycle's block in the
// partition's feature file:
//
//	0 -> 0
//	25 -> 184320
//	50 -> 368640
//
// Cycles are sparse; the index is the only way to locate them.
package index
