// Package metadata parses per-partition metadata files.
//
// A metadata file names the metric columns and the zone rows of one
// partition's per-cycle feature block:
//
//	metrics
//	pressure,density,energy
//	zones
//	1042
//	1043
//	...
//
// Line one and line three are headers and are skipped. Metric column order
// and zone row order are fixed by first appearance.
package metadata
