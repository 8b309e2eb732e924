// Package failures loads the zone failure log of a simulation dataset.
//
// Each partition may have a side and a corner failure file
// (failures/side_pNN, failures/corner_pNN). Both are CSV: a row starting
// with "Run" opens the failure records, each "run,cycle,zone[,...]", and a
// row starting with "volume" opens a trailing statistics section that is
// ignored.
package failures
