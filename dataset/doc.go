// Package dataset assembles labeled learning samples from a feature reader
// and a failure log.
//
// Good samples are whole-mesh snapshots taken every SampleFreq cycles before
// the first failure; they are labeled 0. Each failure contributes the failed
// zone's rows for the DecayWindow cycles leading up to it, labeled with a
// linear decay from 1 at the failure cycle.
package dataset
