package dataset

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/meshfeat"
	"github.com/hupe1980/meshfeat/failures"
)

// Source is the subset of meshfeat.Reader used for assembly.
type Source interface {
	CycleZoneIDs(ctx context.Context) ([]int64, error)
	ReadAllZonesInCycle(ctx context.Context, run int, cycle int64) (*meshfeat.Matrix, error)
	ReadZoneCycles(ctx context.Context, run int, zone int64, cycles []int64) (*meshfeat.Matrix, error)
}

// Config controls sample selection.
type Config struct {
	// StartCycle is the first candidate good cycle.
	StartCycle int64
	// EndCycle is the last candidate good cycle; -1 means up to the first
	// failure minus DecayWindow.
	EndCycle int64
	// SampleFreq is the step between good cycles; 0 disables good samples.
	SampleFreq int64
	// DecayWindow is the number of cycles labeled before each failure.
	DecayWindow int
	// GoodRun is the run good samples are read from.
	GoodRun int
	// MaxFailures caps the failures used, sampled with Seed; -1 means all.
	MaxFailures int
	Seed        int64

	Logger *meshfeat.Logger
}

// DefaultConfig samples every 1000 cycles with a 100 cycle decay window
// and all failures.
func DefaultConfig() Config {
	return Config{
		StartCycle:  0,
		EndCycle:    -1,
		SampleFreq:  1000,
		DecayWindow: 100,
		GoodRun:     0,
		MaxFailures: -1,
	}
}

// Key identifies the (cycle, zone) a sample row was read from.
type Key struct {
	Cycle int64
	Zone  int64
}

// Samples are feature rows with their origin and label.
type Samples struct {
	Index []Key
	X     *meshfeat.Matrix
	Y     []float32
}

// Len returns the number of samples.
func (s *Samples) Len() int { return len(s.Index) }

// Build assembles samples from src for the failures in log.
func Build(ctx context.Context, src Source, log *failures.Log, cfg Config) (*Samples, error) {
	if log == nil || log.Len() == 0 {
		return nil, fmt.Errorf("%w: empty failure log", meshfeat.ErrNotFound)
	}
	if cfg.DecayWindow < 0 || cfg.SampleFreq < 0 {
		return nil, fmt.Errorf("%w: negative decay window or sample frequency", meshfeat.ErrInvalidArgument)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = meshfeat.NoopLogger()
	}

	goodCycles := GoodCycles(cfg, log, logger)

	out := &Samples{}
	var blocks []*meshfeat.Matrix

	if len(goodCycles) > 0 {
		zones, err := src.CycleZoneIDs(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range goodCycles {
			m, err := src.ReadAllZonesInCycle(ctx, cfg.GoodRun, c)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, m)
			for _, z := range zones {
				out.Index = append(out.Index, Key{Cycle: c, Zone: z})
				out.Y = append(out.Y, 0)
			}
		}
	}

	window := cfg.DecayWindow
	for _, f := range sampleFailures(log.Records, cfg.MaxFailures, cfg.Seed) {
		if window == 0 {
			break
		}
		cycles := make([]int64, window)
		for step := range window {
			cycles[step] = f.Cycle - int64(step)
		}

		m, err := src.ReadZoneCycles(ctx, f.Run, f.Zone, cycles)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, m)
		for step, c := range cycles {
			out.Index = append(out.Index, Key{Cycle: c, Zone: f.Zone})
			out.Y = append(out.Y, 1-float32(step)/float32(window))
		}
	}

	x, err := meshfeat.VStack(blocks...)
	if err != nil {
		return nil, err
	}
	out.X = x

	logger.InfoContext(ctx, "assembled learning samples",
		"good_cycles", len(goodCycles),
		"failures", log.Len(),
		"rows", out.Len(),
	)
	return out, nil
}

// GoodCycles returns the candidate good cycles: StartCycle..EndCycle in
// SampleFreq steps, both bounds clamped to the first failure minus the decay
// window, minus any cycle within the decay window of a failure.
func GoodCycles(cfg Config, log *failures.Log, logger *meshfeat.Logger) []int64 {
	if cfg.SampleFreq == 0 || log.Len() == 0 {
		return nil
	}
	if logger == nil {
		logger = meshfeat.NoopLogger()
	}

	window := int64(cfg.DecayWindow)
	preFirst := log.FirstCycle() - window

	start, end := cfg.StartCycle, cfg.EndCycle
	if start > preFirst {
		logger.Warn("start cycle after first failure window, clamping", "start_cycle", start, "clamped", preFirst)
		start = preFirst
	}
	if end == -1 {
		end = preFirst
	} else if end > preFirst {
		logger.Warn("end cycle after first failure window, clamping", "end_cycle", end, "clamped", preFirst)
		end = preFirst
	}

	bad := badCycles(log.Cycles(), window)

	var good []int64
	for c := start; c <= end; c += cfg.SampleFreq {
		if !bad.contains(c) {
			good = append(good, c)
		}
	}
	return good
}

// cycleSet holds the cycles (f-window, f] of every failure f. Non-negative
// cycles that fit a uint32 live in the bitmap; the rest are checked against
// the failure list directly.
type cycleSet struct {
	bm       *roaring.Bitmap
	failures []int64
	window   int64
}

func badCycles(failed []int64, window int64) cycleSet {
	bm := roaring.New()
	for _, f := range failed {
		lo := max(f-window+1, 0)
		hi := min(f+1, math.MaxUint32)
		if lo < hi {
			bm.AddRange(uint64(lo), uint64(hi))
		}
	}
	return cycleSet{bm: bm, failures: failed, window: window}
}

func (s cycleSet) contains(c int64) bool {
	if c >= 0 && c < math.MaxUint32 {
		return s.bm.Contains(uint32(c))
	}
	return slices.ContainsFunc(s.failures, func(f int64) bool {
		return c <= f && c > f-s.window
	})
}

func sampleFailures(recs []failures.Failure, n int, seed int64) []failures.Failure {
	if n < 0 || n >= len(recs) {
		return recs
	}
	shuffled := slices.Clone(recs)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}
