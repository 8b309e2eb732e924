package dataset

import (
	"context"
	"testing"

	"github.com/hupe1980/meshfeat"
	"github.com/hupe1980/meshfeat/failures"
	"github.com/hupe1980/meshfeat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReader(t *testing.T) *meshfeat.Reader {
	t.Helper()

	ds := testutil.NewDataset().
		AddPartition(0, []string{"a"}, []int64{1}).
		AddPartition(1, []string{"a"}, []int64{2})
	for c := int64(0); c <= 10; c++ {
		ds.AddCycle(0, 0, c, []float32{float32(c*10 + 1)})
		ds.AddCycle(0, 1, c, []float32{float32(c*10 + 2)})
	}

	r, err := meshfeat.NewReader(ds.MemoryStore(), 2)
	require.NoError(t, err)
	return r
}

func TestBuild(t *testing.T) {
	r := newReader(t)
	log := &failures.Log{Records: []failures.Failure{
		{Kind: "side", Partition: 1, Run: 0, Cycle: 8, Zone: 2},
	}}

	cfg := DefaultConfig()
	cfg.SampleFreq = 2
	cfg.DecayWindow = 3

	s, err := Build(context.Background(), r, log, cfg)
	require.NoError(t, err)

	// good cycles 0, 2, 4 for both zones, then cycles 8, 7, 6 of zone 2
	require.Equal(t, 9, s.Len())
	require.Equal(t, 9, s.X.Rows)
	require.Len(t, s.Y, 9)

	assert.Equal(t, []Key{
		{0, 1}, {0, 2}, {2, 1}, {2, 2}, {4, 1}, {4, 2},
		{8, 2}, {7, 2}, {6, 2},
	}, s.Index)

	for i, k := range s.Index {
		assert.Equal(t, float32(k.Cycle*10+k.Zone), s.X.At(i, 0), "row %d", i)
	}

	for i := range 6 {
		assert.Equal(t, float32(0), s.Y[i])
	}
	assert.InDelta(t, 1.0, s.Y[6], 1e-6)
	assert.InDelta(t, 2.0/3, s.Y[7], 1e-6)
	assert.InDelta(t, 1.0/3, s.Y[8], 1e-6)
}

func TestBuild_NoGoodSamples(t *testing.T) {
	r := newReader(t)
	log := &failures.Log{Records: []failures.Failure{
		{Run: 0, Cycle: 5, Zone: 1},
		{Run: 0, Cycle: 9, Zone: 2},
	}}

	cfg := DefaultConfig()
	cfg.SampleFreq = 0
	cfg.DecayWindow = 2

	s, err := Build(context.Background(), r, log, cfg)
	require.NoError(t, err)
	assert.Equal(t, []Key{{5, 1}, {4, 1}, {9, 2}, {8, 2}}, s.Index)
	assert.Equal(t, []float32{1, 0.5, 1, 0.5}, s.Y)
}

func TestBuild_MaxFailures(t *testing.T) {
	r := newReader(t)
	log := &failures.Log{Records: []failures.Failure{
		{Run: 0, Cycle: 5, Zone: 1},
		{Run: 0, Cycle: 9, Zone: 2},
		{Run: 0, Cycle: 7, Zone: 2},
	}}

	cfg := DefaultConfig()
	cfg.SampleFreq = 0
	cfg.DecayWindow = 1
	cfg.MaxFailures = 2
	cfg.Seed = 42

	a, err := Build(context.Background(), r, log, cfg)
	require.NoError(t, err)
	b, err := Build(context.Background(), r, log, cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, a.Index, b.Index)
}

func TestBuild_MissingCycle(t *testing.T) {
	r := newReader(t)
	log := &failures.Log{Records: []failures.Failure{
		{Run: 0, Cycle: 1, Zone: 1},
	}}

	cfg := DefaultConfig()
	cfg.SampleFreq = 0
	cfg.DecayWindow = 3 // reaches cycle -1

	_, err := Build(context.Background(), r, log, cfg)
	assert.ErrorIs(t, err, meshfeat.ErrNotFound)
}

func TestBuild_EmptyLog(t *testing.T) {
	_, err := Build(context.Background(), newReader(t), &failures.Log{}, DefaultConfig())
	assert.ErrorIs(t, err, meshfeat.ErrNotFound)
}

func TestGoodCycles(t *testing.T) {
	log := &failures.Log{Records: []failures.Failure{{Cycle: 130}, {Cycle: 100}}}

	tests := []struct {
		name string
		cfg  Config
		want []int64
	}{
		{"up to first failure", Config{EndCycle: -1, SampleFreq: 30, DecayWindow: 10}, []int64{0, 30, 60, 90}},
		{"end clamped", Config{EndCycle: 500, SampleFreq: 45, DecayWindow: 10}, []int64{0, 45, 90}},
		{"explicit end", Config{StartCycle: 10, EndCycle: 40, SampleFreq: 10, DecayWindow: 10}, []int64{10, 20, 30, 40}},
		{"start clamped", Config{StartCycle: 1000, EndCycle: -1, SampleFreq: 10, DecayWindow: 10}, []int64{90}},
		{"no good samples", Config{EndCycle: -1, SampleFreq: 0, DecayWindow: 10}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GoodCycles(tc.cfg, log, nil))
		})
	}
}

func TestBadCycles(t *testing.T) {
	set := badCycles([]int64{10, 3}, 4)

	for _, c := range []int64{7, 8, 9, 10, 0, 1, 2, 3} {
		assert.True(t, set.contains(c), "cycle %d", c)
	}
	for _, c := range []int64{6, 11, 4, 5, -1, -2} {
		assert.False(t, set.contains(c), "cycle %d", c)
	}
}
