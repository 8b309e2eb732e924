package summary

import (
	"bytes"
	"testing"

	"github.com/hupe1980/meshfeat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	s := meshfeat.Series{
		Zone:   7,
		Metric: "p",
		Cycles: []int64{0, 10, 20, 30},
		Values: []float32{2, 5, 1, 5},
	}

	st, err := Compute(s)
	require.NoError(t, err)

	assert.Equal(t, 4, st.N)
	assert.Equal(t, float32(1), st.Min)
	assert.Equal(t, int64(20), st.MinCycle)
	assert.Equal(t, float32(5), st.Max)
	assert.Equal(t, int64(30), st.MaxCycle) // later tie wins
	assert.InDelta(t, 3.25, st.Mean, 1e-9)
	// deltas from 0: 2, 3, -4, 4
	assert.InDelta(t, 1.25, st.MeanSlope, 1e-9)
	assert.Equal(t, 3, st.SteepSlopes)
}

func TestCompute_Errors(t *testing.T) {
	_, err := Compute(meshfeat.Series{})
	assert.ErrorIs(t, err, meshfeat.ErrInvalidArgument)

	_, err = Compute(meshfeat.Series{Cycles: []int64{1}, Values: []float32{1, 2}})
	assert.ErrorIs(t, err, meshfeat.ErrInvalidArgument)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Stats{{
		Zone: 7, Metric: "p", MinCycle: 20, Min: 1, MaxCycle: 30, Max: 5.5,
		Mean: 3.25, MeanSlope: 1.25, SteepSlopes: 3,
	}})
	require.NoError(t, err)

	assert.Equal(t,
		"zone,metric,min_cycle,min,max_cycle,max,mean,mean_slope,steep_slopes\n"+
			"7,p,20,1,30,5.5,3.25,1.25,3\n",
		buf.String())
}
