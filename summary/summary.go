// Package summary computes per-series statistics of metric time series.
package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hupe1980/meshfeat"
)

// SteepThreshold is the per-cycle increase above which a step counts as steep.
const SteepThreshold = 1.0

// Header is the CSV header written by WriteCSV.
var Header = []string{"zone", "metric", "min_cycle", "min", "max_cycle", "max", "mean", "mean_slope", "steep_slopes"}

// Stats summarizes one metric series.
type Stats struct {
	Zone     int64
	Metric   string
	N        int
	MinCycle int64
	Min      float32
	MaxCycle int64
	Max      float32
	Mean     float64
	// MeanSlope is the sum of successive differences, starting from 0,
	// divided by N.
	MeanSlope float64
	// SteepSlopes counts differences greater than SteepThreshold.
	SteepSlopes int
}

// Compute summarizes s. On ties the later cycle wins for both min and max.
func Compute(s meshfeat.Series) (Stats, error) {
	if len(s.Values) == 0 {
		return Stats{}, fmt.Errorf("%w: empty series for zone %d metric %q", meshfeat.ErrInvalidArgument, s.Zone, s.Metric)
	}
	if len(s.Cycles) != len(s.Values) {
		return Stats{}, fmt.Errorf("%w: %d cycles for %d values", meshfeat.ErrInvalidArgument, len(s.Cycles), len(s.Values))
	}

	st := Stats{
		Zone:     s.Zone,
		Metric:   s.Metric,
		N:        len(s.Values),
		Min:      s.Values[0],
		MinCycle: s.Cycles[0],
		Max:      s.Values[0],
		MaxCycle: s.Cycles[0],
	}

	var sum, slope, prev float64
	for i, v := range s.Values {
		if v <= st.Min {
			st.Min, st.MinCycle = v, s.Cycles[i]
		}
		if v >= st.Max {
			st.Max, st.MaxCycle = v, s.Cycles[i]
		}

		fv := float64(v)
		d := fv - prev
		slope += d
		if d > SteepThreshold {
			st.SteepSlopes++
		}
		prev = fv
		sum += fv
	}

	n := float64(st.N)
	st.Mean = sum / n
	st.MeanSlope = slope / n
	return st, nil
}

// WriteCSV writes rows with Header.
func WriteCSV(w io.Writer, rows []Stats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(r.Zone, 10),
			r.Metric,
			strconv.FormatInt(r.MinCycle, 10),
			strconv.FormatFloat(float64(r.Min), 'g', -1, 32),
			strconv.FormatInt(r.MaxCycle, 10),
			strconv.FormatFloat(float64(r.Max), 'g', -1, 32),
			strconv.FormatFloat(r.Mean, 'g', -1, 64),
			strconv.FormatFloat(r.MeanSlope, 'g', -1, 64),
			strconv.Itoa(r.SteepSlopes),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
