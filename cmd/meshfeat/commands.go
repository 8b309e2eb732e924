package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hupe1980/meshfeat"
	"github.com/hupe1980/meshfeat/codec"
	"github.com/hupe1980/meshfeat/dataset"
	"github.com/hupe1980/meshfeat/failures"
	"github.com/hupe1980/meshfeat/summary"
	"github.com/urfave/cli/v3"
)

// withEnv wraps a command action with setup and teardown of the shared env.
func withEnv(fn func(ctx context.Context, cmd *cli.Command, e *env) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) (err error) {
		e, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := e.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(ctx, cmd, e)
	}
}

type infoResult struct {
	Partitions int      `json:"partitions"`
	Runs       []int    `json:"runs"`
	Metrics    []string `json:"metrics"`
	Zones      int      `json:"zones"`
	Cycles     []int64  `json:"cycles"`
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "show partitions, runs, metrics and the cycles of a run",
		Flags: []cli.Flag{runFlag()},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			runs, err := meshfeat.DiscoverRuns(ctx, e.store)
			if err != nil {
				return err
			}
			metrics, err := e.reader.MetricNames(ctx)
			if err != nil {
				return err
			}
			zones, err := e.reader.CycleZoneIDs(ctx)
			if err != nil {
				return err
			}
			cycles, err := e.reader.Cycles(ctx, cmd.Int("run"), 0)
			if err != nil {
				return err
			}

			res := infoResult{
				Partitions: e.reader.NumPartitions(),
				Runs:       runs,
				Metrics:    metrics,
				Zones:      len(zones),
				Cycles:     cycles,
			}
			return e.emit(res, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "partitions:\t%d\n", res.Partitions)
				fmt.Fprintf(tw, "runs:\t%s\n", joinInts(res.Runs))
				fmt.Fprintf(tw, "metrics:\t%s\n", strings.Join(res.Metrics, ","))
				fmt.Fprintf(tw, "zones:\t%d\n", res.Zones)
				fmt.Fprintf(tw, "cycles:\t%d\n", len(res.Cycles))
				return tw.Flush()
			})
		}),
	}
}

type zoneResult struct {
	Zone    int64              `json:"zone"`
	Run     int                `json:"run"`
	Cycle   int64              `json:"cycle"`
	Values  map[string]float32 `json:"values"`
	Metrics []string           `json:"-"`
}

func zoneCommand() *cli.Command {
	return &cli.Command{
		Name:  "zone",
		Usage: "read the metric values of one zone at one cycle",
		Flags: []cli.Flag{runFlag(), cycleFlag(), zoneFlag()},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			zone, cycle := cmd.Int64("zone"), cmd.Int64("cycle")
			values, err := e.reader.ReadZone(ctx, cmd.Int("run"), cycle, zone)
			if err != nil {
				return err
			}
			metrics, err := e.reader.ZoneMetricNames(ctx, zone)
			if err != nil {
				return err
			}

			res := zoneResult{Zone: zone, Run: cmd.Int("run"), Cycle: cycle, Values: make(map[string]float32, len(values)), Metrics: metrics}
			for i, v := range values {
				res.Values[metrics[i]] = v
			}
			return e.emit(res, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for i, m := range res.Metrics {
					fmt.Fprintf(tw, "%s\t%s\n", m, formatFloat(values[i]))
				}
				return tw.Flush()
			})
		}),
	}
}

func partitionCommand() *cli.Command {
	return &cli.Command{
		Name:  "partition",
		Usage: "read the block of one partition at one cycle",
		Flags: []cli.Flag{
			runFlag(),
			cycleFlag(),
			&cli.IntFlag{Name: "part", Aliases: []string{"p"}, Usage: "partition number"},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			part := cmd.Int("part")
			mat, err := e.reader.ReadPartition(ctx, cmd.Int("run"), part, cmd.Int64("cycle"))
			if err != nil {
				return err
			}
			m, err := e.reader.PartitionMetadata(ctx, part)
			if err != nil {
				return err
			}
			return e.emitMatrix("zone", m.Zones(), m.Metrics(), mat)
		}),
	}
}

func cycleCommand() *cli.Command {
	return &cli.Command{
		Name:  "cycle",
		Usage: "read every zone of the mesh at one cycle",
		Flags: []cli.Flag{runFlag(), cycleFlag()},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			mat, err := e.reader.ReadAllZonesInCycle(ctx, cmd.Int("run"), cmd.Int64("cycle"))
			if err != nil {
				return err
			}
			zones, err := e.reader.CycleZoneIDs(ctx)
			if err != nil {
				return err
			}
			metrics, err := e.reader.MetricNames(ctx)
			if err != nil {
				return err
			}
			return e.emitMatrix("zone", zones, metrics, mat)
		}),
	}
}

func seriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "series",
		Usage: "read one zone across cycles",
		Flags: []cli.Flag{
			runFlag(),
			zoneFlag(),
			&cli.Int64SliceFlag{Name: "cycles", Usage: "cycles to read (default all indexed cycles)"},
			&cli.StringFlag{Name: "metric", Aliases: []string{"m"}, Usage: "read only this metric"},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			run, zone := cmd.Int("run"), cmd.Int64("zone")

			if metric := cmd.String("metric"); metric != "" {
				s, err := e.reader.ReadMetricSeries(ctx, run, zone, metric)
				if err != nil {
					return err
				}
				return e.emit(s, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintf(tw, "cycle\t%s\n", s.Metric)
					for i, c := range s.Cycles {
						fmt.Fprintf(tw, "%d\t%s\n", c, formatFloat(s.Values[i]))
					}
					return tw.Flush()
				})
			}

			var cycles []int64
			if cmd.IsSet("cycles") {
				cycles = cmd.Int64Slice("cycles")
			} else {
				loc, err := e.reader.Locate(ctx, zone)
				if err != nil {
					return err
				}
				if cycles, err = e.reader.Cycles(ctx, run, loc.Partition); err != nil {
					return err
				}
			}
			mat, err := e.reader.ReadZoneCycles(ctx, run, zone, cycles)
			if err != nil {
				return err
			}
			metrics, err := e.reader.ZoneMetricNames(ctx, zone)
			if err != nil {
				return err
			}
			return e.emitMatrix("cycle", cycles, metrics, mat)
		}),
	}
}

func failuresCommand() *cli.Command {
	return &cli.Command{
		Name:  "failures",
		Usage: "list the failure log",
		Action: withEnv(func(ctx context.Context, _ *cli.Command, e *env) error {
			log, err := failures.Load(ctx, e.store, e.reader.NumPartitions())
			if err != nil {
				return err
			}
			return e.emit(log.Records, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "kind\tpartition\trun\tcycle\tzone")
				for _, f := range log.Records {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", f.Kind, f.Partition, f.Run, f.Cycle, f.Zone)
				}
				return tw.Flush()
			})
		}),
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "summarize metric series of zones as CSV",
		Flags: []cli.Flag{
			runFlag(),
			&cli.Int64SliceFlag{Name: "zones", Usage: "zones to summarize (default the failed zones)"},
			&cli.StringSliceFlag{Name: "metrics", Usage: "metrics to summarize (default all)"},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			zones := cmd.Int64Slice("zones")
			if len(zones) == 0 {
				log, err := failures.Load(ctx, e.store, e.reader.NumPartitions())
				if err != nil {
					return err
				}
				zones = failedZones(log)
			}
			selected := cmd.StringSlice("metrics")

			rows := make([]summary.Stats, 0, len(zones))
			for _, zone := range zones {
				metrics := selected
				if len(metrics) == 0 {
					var err error
					if metrics, err = e.reader.ZoneMetricNames(ctx, zone); err != nil {
						return err
					}
				}
				for _, metric := range metrics {
					s, err := e.reader.ReadMetricSeries(ctx, cmd.Int("run"), zone, metric)
					if err != nil {
						return err
					}
					if len(s.Values) == 0 {
						e.logger.WarnContext(ctx, "empty series", "zone", zone, "metric", metric)
						continue
					}
					st, err := summary.Compute(s)
					if err != nil {
						return err
					}
					rows = append(rows, st)
				}
			}
			return e.emit(rows, func(w io.Writer) error {
				return summary.WriteCSV(w, rows)
			})
		}),
	}
}

func datasetCommand() *cli.Command {
	def := dataset.DefaultConfig()
	return &cli.Command{
		Name:  "dataset",
		Usage: "assemble labeled training samples around failures as CSV",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "start", Value: def.StartCycle, Usage: "first good cycle"},
			&cli.Int64Flag{Name: "end", Value: def.EndCycle, Usage: "last good cycle (-1 derives it from the first failure)"},
			&cli.Int64Flag{Name: "freq", Value: def.SampleFreq, Usage: "step between good cycles (0 disables good samples)"},
			&cli.IntFlag{Name: "window", Value: def.DecayWindow, Usage: "cycles labeled before each failure"},
			&cli.IntFlag{Name: "good-run", Value: def.GoodRun, Usage: "run good samples are read from"},
			&cli.IntFlag{Name: "max-failures", Value: def.MaxFailures, Usage: "failures to sample (-1 uses all)"},
			&cli.Int64Flag{Name: "seed", Value: def.Seed, Usage: "failure sampling seed"},
			&cli.StringFlag{Name: "out", Usage: "write CSV to this file instead of stdout"},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			log, err := failures.Load(ctx, e.store, e.reader.NumPartitions())
			if err != nil {
				return err
			}

			cfg := dataset.Config{
				StartCycle:  cmd.Int64("start"),
				EndCycle:    cmd.Int64("end"),
				SampleFreq:  cmd.Int64("freq"),
				DecayWindow: cmd.Int("window"),
				GoodRun:     cmd.Int("good-run"),
				MaxFailures: cmd.Int("max-failures"),
				Seed:        cmd.Int64("seed"),
				Logger:      e.logger,
			}
			samples, err := dataset.Build(ctx, e.reader, log, cfg)
			if err != nil {
				return err
			}
			metrics, err := e.reader.MetricNames(ctx)
			if err != nil {
				return err
			}
			e.logger.InfoContext(ctx, "dataset assembled", "samples", samples.Len(), "failures", log.Len())

			if path := cmd.String("out"); path != "" {
				return writeFile(path, func(w io.Writer) error {
					return e.writeSamples(w, metrics, samples)
				})
			}
			return e.writeSamples(e.out, metrics, samples)
		}),
	}
}

// emitMatrix prints mat with one labeled row per key.
func (e *env) emitMatrix(keyName string, keys []int64, metrics []string, mat *meshfeat.Matrix) error {
	return e.emit(mat, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\t%s\n", keyName, strings.Join(metrics, "\t"))
		for i := range mat.Rows {
			fields := make([]string, 0, mat.Cols)
			for _, v := range mat.Row(i) {
				fields = append(fields, formatFloat(v))
			}
			fmt.Fprintf(tw, "%d\t%s\n", keys[i], strings.Join(fields, "\t"))
		}
		return tw.Flush()
	})
}

func (e *env) writeSamples(w io.Writer, metrics []string, s *dataset.Samples) error {
	if e.cfg.Format == "json" {
		return codec.Encode(w, e.codec, s)
	}
	return writeSamplesCSV(w, metrics, s)
}

func writeFile(path string, fn func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

func writeSamplesCSV(w io.Writer, metrics []string, s *dataset.Samples) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"cycle", "zone", "label"}, metrics...)); err != nil {
		return err
	}
	rec := make([]string, 3+len(metrics))
	for i, k := range s.Index {
		rec[0] = strconv.FormatInt(k.Cycle, 10)
		rec[1] = strconv.FormatInt(k.Zone, 10)
		rec[2] = formatFloat(s.Y[i])
		for j, v := range s.X.Row(i) {
			rec[3+j] = formatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// failedZones returns the distinct failed zones in log order.
func failedZones(log *failures.Log) []int64 {
	seen := make(map[int64]struct{}, log.Len())
	zones := make([]int64, 0, log.Len())
	for _, f := range log.Records {
		if _, ok := seen[f.Zone]; ok {
			continue
		}
		seen[f.Zone] = struct{}{}
		zones = append(zones, f.Zone)
	}
	return zones
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
