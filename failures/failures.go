package failures

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/meshfeat"
	"github.com/hupe1980/meshfeat/blobstore"
)

// Kinds of failure files, in load order per partition.
var Kinds = []string{"side", "corner"}

// Failure is one failed zone.
type Failure struct {
	Kind      string
	Partition int
	Run       int
	Cycle     int64
	Zone      int64
}

// Log is the failure log of a dataset, in file order.
type Log struct {
	Records []Failure
}

// Path returns the name of a failure file.
func Path(kind string, part int) string {
	return fmt.Sprintf("failures/%s_p%02d", kind, part)
}

// Load reads the failure files of partitions 0..numParts-1. Missing files
// are skipped; a dataset without any record yields ErrNotFound.
func Load(ctx context.Context, store blobstore.BlobStore, numParts int) (*Log, error) {
	log := &Log{}

	for part := range numParts {
		for _, kind := range Kinds {
			path := Path(kind, part)

			data, err := blobstore.ReadAll(ctx, store, path)
			if err != nil {
				if errors.Is(err, blobstore.ErrNotFound) {
					continue
				}
				return nil, err
			}

			recs, err := Parse(bytes.NewReader(data), kind, part)
			if err != nil {
				var pe *meshfeat.ParseError
				if errors.As(err, &pe) {
					pe.Path = path
				}
				return nil, err
			}
			log.Records = append(log.Records, recs...)
		}
	}

	if len(log.Records) == 0 {
		return nil, fmt.Errorf("%w: no failure records in failures/", meshfeat.ErrNotFound)
	}
	return log, nil
}

const (
	stateHeader = iota
	stateRecords
	stateStats
)

// Parse reads one failure file.
func Parse(r io.Reader, kind string, part int) ([]Failure, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Failure
	state := stateHeader
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var ce *csv.ParseError
			if errors.As(err, &ce) {
				return nil, meshfeat.NewParseError("", ce.Line, ce.Err.Error())
			}
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		switch strings.TrimSpace(row[0]) {
		case "Run":
			state = stateRecords
			continue
		case "volume":
			state = stateStats
			continue
		}
		if state != stateRecords {
			continue
		}

		if len(row) < 3 {
			return nil, meshfeat.NewParseError("", line, fmt.Sprintf("want run,cycle,zone, got %d fields", len(row)))
		}
		run, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, meshfeat.NewParseError("", line, fmt.Sprintf("invalid run %q", row[0]))
		}
		cycle, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			return nil, meshfeat.NewParseError("", line, fmt.Sprintf("invalid cycle %q", row[1]))
		}
		zone, err := strconv.ParseInt(strings.TrimSpace(row[2]), 10, 64)
		if err != nil {
			return nil, meshfeat.NewParseError("", line, fmt.Sprintf("invalid zone %q", row[2]))
		}

		out = append(out, Failure{Kind: kind, Partition: part, Run: run, Cycle: cycle, Zone: zone})
	}
	return out, nil
}

// Len returns the number of records.
func (l *Log) Len() int { return len(l.Records) }

// Cycles returns the failure cycle of every record, in record order.
func (l *Log) Cycles() []int64 {
	out := make([]int64, len(l.Records))
	for i, f := range l.Records {
		out[i] = f.Cycle
	}
	return out
}

// FirstCycle returns the earliest failure cycle. It panics on an empty log.
func (l *Log) FirstCycle() int64 {
	return slices.Min(l.Cycles())
}
