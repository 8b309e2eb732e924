package meshfeat

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/hupe1980/meshfeat/blobstore"
	"github.com/hupe1980/meshfeat/index"
	"github.com/hupe1980/meshfeat/internal/cache"
	"github.com/hupe1980/meshfeat/metadata"
	"golang.org/x/sync/errgroup"
)

// Location is the partition and row of a zone.
type Location struct {
	Partition int
	Row       int
}

// Series is one metric of one zone across every indexed cycle.
type Series struct {
	Zone   int64
	Metric string
	Cycles []int64
	Values []float32
}

type runPart struct {
	Run  int
	Part int
}

// Reader answers zone, partition and cycle queries over a dataset.
type Reader struct {
	store      blobstore.BlobStore
	numParts   int
	opts       options
	blockCache cache.BlockCache

	metadata *cache.Memo[int, *metadata.PartitionMetadata]
	indexes  *cache.Memo[runPart, *index.CycleIndex]
	zones    *cache.Memo[int, map[int64]Location]
}

// NewReader creates a Reader over numParts partitions stored in store.
func NewReader(store blobstore.BlobStore, numParts int, optFns ...Option) (*Reader, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}
	if numParts <= 0 {
		return nil, fmt.Errorf("%w: partition count must be positive, got %d", ErrInvalidArgument, numParts)
	}

	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	r := &Reader{
		store:    store,
		numParts: numParts,
		opts:     o,
		metadata: cache.NewMemo[int, *metadata.PartitionMetadata](),
		indexes:  cache.NewMemo[runPart, *index.CycleIndex](),
		zones:    cache.NewMemo[int, map[int64]Location](),
	}

	if o.blockCacheBytes > 0 {
		r.blockCache = cache.NewShardedLRUBlockCache(o.blockCacheBytes, nil)
		r.store = blobstore.NewCachingStore(store, r.blockCache, 0)
	}

	return r, nil
}

// Open creates a Reader, discovering the partition count from the index files.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Reader, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}

	n, err := DiscoverPartitions(ctx, store)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, notFoundf("no partition index files under indexes/")
	}
	return NewReader(store, n, optFns...)
}

// NumPartitions returns the partition count.
func (r *Reader) NumPartitions() int { return r.numParts }

// Close releases the block cache, if any.
func (r *Reader) Close() error {
	if r.blockCache != nil {
		return r.blockCache.Close()
	}
	return nil
}

// PartitionMetadata returns the metadata of part, loading it on first use.
func (r *Reader) PartitionMetadata(ctx context.Context, part int) (*metadata.PartitionMetadata, error) {
	if part < 0 || part >= r.numParts {
		return nil, notFoundf("partition %d (have %d)", part, r.numParts)
	}

	m, _, err := r.metadata.Load(ctx, part, func(ctx context.Context) (*metadata.PartitionMetadata, error) {
		return load(ctx, r, r.opts.logger.WithPartition(part), "metadata", metadataPath(part), metadata.Parse)
	})
	return m, err
}

// CycleIndex returns the cycle index of (run, part), loading it on first use.
func (r *Reader) CycleIndex(ctx context.Context, run, part int) (*index.CycleIndex, error) {
	if part < 0 || part >= r.numParts {
		return nil, notFoundf("partition %d (have %d)", part, r.numParts)
	}

	idx, _, err := r.indexes.Load(ctx, runPart{Run: run, Part: part}, func(ctx context.Context) (*index.CycleIndex, error) {
		return load(ctx, r, r.opts.logger.WithRun(run).WithPartition(part), "index", indexPath(run, part), index.Parse)
	})
	return idx, err
}

// Locate returns the partition and row of zone. The first call loads the
// metadata of every partition.
func (r *Reader) Locate(ctx context.Context, zone int64) (Location, error) {
	table, _, err := r.zones.Load(ctx, 0, r.buildZoneTable)
	if err != nil {
		return Location{}, err
	}

	loc, ok := table[zone]
	if !ok {
		return Location{}, notFoundf("zone %d", zone)
	}
	return loc, nil
}

func (r *Reader) buildZoneTable(ctx context.Context) (table map[int64]Location, err error) {
	start := time.Now()
	defer func() {
		r.opts.metricsCollector.RecordLoad("zones", time.Since(start), err)
		r.opts.logger.LogLoad(ctx, "zones", "features/", time.Since(start), err)
	}()

	table = make(map[int64]Location)

	var first *metadata.PartitionMetadata
	for part := range r.numParts {
		m, err := r.PartitionMetadata(ctx, part)
		if err != nil {
			return nil, err
		}

		if first == nil {
			first = m
		} else if r.opts.strict && !m.SameMetrics(first) {
			return nil, NewParseError(metadataPath(part), 2,
				fmt.Sprintf("metric names differ from partition 0: %v vs %v", m.Metrics(), first.Metrics()))
		}

		for row, zone := range m.Zones() {
			if prev, dup := table[zone]; dup {
				if r.opts.strict {
					return nil, NewParseError(metadataPath(part), 0,
						fmt.Sprintf("zone %d already defined by partition %d", zone, prev.Partition))
				}
				r.opts.logger.WarnContext(ctx, "zone defined by more than one partition",
					"zone", zone,
					"previous", prev.Partition,
					"partition", part,
				)
			}
			table[zone] = Location{Partition: part, Row: row}
		}
	}

	return table, nil
}

// load opens path and parses it, recording timing and normalizing errors.
func load[T any](ctx context.Context, r *Reader, log *Logger, kind, path string, parse func(io.Reader) (T, error)) (v T, err error) {
	start := time.Now()
	defer func() {
		r.opts.metricsCollector.RecordLoad(kind, time.Since(start), err)
		log.LogLoad(ctx, kind, path, time.Since(start), err)
	}()

	blob, err := r.store.Open(ctx, path)
	if err != nil {
		return v, translateError(path, err)
	}
	defer blob.Close()

	v, err = parse(blobstore.NewReader(ctx, blob))
	if err != nil {
		err = translateError(path, err)
		if errors.Is(err, ErrParse) || ctx.Err() != nil {
			return v, err
		}
		return v, &ReadError{Path: path, cause: err}
	}
	return v, nil
}

// ReadZone returns the metric vector of zone at cycle.
func (r *Reader) ReadZone(ctx context.Context, run int, cycle, zone int64) (values []float32, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, r.opts.logger.WithRun(run), "read_zone", 4*len(values), start, err) }()

	loc, err := r.Locate(ctx, zone)
	if err != nil {
		return nil, err
	}
	m, err := r.PartitionMetadata(ctx, loc.Partition)
	if err != nil {
		return nil, err
	}
	idx, err := r.CycleIndex(ctx, run, loc.Partition)
	if err != nil {
		return nil, err
	}
	off, ok := idx.Offset(cycle)
	if !ok {
		return nil, missingCycle(run, loc.Partition, cycle)
	}

	path := featuresPath(run, loc.Partition)
	blob, err := r.openFeatures(ctx, path)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	values = make([]float32, m.NumMetrics())
	if err := readFloats(ctx, blob, path, off+m.RowOffset(loc.Row), values); err != nil {
		return nil, err
	}
	return values, nil
}

// ReadPartition returns the zones x metrics block of part at cycle. Rows
// follow PartitionZoneIDs order.
func (r *Reader) ReadPartition(ctx context.Context, run, part int, cycle int64) (mat *Matrix, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, r.opts.logger.WithRun(run).WithPartition(part), "read_partition", matrixBytes(mat), start, err) }()

	return r.readPartition(ctx, run, part, cycle)
}

func (r *Reader) readPartition(ctx context.Context, run, part int, cycle int64) (*Matrix, error) {
	m, err := r.PartitionMetadata(ctx, part)
	if err != nil {
		return nil, err
	}
	idx, err := r.CycleIndex(ctx, run, part)
	if err != nil {
		return nil, err
	}
	off, ok := idx.Offset(cycle)
	if !ok {
		return nil, missingCycle(run, part, cycle)
	}

	path := featuresPath(run, part)
	blob, err := r.openFeatures(ctx, path)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	mat := NewMatrix(m.NumZones(), m.NumMetrics())
	if err := readFloats(ctx, blob, path, off, mat.Data); err != nil {
		return nil, err
	}
	return mat, nil
}

// ReadAllCyclesForZone returns a cycles x metrics matrix for zone, one row
// per indexed cycle in ascending order.
func (r *Reader) ReadAllCyclesForZone(ctx context.Context, run int, zone int64) (mat *Matrix, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, r.opts.logger.WithRun(run), "read_all_cycles_for_zone", matrixBytes(mat), start, err) }()

	mat, _, err = r.readZoneRows(ctx, run, zone, nil)
	return mat, err
}

// ReadZoneCycles returns one row per requested cycle, in the given order.
func (r *Reader) ReadZoneCycles(ctx context.Context, run int, zone int64, cycles []int64) (mat *Matrix, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, r.opts.logger.WithRun(run), "read_zone_cycles", matrixBytes(mat), start, err) }()

	if cycles == nil {
		cycles = []int64{}
	}
	mat, _, err = r.readZoneRows(ctx, run, zone, cycles)
	return mat, err
}

// ReadMetricSeries returns a single metric of zone across all indexed cycles.
func (r *Reader) ReadMetricSeries(ctx context.Context, run int, zone int64, metric string) (s Series, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, r.opts.logger.WithRun(run), "read_metric_series", 4*len(s.Values), start, err) }()

	loc, err := r.Locate(ctx, zone)
	if err != nil {
		return Series{}, err
	}
	m, err := r.PartitionMetadata(ctx, loc.Partition)
	if err != nil {
		return Series{}, err
	}
	col, ok := m.MetricIndex(metric)
	if !ok {
		return Series{}, notFoundf("metric %q", metric)
	}

	mat, cycles, err := r.readZoneRows(ctx, run, zone, nil)
	if err != nil {
		return Series{}, err
	}
	return Series{Zone: zone, Metric: metric, Cycles: cycles, Values: mat.Column(col)}, nil
}

// readZoneRows reads the row of zone for each cycle. A nil cycles slice
// means every indexed cycle in ascending order.
func (r *Reader) readZoneRows(ctx context.Context, run int, zone int64, cycles []int64) (*Matrix, []int64, error) {
	loc, err := r.Locate(ctx, zone)
	if err != nil {
		return nil, nil, err
	}
	m, err := r.PartitionMetadata(ctx, loc.Partition)
	if err != nil {
		return nil, nil, err
	}
	idx, err := r.CycleIndex(ctx, run, loc.Partition)
	if err != nil {
		return nil, nil, err
	}

	if cycles == nil {
		cycles = idx.Cycles()
	}
	offsets := make([]int64, len(cycles))
	for i, c := range cycles {
		off, ok := idx.Offset(c)
		if !ok {
			return nil, nil, missingCycle(run, loc.Partition, c)
		}
		offsets[i] = off + m.RowOffset(loc.Row)
	}

	path := featuresPath(run, loc.Partition)
	blob, err := r.openFeatures(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	defer blob.Close()

	mat := NewMatrix(len(cycles), m.NumMetrics())
	for i, off := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if err := readFloats(ctx, blob, path, off, mat.Row(i)); err != nil {
			return nil, nil, err
		}
	}
	return mat, cycles, nil
}

// ReadAllZonesInCycle returns every zone of the mesh at cycle: the
// partitions' blocks stacked in ascending partition order. Rows follow
// CycleZoneIDs order.
func (r *Reader) ReadAllZonesInCycle(ctx context.Context, run int, cycle int64) (mat *Matrix, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, r.opts.logger.WithRun(run), "read_all_zones_in_cycle", matrixBytes(mat), start, err) }()

	parts := make([]*Matrix, r.numParts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.parallelism)
	for part := range r.numParts {
		g.Go(func() error {
			m, err := r.readPartition(gctx, run, part, cycle)
			if err != nil {
				return err
			}
			parts[part] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for part := 1; part < len(parts); part++ {
		if parts[part].Cols != parts[0].Cols {
			return nil, NewParseError(metadataPath(part), 2,
				fmt.Sprintf("%d metrics but partition 0 has %d", parts[part].Cols, parts[0].Cols))
		}
	}
	return VStack(parts...)
}

// MetricNames returns the metric names of partition 0 in column order.
func (r *Reader) MetricNames(ctx context.Context) ([]string, error) {
	m, err := r.PartitionMetadata(ctx, 0)
	if err != nil {
		return nil, err
	}
	return m.Metrics(), nil
}

// ZoneMetricNames returns the metric names of the partition holding zone,
// in the column order of ReadZone.
func (r *Reader) ZoneMetricNames(ctx context.Context, zone int64) ([]string, error) {
	loc, err := r.Locate(ctx, zone)
	if err != nil {
		return nil, err
	}
	m, err := r.PartitionMetadata(ctx, loc.Partition)
	if err != nil {
		return nil, err
	}
	return m.Metrics(), nil
}

// MetricIndex returns the column of the named metric.
func (r *Reader) MetricIndex(ctx context.Context, name string) (int, error) {
	m, err := r.PartitionMetadata(ctx, 0)
	if err != nil {
		return 0, err
	}
	col, ok := m.MetricIndex(name)
	if !ok {
		return 0, notFoundf("metric %q", name)
	}
	return col, nil
}

// PartitionZoneIDs returns the zone ids of part in row order.
func (r *Reader) PartitionZoneIDs(ctx context.Context, part int) ([]int64, error) {
	m, err := r.PartitionMetadata(ctx, part)
	if err != nil {
		return nil, err
	}
	return m.Zones(), nil
}

// CycleZoneIDs returns the zone ids of all partitions, concatenated in
// partition order.
func (r *Reader) CycleZoneIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	for part := range r.numParts {
		m, err := r.PartitionMetadata(ctx, part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, m.Zones()...)
	}
	return ids, nil
}

// Cycles returns the indexed cycles of (run, part) in ascending order.
func (r *Reader) Cycles(ctx context.Context, run, part int) ([]int64, error) {
	idx, err := r.CycleIndex(ctx, run, part)
	if err != nil {
		return nil, err
	}
	return idx.Cycles(), nil
}

func (r *Reader) openFeatures(ctx context.Context, path string) (blobstore.Blob, error) {
	blob, err := r.store.Open(ctx, path)
	if err != nil {
		err = translateError(path, err)
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return nil, err
		}
		return nil, &ReadError{Path: path, cause: err}
	}
	return blob, nil
}

func (r *Reader) observe(ctx context.Context, log *Logger, op string, bytes int, start time.Time, err error) {
	r.opts.metricsCollector.RecordRead(op, bytes, time.Since(start), err)
	log.LogRead(ctx, op, bytes, err)
}

// readFloats fills dst with little-endian float32 values read at off.
func readFloats(ctx context.Context, blob blobstore.Blob, path string, off int64, dst []float32) error {
	if len(dst) == 0 {
		return nil
	}

	buf := make([]byte, 4*len(dst))
	n, err := blob.ReadAt(ctx, buf, off)
	if n < len(buf) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return &ReadError{Path: path, Offset: off, Want: len(buf), Got: n, cause: err}
	}

	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return nil
}

func missingCycle(run, part int, cycle int64) error {
	return notFoundf("cycle %d in run %d partition %d", cycle, run, part)
}

func matrixBytes(m *Matrix) int {
	if m == nil {
		return 0
	}
	return 4 * len(m.Data)
}
