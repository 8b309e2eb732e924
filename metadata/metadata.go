package metadata

import (
	"bufio"
	"io"
	"slices"
	"strconv"
	"strings"
)

// ValueSize is the on-disk width of one metric value (float32).
const ValueSize = 4

// PartitionMetadata is the immutable column/row layout of one partition.
type PartitionMetadata struct {
	metrics     []string
	metricIndex map[string]int
	zones       []int64
	zoneRow     map[int64]int
}

// Parse reads a metadata file.
func Parse(r io.Reader) (*PartitionMetadata, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 3 {
		return nil, errorf(0, "expected at least 3 lines, got %d", len(lines))
	}

	m := &PartitionMetadata{
		metricIndex: make(map[string]int),
		zoneRow:     make(map[int64]int),
	}

	if strings.TrimSpace(lines[1]) == "" {
		return nil, errorf(2, "empty metric line")
	}
	for i, name := range strings.Split(lines[1], ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errorf(2, "empty metric name at column %d", i)
		}
		if _, dup := m.metricIndex[name]; dup {
			return nil, errorf(2, "duplicate metric %q", name)
		}
		m.metricIndex[name] = i
		m.metrics = append(m.metrics, name)
	}

	for i, line := range lines[3:] {
		lineNo := i + 4
		s := strings.TrimSpace(line)
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errorf(lineNo, "invalid zone id %q", s)
		}
		if _, dup := m.zoneRow[id]; dup {
			return nil, errorf(lineNo, "duplicate zone id %d", id)
		}
		m.zoneRow[id] = len(m.zones)
		m.zones = append(m.zones, id)
	}

	return m, nil
}

// Metrics returns the metric names in column order.
func (m *PartitionMetadata) Metrics() []string { return slices.Clone(m.metrics) }

// Zones returns the zone ids in row order.
func (m *PartitionMetadata) Zones() []int64 { return slices.Clone(m.zones) }

// MetricIndex returns the column of the named metric.
func (m *PartitionMetadata) MetricIndex(name string) (int, bool) {
	i, ok := m.metricIndex[name]
	return i, ok
}

// ZoneRow returns the row of zone id within the partition block.
func (m *PartitionMetadata) ZoneRow(id int64) (int, bool) {
	r, ok := m.zoneRow[id]
	return r, ok
}

func (m *PartitionMetadata) NumMetrics() int { return len(m.metrics) }

func (m *PartitionMetadata) NumZones() int { return len(m.zones) }

// RowSize is the byte width of one zone row.
func (m *PartitionMetadata) RowSize() int64 {
	return int64(len(m.metrics)) * ValueSize
}

// BlockSize is the byte size of one cycle block (all zones, all metrics).
func (m *PartitionMetadata) BlockSize() int64 {
	return int64(len(m.zones)) * m.RowSize()
}

// RowOffset is the byte offset of row within a cycle block.
func (m *PartitionMetadata) RowOffset(row int) int64 {
	return int64(row) * m.RowSize()
}

// SameMetrics reports whether both partitions share metric names and order.
func (m *PartitionMetadata) SameMetrics(other *PartitionMetadata) bool {
	return slices.Equal(m.metrics, other.metrics)
}
