package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/hupe1980/meshfeat/blobstore"
)

// Partition describes the layout of one fixture partition.
type Partition struct {
	Metrics []string
	Zones   []int64
}

type indexEntry struct {
	cycle  int64
	offset int64
}

type runFile struct {
	data    []byte
	entries []indexEntry
}

// Dataset builds dataset files in memory.
type Dataset struct {
	parts map[int]Partition
	runs  map[[2]int]*runFile // {run, part}
	extra map[string][]byte
}

// NewDataset creates an empty fixture.
func NewDataset() *Dataset {
	return &Dataset{
		parts: make(map[int]Partition),
		runs:  make(map[[2]int]*runFile),
		extra: make(map[string][]byte),
	}
}

// AddPartition declares the metric columns and zone rows of part.
func (d *Dataset) AddPartition(part int, metrics []string, zones []int64) *Dataset {
	d.parts[part] = Partition{Metrics: metrics, Zones: zones}
	return d
}

// AddCycle appends a cycle block (zones x metrics, row-major) to the
// feature file of (run, part) and indexes it. Index lines keep call order.
func (d *Dataset) AddCycle(run, part int, cycle int64, block []float32) *Dataset {
	p, ok := d.parts[part]
	if !ok {
		panic(fmt.Sprintf("testutil: partition %d not declared", part))
	}
	if want := len(p.Zones) * len(p.Metrics); len(block) != want {
		panic(fmt.Sprintf("testutil: block has %d values, want %d", len(block), want))
	}

	rf := d.runFile(run, part)
	rf.entries = append(rf.entries, indexEntry{cycle: cycle, offset: int64(len(rf.data))})
	rf.data = appendFloats(rf.data, block)
	return d
}

// AddIndexEntry adds a raw index line without feature data, for example to
// point past the end of the feature file.
func (d *Dataset) AddIndexEntry(run, part int, cycle, offset int64) *Dataset {
	rf := d.runFile(run, part)
	rf.entries = append(rf.entries, indexEntry{cycle: cycle, offset: offset})
	return d
}

// AddFile adds an arbitrary file, e.g. "failures/side_p00".
func (d *Dataset) AddFile(name string, data []byte) *Dataset {
	d.extra[name] = data
	return d
}

func (d *Dataset) runFile(run, part int) *runFile {
	key := [2]int{run, part}
	rf, ok := d.runs[key]
	if !ok {
		rf = &runFile{}
		d.runs[key] = rf
	}
	return rf
}

// Files renders every dataset file by name.
func (d *Dataset) Files() map[string][]byte {
	files := make(map[string][]byte)

	for part, p := range d.parts {
		var sb strings.Builder
		sb.WriteString("metrics\n")
		sb.WriteString(strings.Join(p.Metrics, ","))
		sb.WriteString("\nzones\n")
		for _, z := range p.Zones {
			fmt.Fprintf(&sb, "%d\n", z)
		}
		files[fmt.Sprintf("features/metadata_p%02d.txt", part)] = []byte(sb.String())
	}

	for key, rf := range d.runs {
		run, part := key[0], key[1]

		var sb strings.Builder
		for _, e := range rf.entries {
			fmt.Fprintf(&sb, "%d -> %d\n", e.cycle, e.offset)
		}
		files[fmt.Sprintf("indexes/indexes_p%02d_r%03d.txt", part, run)] = []byte(sb.String())
		files[fmt.Sprintf("features/features_p%02d_r%03d.npy", part, run)] = rf.data
	}

	for name, data := range d.extra {
		files[name] = data
	}
	return files
}

// MemoryStore renders the dataset into a new in-memory store.
func (d *Dataset) MemoryStore() *blobstore.MemoryStore {
	store := blobstore.NewMemoryStore()
	for name, data := range d.Files() {
		store.Put(name, data)
	}
	return store
}

// WriteDir renders the dataset below dir and returns dir.
func (d *Dataset) WriteDir(t testing.TB, dir string) string {
	t.Helper()

	names := make([]string, 0)
	files := d.Files()
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, files[name], 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func appendFloats(dst []byte, vals []float32) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
