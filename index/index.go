package index

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

const separator = "->"

// CycleIndex maps cycle ids to block offsets. Immutable after Parse.
type CycleIndex struct {
	offsets map[int64]int64
	cycles  []int64
}

// Parse reads an index file. Blank lines are skipped; a cycle listed twice
// keeps its last offset.
func Parse(r io.Reader) (*CycleIndex, error) {
	idx := &CycleIndex{offsets: make(map[int64]int64)}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		cycle, offset, err := parseLine(text)
		if err != nil {
			return nil, &ParseError{Line: line, Msg: err.Error()}
		}
		idx.offsets[cycle] = offset
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	idx.cycles = slices.Sorted(maps.Keys(idx.offsets))
	return idx, nil
}

func parseLine(text string) (int64, int64, error) {
	k, v, ok := strings.Cut(text, separator)
	if !ok {
		return 0, 0, fmt.Errorf("missing %q in %q", separator, text)
	}

	k, v = strings.TrimSpace(k), strings.TrimSpace(v)
	cycle, err := strconv.ParseInt(k, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cycle %q", k)
	}
	offset, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset %q", v)
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("negative offset %d", offset)
	}
	return cycle, offset, nil
}

// Offset returns the block offset of cycle.
func (x *CycleIndex) Offset(cycle int64) (int64, bool) {
	off, ok := x.offsets[cycle]
	return off, ok
}

// Contains reports whether cycle is indexed.
func (x *CycleIndex) Contains(cycle int64) bool {
	_, ok := x.offsets[cycle]
	return ok
}

// Cycles returns all indexed cycles in ascending order.
func (x *CycleIndex) Cycles() []int64 { return slices.Clone(x.cycles) }

// Len returns the number of indexed cycles.
func (x *CycleIndex) Len() int { return len(x.cycles) }
