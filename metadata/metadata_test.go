package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader("metrics\na,b,c\nzones\n10\n20\n5\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, m.Metrics())
	assert.Equal(t, []int64{10, 20, 5}, m.Zones())
	assert.Equal(t, 3, m.NumMetrics())
	assert.Equal(t, 3, m.NumZones())
	assert.Equal(t, int64(12), m.RowSize())
	assert.Equal(t, int64(36), m.BlockSize())
	assert.Equal(t, int64(24), m.RowOffset(2))

	col, ok := m.MetricIndex("b")
	assert.True(t, ok)
	assert.Equal(t, 1, col)
	_, ok = m.MetricIndex("z")
	assert.False(t, ok)

	row, ok := m.ZoneRow(5)
	assert.True(t, ok)
	assert.Equal(t, 2, row)
	_, ok = m.ZoneRow(11)
	assert.False(t, ok)
}

func TestParse_Tolerance(t *testing.T) {
	t.Run("CRLF and trailing blank lines", func(t *testing.T) {
		m, err := Parse(strings.NewReader("metrics\r\nx,y\r\nzones\r\n1\r\n2\r\n\r\n\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, m.Metrics())
		assert.Equal(t, []int64{1, 2}, m.Zones())
	})

	t.Run("no zones", func(t *testing.T) {
		m, err := Parse(strings.NewReader("metrics\nx\nzones\n"))
		require.NoError(t, err)
		assert.Equal(t, 0, m.NumZones())
		assert.Equal(t, int64(0), m.BlockSize())
	})

	t.Run("accessors return copies", func(t *testing.T) {
		m, err := Parse(strings.NewReader("metrics\nx\nzones\n7\n"))
		require.NoError(t, err)
		m.Zones()[0] = 99
		m.Metrics()[0] = "q"
		assert.Equal(t, []int64{7}, m.Zones())
		assert.Equal(t, []string{"x"}, m.Metrics())
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"too short", "metrics\na,b\n", 0},
		{"empty", "", 0},
		{"empty metric line", "metrics\n\nzones\n1\n", 2},
		{"empty metric name", "metrics\na,,b\nzones\n1\n", 2},
		{"duplicate metric", "metrics\na,a\nzones\n1\n", 2},
		{"non-integer zone", "metrics\na\nzones\n1\nabc\n", 5},
		{"blank zone in middle", "metrics\na\nzones\n1\n\n2\n", 5},
		{"duplicate zone", "metrics\na\nzones\n1\n2\n1\n", 6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.line, pe.Line)
		})
	}
}

func TestSameMetrics(t *testing.T) {
	a, err := Parse(strings.NewReader("metrics\na,b\nzones\n1\n"))
	require.NoError(t, err)
	b, err := Parse(strings.NewReader("metrics\na,b\nzones\n2\n"))
	require.NoError(t, err)
	c, err := Parse(strings.NewReader("metrics\nb,a\nzones\n3\n"))
	require.NoError(t, err)

	assert.True(t, a.SameMetrics(b))
	assert.False(t, a.SameMetrics(c))
}
