package meshfeat

import "fmt"

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// Shape returns (rows, cols).
func (m *Matrix) Shape() (int, int) { return m.Rows, m.Cols }

// Row returns row i as a slice aliasing the matrix data.
func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

// Column returns a copy of column j.
func (m *Matrix) Column(j int) []float32 {
	out := make([]float32, m.Rows)
	for i := range m.Rows {
		out[i] = m.Data[i*m.Cols+j]
	}
	return out
}

// VStack concatenates matrices row-wise. All inputs must have the same
// column count.
func VStack(ms ...*Matrix) (*Matrix, error) {
	if len(ms) == 0 {
		return &Matrix{}, nil
	}

	cols, rows := ms[0].Cols, 0
	for i, m := range ms {
		if m.Cols != cols {
			return nil, fmt.Errorf("%w: vstack: matrix %d has %d columns, want %d", ErrInvalidArgument, i, m.Cols, cols)
		}
		rows += m.Rows
	}

	out := &Matrix{Rows: rows, Cols: cols, Data: make([]float32, 0, rows*cols)}
	for _, m := range ms {
		out.Data = append(out.Data, m.Data...)
	}
	return out, nil
}

// HStack concatenates matrices column-wise. All inputs must have the same
// row count.
func HStack(ms ...*Matrix) (*Matrix, error) {
	if len(ms) == 0 {
		return &Matrix{}, nil
	}

	rows, cols := ms[0].Rows, 0
	for i, m := range ms {
		if m.Rows != rows {
			return nil, fmt.Errorf("%w: hstack: matrix %d has %d rows, want %d", ErrInvalidArgument, i, m.Rows, rows)
		}
		cols += m.Cols
	}

	out := NewMatrix(rows, cols)
	for i := range rows {
		dst := out.Row(i)
		for _, m := range ms {
			n := copy(dst, m.Row(i))
			dst = dst[n:]
		}
	}
	return out, nil
}
