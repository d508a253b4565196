package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrMatrixShape = errors.New("invalid matrix shape")

// Matrix is a dense row-major matrix of float64 values. The dimensions are
// carried alongside the data so that consumers never infer them from strides.
type Matrix struct {
	Rows int       `json:"rows" msgpack:"rows"`
	Cols int       `json:"cols" msgpack:"cols"`
	Data []float64 `json:"data" msgpack:"data"`
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	if rows < 0 || cols < 0 {
		rows, cols = 0, 0
	}
	return Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// MatrixFromRows copies a slice of rows into a dense matrix. All rows must
// have the same length.
func MatrixFromRows(rows [][]float64) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return Matrix{}, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrMatrixShape, i, len(row), cols)
		}
		copy(m.Data[i*cols:(i+1)*cols], row)
	}
	return m, nil
}

// MatrixFromDense copies a gonum dense matrix into row-major storage. The
// underlying gonum matrix may have a stride larger than its column count.
func MatrixFromDense(d *mat.Dense) Matrix {
	if d == nil || d.IsEmpty() {
		return Matrix{}
	}
	rows, cols := d.Dims()
	m := NewMatrix(rows, cols)
	raw := d.RawMatrix()
	for i := 0; i < rows; i++ {
		copy(m.Data[i*cols:(i+1)*cols], raw.Data[i*raw.Stride:i*raw.Stride+cols])
	}
	return m
}

// Dense returns a gonum view sharing the same backing data.
func (m Matrix) Dense() *mat.Dense {
	if m.Rows == 0 || m.Cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(m.Rows, m.Cols, m.Data)
}

func (m Matrix) Validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrMatrixShape, m.Rows, m.Cols)
	}
	// Compare by division, Rows*Cols may overflow.
	if m.Cols == 0 && len(m.Data) != 0 || m.Cols > 0 && (len(m.Data)%m.Cols != 0 || len(m.Data)/m.Cols != m.Rows) {
		return fmt.Errorf("%w: %dx%d matrix has %d values", ErrMatrixShape, m.Rows, m.Cols, len(m.Data))
	}
	return nil
}

// Row returns the i-th row as a sub slice, it panics if i is out of range
// like any slice access would.
func (m Matrix) Row(i int) []float64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}
