package matrix

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmpty is returned when a matrix would have no rows or no columns.
	ErrEmpty = errors.New("matrix: empty matrix")

	// ErrRaggedRows is returned by FromRows when rows differ in length.
	ErrRaggedRows = errors.New("matrix: rows have different lengths")
)

// ErrShape indicates that a backing slice does not match the requested shape.
type ErrShape struct {
	Rows, Cols int
	Len        int
}

func (e *ErrShape) Error() string {
	return fmt.Sprintf("matrix: %dx%d needs %d values, got %d", e.Rows, e.Cols, e.Rows*e.Cols, e.Len)
}

// Dense is a row-major matrix of float32 values.
type Dense struct {
	rows, cols int
	data       []float32
}

// New returns a zeroed rows x cols matrix.
func New(rows, cols int) *Dense {
	return &Dense{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

// NewDense wraps data as a rows x cols matrix. The slice is not copied.
func NewDense(rows, cols int, data []float32) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrEmpty
	}
	if len(data) != rows*cols {
		return nil, &ErrShape{Rows: rows, Cols: cols, Len: len(data)}
	}
	return &Dense{rows: rows, cols: cols, data: data}, nil
}

// FromRows copies rows into a new matrix. All rows must have equal length.
func FromRows(rows [][]float32) (*Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmpty
	}
	cols := len(rows[0])
	m := New(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedRows, i, len(r), cols)
		}
		copy(m.Row(i), r)
	}
	return m, nil
}

// Dims returns the number of rows and columns.
func (m *Dense) Dims() (int, int) { return m.rows, m.cols }

// Rows returns the number of rows.
func (m *Dense) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Dense) Cols() int { return m.cols }

// Row returns a view of row i. Writes through the view modify the matrix.
func (m *Dense) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// At returns the element at (i, j).
func (m *Dense) At(i, j int) float32 { return m.data[i*m.cols+j] }

// Set sets the element at (i, j).
func (m *Dense) Set(i, j int, v float32) { m.data[i*m.cols+j] = v }

// Data returns the backing slice in row-major order.
func (m *Dense) Data() []float32 { return m.data }

// Clone returns a deep copy.
func (m *Dense) Clone() *Dense {
	data := make([]float32, len(m.data))
	copy(data, m.data)
	return &Dense{rows: m.rows, cols: m.cols, data: data}
}

// Fingerprint returns a content hash of the shape and values.
// Two matrices with identical dimensions and bit-identical values share a fingerprint.
func (m *Dense) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(m.rows))
	binary.LittleEndian.PutUint32(buf[4:], uint32(m.cols))
	h.Write(buf[:])

	chunk := make([]byte, 0, 4096)
	for _, v := range m.data {
		chunk = binary.LittleEndian.AppendUint32(chunk, math.Float32bits(v))
		if len(chunk) == cap(chunk) {
			h.Write(chunk)
			chunk = chunk[:0]
		}
	}
	h.Write(chunk)
	return hex.EncodeToString(h.Sum(nil))
}

// ToGonum converts m to a float64 gonum matrix.
func (m *Dense) ToGonum() *mat.Dense {
	data := make([]float64, len(m.data))
	for i, v := range m.data {
		data[i] = float64(v)
	}
	return mat.NewDense(m.rows, m.cols, data)
}

// FromGonum converts a gonum matrix to a float32 Dense.
func FromGonum(g mat.Matrix) *Dense {
	r, c := g.Dims()
	m := New(r, c)
	for i := range r {
		row := m.Row(i)
		for j := range c {
			row[j] = float32(g.At(i, j))
		}
	}
	return m
}
