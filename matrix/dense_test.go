package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewDense(t *testing.T) {
	m, err := NewDense(2, 3, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []float32{4, 5, 6}, m.Row(1))
	assert.Equal(t, float32(2), m.At(0, 1))

	m.Set(0, 1, 9)
	assert.Equal(t, float32(9), m.Row(0)[1])

	_, err = NewDense(2, 3, []float32{1})
	var shapeErr *ErrShape
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 1, shapeErr.Len)

	_, err = NewDense(0, 3, nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float32{{0, 0}, {0, 1}, {10, 0}})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, []float32{10, 0}, m.Row(2))

	_, err = FromRows([][]float32{{0, 0}, {1}})
	assert.ErrorIs(t, err, ErrRaggedRows)

	_, err = FromRows(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRowViewIsBounded(t *testing.T) {
	m := New(2, 2)
	row := m.Row(0)
	row = append(row, 42)
	assert.Equal(t, float32(0), m.At(1, 0), "append on a row view must not spill into the next row")
	assert.Len(t, row, 3)
}

func TestClone(t *testing.T) {
	m, err := FromRows([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)

	c := m.Clone()
	c.Set(0, 0, 100)
	assert.Equal(t, float32(1), m.At(0, 0))
}

func TestFingerprint(t *testing.T) {
	a, _ := FromRows([][]float32{{1, 2}, {3, 4}})
	b, _ := FromRows([][]float32{{1, 2}, {3, 4}})
	c, _ := FromRows([][]float32{{1, 2, 3, 4}})
	d, _ := FromRows([][]float32{{1, 2}, {3, 5}})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint(), "shape is part of the fingerprint")
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}

func TestGonumRoundTrip(t *testing.T) {
	m, _ := FromRows([][]float32{{1.5, -2}, {3, 4.25}})
	g := m.ToGonum()
	assert.Equal(t, 4.25, g.At(1, 1))

	back := FromGonum(mat.DenseCopyOf(g))
	assert.Equal(t, m.Data(), back.Data())
}
