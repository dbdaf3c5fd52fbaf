package distcache

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowclust/matrix"
)

func TestEncode_Format(t *testing.T) {
	d, err := matrix.FromRows([][]float32{{0, 1.5}, {1.5, 0}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, d))
	assert.Equal(t, "0 1.5 \n1.5 0 \n", buf.String())
}

func TestDecode_RoundTrip(t *testing.T) {
	d, err := matrix.FromRows([][]float32{
		{0, 0.1, 123456.78},
		{0.1, 0, 1e-7},
		{123456.78, 1e-7, 0},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, d))

	got, err := Decode(&buf, 3)
	require.NoError(t, err)
	assert.Equal(t, d.Data(), got.Data())
}

func TestDecode_ForcesZeroDiagonal(t *testing.T) {
	got, err := Decode(strings.NewReader("7 1\t\n1   9\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 1, 0}, got.Data())
}

func TestDecode_DimensionMismatch(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		row      int
		expected int
		actual   int
	}{
		{"single line", "0 1 1 0\n", 0, 2, 4},
		{"too many values", "0 1 1 0 5", 0, 2, 5},
		{"short row", "0 1\n1\n0\n", 1, 2, 1},
		{"long row", "0 1\n1 0 3\n", 1, 2, 3},
		{"too few rows", "0 1\n", -1, 2, 1},
		{"too many rows", "0 1\n1 0\n1 0\n", -1, 2, 3},
		{"empty", "", -1, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in), 2)
			var dm *ErrDimensionMismatch
			require.ErrorAs(t, err, &dm)
			assert.Equal(t, tt.row, dm.Row)
			assert.Equal(t, tt.expected, dm.Expected)
			assert.Equal(t, tt.actual, dm.Actual)
		})
	}
}

func TestDecode_SkipsBlankLines(t *testing.T) {
	got, err := Decode(strings.NewReader("\n0 2 \n  \n2 0\n\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 2, 2, 0}, got.Data())
}

func TestDecode_BadValue(t *testing.T) {
	_, err := Decode(strings.NewReader("0 x\n1 0\n"), 2)
	require.Error(t, err)
	var dm *ErrDimensionMismatch
	assert.False(t, errors.As(err, &dm))
	assert.ErrorContains(t, err, "row 0, column 1")
}
