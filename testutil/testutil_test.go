package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	rng := NewRNG(4711)

	m := rng.Matrix(8, 32)

	assert.Equal(t, 8, m.Rows())
	assert.Equal(t, 32, m.Cols())
	for _, v := range m.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(42)
	first := rng.Matrix(2, 3).Data()
	rng.Reset()
	second := rng.Matrix(2, 3).Data()
	assert.Equal(t, first, second)
	assert.Equal(t, int64(42), rng.Seed())
}

func TestBlobs(t *testing.T) {
	rng := NewRNG(1)
	m, labels := rng.Blobs([][]float32{{0, 0}, {10, 10}}, 5, 0.01)

	assert.Equal(t, 10, m.Rows())
	assert.Equal(t, []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}, labels)
	assert.InDelta(t, 10, m.At(7, 0), 0.1)
}

func TestTrajectories(t *testing.T) {
	rng := NewRNG(3)
	m, labels := rng.Trajectories(9, 4, 3, 0)

	assert.Equal(t, 9, m.Rows())
	assert.Equal(t, 12, m.Cols())
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2}, labels)
	assert.Equal(t, m.Row(0), m.Row(3), "noise-free rows of one template are identical")
}

func TestSamePartition(t *testing.T) {
	assert.True(t, SamePartition([]int{0, 0, 1}, []int{5, 5, 2}))
	assert.False(t, SamePartition([]int{0, 0, 1}, []int{5, 2, 2}))
	assert.False(t, SamePartition([]int{0, 1, 1}, []int{3, 3, 3}))
	assert.False(t, SamePartition([]int{0}, []int{0, 1}))
}
