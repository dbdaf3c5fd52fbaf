package validity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/matrix"
	"github.com/hupe1980/flowclust/testutil"
)

func separated(t *testing.T) Input {
	t.Helper()
	data, err := matrix.FromRows([][]float32{{0, 0}, {0, 1}, {1, 0}, {20, 20}, {20, 21}, {21, 20}})
	require.NoError(t, err)
	return Input{Data: data, Labels: []int{0, 0, 0, 1, 1, 1}, Groups: 2}
}

func TestSilhouette_Separated(t *testing.T) {
	s, err := Silhouette{}.Evaluate(context.Background(), separated(t))
	require.NoError(t, err)
	assert.Greater(t, s, 0.9)
	assert.LessOrEqual(t, s, 1.0)
}

func TestSilhouette_MatrixMatchesPairwise(t *testing.T) {
	rng := testutil.NewRNG(3)
	data, labels := rng.Blobs([][]float32{{0, 0}, {3, 3}, {-3, 3}}, 15, 1)

	n := data.Rows()
	d := matrix.New(n, n)
	for i := range n {
		for j := range n {
			d.Set(i, j, distance.Euclidean(data.Row(i), data.Row(j)))
		}
	}

	ctx := context.Background()
	withMatrix, err := Silhouette{}.Evaluate(ctx, Input{Data: data, Labels: labels, Groups: 3, Distances: d, Workers: 3})
	require.NoError(t, err)
	direct, err := Silhouette{}.Evaluate(ctx, Input{Data: data, Labels: labels, Groups: 3, Workers: 3})
	require.NoError(t, err)

	assert.InDelta(t, direct, withMatrix, 1e-9)
}

func TestSilhouette_WrongLabelsScoreLow(t *testing.T) {
	in := separated(t)
	in.Labels = []int{0, 1, 0, 1, 0, 1}

	s, err := Silhouette{}.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Less(t, s, 0.0)
}

func TestSilhouette_Singletons(t *testing.T) {
	data, err := matrix.FromRows([][]float32{{0}, {5}})
	require.NoError(t, err)

	s, err := Silhouette{}.Evaluate(context.Background(), Input{Data: data, Labels: []int{0, 1}, Groups: 2})
	require.NoError(t, err)
	assert.Zero(t, s)
}

func TestDaviesBouldin(t *testing.T) {
	good, err := DaviesBouldin{}.Evaluate(context.Background(), separated(t))
	require.NoError(t, err)

	in := separated(t)
	in.Labels = []int{0, 1, 0, 1, 0, 1}
	bad, err := DaviesBouldin{}.Evaluate(context.Background(), in)
	require.NoError(t, err)

	assert.Less(t, good, 0.2)
	assert.Greater(t, bad, good)
}

func TestEvaluate_TooFewGroups(t *testing.T) {
	in := separated(t)
	in.Groups = 1
	for _, e := range Default() {
		_, err := e.Evaluate(context.Background(), in)
		assert.ErrorIs(t, err, ErrTooFewGroups, e.Name())
	}
}
