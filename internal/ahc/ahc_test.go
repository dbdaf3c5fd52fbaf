package ahc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/matrix"
	"github.com/hupe1980/flowclust/testutil"
)

func euclideanMatrix(t *testing.T, data *matrix.Dense) *matrix.Dense {
	t.Helper()
	d, err := Pairwise(context.Background(), data.Rows(), 4, func(i, j int) float32 {
		return distance.Euclidean(data.Row(i), data.Row(j))
	})
	require.NoError(t, err)
	return d
}

func TestRun_FourPoints(t *testing.T) {
	data, err := matrix.FromRows([][]float32{{0, 0}, {0, 1}, {10, 0}, {10, 1}})
	require.NoError(t, err)

	res, err := Run(context.Background(), euclideanMatrix(t, data), 2, Options{})
	require.NoError(t, err)

	require.Len(t, res.Merges, 2)
	assert.Equal(t, Merge{Left: 0, Right: 1, Node: 4, Distance: 1, Size: 2}, res.Merges[0])
	assert.Equal(t, Merge{Left: 2, Right: 3, Node: 5, Distance: 1, Size: 2}, res.Merges[1])

	assert.Equal(t, []Cluster{
		{Node: 4, Members: []int{0, 1}},
		{Node: 5, Members: []int{2, 3}},
	}, res.Clusters)
}

func TestRun_AverageLinkage(t *testing.T) {
	data, err := matrix.FromRows([][]float32{{0}, {1}, {5}})
	require.NoError(t, err)

	res, err := Run(context.Background(), euclideanMatrix(t, data), 1, Options{})
	require.NoError(t, err)

	require.Len(t, res.Merges, 2)
	assert.Equal(t, float32(1), res.Merges[0].Distance)
	assert.InDelta(t, 4.5, res.Merges[1].Distance, 1e-6)
	assert.Equal(t, 3, res.Merges[1].Size)
	assert.Equal(t, []int{0, 1, 2}, res.Clusters[0].Members)
}

func TestRun_TieGoesToFirstPair(t *testing.T) {
	d, err := matrix.FromRows([][]float32{
		{0, 2, 2},
		{2, 0, 2},
		{2, 2, 0},
	})
	require.NoError(t, err)

	res, err := Run(context.Background(), d, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Merges[0].Left)
	assert.Equal(t, 1, res.Merges[0].Right)

	// Smaller cluster sorts first.
	assert.Equal(t, []int{2}, res.Clusters[0].Members)
	assert.Equal(t, []int{0, 1}, res.Clusters[1].Members)
}

func TestRun_KEqualsN(t *testing.T) {
	data := testutil.NewRNG(1).Matrix(5, 2)
	res, err := Run(context.Background(), euclideanMatrix(t, data), 5, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Merges)
	for i, c := range res.Clusters {
		assert.Equal(t, i, c.Node)
		assert.Equal(t, []int{i}, c.Members)
	}
}

func TestRun_PartitionAndReplay(t *testing.T) {
	rng := testutil.NewRNG(4)
	data, _ := rng.Blobs([][]float32{{0, 0, 0}, {5, 5, 5}, {-5, 5, 0}}, 20, 0.5)
	d := euclideanMatrix(t, data)

	var merged []int
	res, err := Run(context.Background(), d, 3, Options{
		OnMerge: func(m Merge) { merged = append(merged, m.Node) },
	})
	require.NoError(t, err)

	require.Len(t, res.Clusters, 3)
	require.NoError(t, CheckPartition(data.Rows(), res.Clusters))
	assert.Len(t, merged, data.Rows()-3)

	for i, m := range res.Merges {
		assert.Equal(t, data.Rows()+i, m.Node)
	}

	replayed, err := Replay(data.Rows(), res.Merges)
	require.NoError(t, err)
	assert.Equal(t, res.Clusters, replayed)

	for _, c := range res.Clusters {
		assert.Equal(t, 20, c.Size())
	}
}

func TestRun_EveryIntermediateStateIsPartition(t *testing.T) {
	data := testutil.NewRNG(8).Matrix(25, 4)
	res, err := Run(context.Background(), euclideanMatrix(t, data), 1, Options{})
	require.NoError(t, err)
	require.Len(t, res.Merges, data.Rows()-1)

	for step := 0; step <= len(res.Merges); step++ {
		clusters, err := Replay(data.Rows(), res.Merges[:step])
		require.NoError(t, err, "step %d", step)
		require.NoError(t, CheckPartition(data.Rows(), clusters), "step %d", step)
		assert.Len(t, clusters, data.Rows()-step)
	}
}

func TestRun_ParallelLinkage(t *testing.T) {
	rng := testutil.NewRNG(9)
	data, labels := rng.Blobs([][]float32{{0, 0}, {50, 50}}, 128, 1)
	d := euclideanMatrix(t, data)

	res, err := Run(context.Background(), d, 1, Options{Workers: 4})
	require.NoError(t, err)

	last := res.Merges[len(res.Merges)-1]
	assert.Equal(t, 256, last.Size)

	var sum float64
	for i := range data.Rows() {
		for j := range data.Rows() {
			if labels[i] == 0 && labels[j] == 1 {
				sum += float64(d.At(i, j))
			}
		}
	}
	assert.InDelta(t, sum/(128*128), float64(last.Distance), 1e-2)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	d := matrix.New(3, 3)

	_, err := Run(ctx, d, 4, Options{})
	assert.ErrorIs(t, err, ErrTooManyClusters)

	_, err = Run(ctx, d, 0, Options{})
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = Run(ctx, matrix.New(3, 2), 1, Options{})
	assert.ErrorIs(t, err, ErrNotSquare)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, matrix.New(4, 4), 1, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPairwise_Symmetric(t *testing.T) {
	data := testutil.NewRNG(2).Matrix(17, 3)
	d := euclideanMatrix(t, data)

	for i := range 17 {
		assert.Zero(t, d.At(i, i))
		for j := range 17 {
			assert.Equal(t, d.At(i, j), d.At(j, i))
		}
	}
}

func TestReplay_Rejects(t *testing.T) {
	_, err := Replay(3, []Merge{{Left: 0, Right: 1, Node: 3}, {Left: 0, Right: 2, Node: 4}})
	assert.Error(t, err)

	_, err = Replay(3, []Merge{{Left: 0, Right: 1, Node: 2}})
	assert.Error(t, err)
}

func TestCheckPartition(t *testing.T) {
	assert.NoError(t, CheckPartition(3, []Cluster{{Members: []int{0, 2}}, {Members: []int{1}}}))
	assert.ErrorIs(t, CheckPartition(3, []Cluster{{Members: []int{0, 1}}, {Members: []int{1}}}), ErrBrokenPartition)
	assert.ErrorIs(t, CheckPartition(3, []Cluster{{Members: []int{0, 1}}}), ErrBrokenPartition)
}
