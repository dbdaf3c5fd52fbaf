package flowclust

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowclust/blobstore"
	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/distcache"
	"github.com/hupe1980/flowclust/matrix"
	"github.com/hupe1980/flowclust/report"
	"github.com/hupe1980/flowclust/testutil"
)

func twoGroups(t *testing.T) *matrix.Dense {
	t.Helper()
	m, err := matrix.FromRows([][]float32{
		{0, 0}, {0, 1}, {1, 0},
		{10, 1}, {11, 1}, {11, 0},
	})
	require.NoError(t, err)
	return m
}

func newClusterer(t *testing.T, opts ...Option) *Clusterer {
	t.Helper()
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestDirectKMeans_TwoGroupsEveryInit(t *testing.T) {
	for _, init := range []Init{InitRandomPosition, InitFromSamples, InitFarSamples} {
		t.Run(init.String(), func(t *testing.T) {
			c := newClusterer(t, WithInit(init))
			res, err := c.DirectKMeansK(context.Background(), twoGroups(t), distance.MetricEuclidean, 2)
			require.NoError(t, err)

			assert.Equal(t, 2, res.Groups)
			assert.True(t, testutil.SamePartition([]int{0, 0, 0, 1, 1, 1}, res.Assignments))
			assert.Equal(t, []int{3, 3, 3, 3, 3, 3}, res.Sizes)
			assert.True(t, res.EntropyDefined)
			assert.InDelta(t, 1.0, res.Entropy, 1e-9)
			assert.Equal(t, report.NormLabel(0), res.Label)
			assert.LessOrEqual(t, res.Iterations, 20)
		})
	}
}

func TestPCACluster_KMeansTwoGroups(t *testing.T) {
	for _, init := range []Init{InitFromSamples, InitFarSamples} {
		t.Run(init.String(), func(t *testing.T) {
			c := newClusterer(t, WithInit(init))
			res, err := c.PCAClusterK(context.Background(), twoGroups(t), 2)
			require.NoError(t, err)

			assert.Equal(t, 2, res.Components)
			assert.Equal(t, 2, res.Groups)
			assert.True(t, testutil.SamePartition([]int{0, 0, 0, 1, 1, 1}, res.Assignments))
			assert.InDelta(t, 1.0, res.Entropy, 1e-9)
			assert.Empty(t, res.Label)
			require.Len(t, res.Closest, 2)
			require.Len(t, res.Furthest, 2)
			assert.Len(t, res.Validity, 2)
		})
	}
}

func TestPCACluster_BackProjectionMatchesDirectCentroids(t *testing.T) {
	data := twoGroups(t)
	res, err := newClusterer(t).PCAClusterK(context.Background(), data, 2)
	require.NoError(t, err)
	require.Equal(t, data.Cols(), res.Components)

	for _, ml := range res.MeanLines {
		want := make([]float32, data.Cols())
		n := 0
		for i, g := range res.Assignments {
			if g != ml.Cluster {
				continue
			}
			n++
			for j, v := range data.Row(i) {
				want[j] += v
			}
		}
		require.Positive(t, n)
		for j := range want {
			assert.InDelta(t, want[j]/float32(n), ml.Coordinates[j], 1e-4)
		}
	}
}

func TestPCACluster_AHCFourPoints(t *testing.T) {
	data, err := matrix.FromRows([][]float32{{0, 0}, {0, 1}, {10, 0}, {10, 1}})
	require.NoError(t, err)

	c := newClusterer(t, WithPostProcessing(AHCReduced))
	res, err := c.PCAClusterK(context.Background(), data, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Groups)
	assert.True(t, testutil.SamePartition([]int{0, 0, 1, 1}, res.Assignments))
	assert.Equal(t, []int{2, 2, 2, 2}, res.Sizes)

	require.Len(t, res.Merges, 2)
	first := res.Merges[0]
	pair := [2]int{first.Left, first.Right}
	assert.Contains(t, [][2]int{{0, 1}, {2, 3}}, pair)
	assert.Equal(t, 4, first.Node)
	assert.InDelta(t, 1.0, first.Distance, 1e-4)
	assert.Equal(t, 5, res.Merges[1].Node)
	assert.InDelta(t, 1.0, res.Entropy, 1e-9)
}

func TestSingleCluster_SkipsEntropyAndEvaluation(t *testing.T) {
	var buf bytes.Buffer
	c := newClusterer(t, WithReportSink(report.NewTextSink(&buf)))

	res, err := c.PCAClusterK(context.Background(), twoGroups(t), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Groups)
	assert.False(t, res.EntropyDefined)
	assert.Empty(t, res.Validity)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, res.Assignments)
	assert.Equal(t, []int{6, 6, 6, 6, 6, 6}, res.Sizes)
	assert.Contains(t, buf.String(), "entropy: undefined")
}

func TestDirectKMeans_DistanceCache(t *testing.T) {
	ctx := context.Background()
	data, _ := testutil.NewRNG(7).Blobs([][]float32{{0, 0, 0}, {20, 20, 20}}, 10, 1)
	metrics := &BasicMetricsCollector{}
	cache := distcache.New(blobstore.NewMemoryStore(), distcache.WithMemoryBytes(0))
	c := newClusterer(t, WithDistanceCache(cache), WithMetricsCollector(metrics))

	first, err := c.DirectKMeansK(ctx, data, distance.MetricManhattan, 2)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := c.DirectKMeansK(ctx, data, distance.MetricManhattan, 2)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Validity, second.Validity)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.RunCount)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Positive(t, stats.IterationTotal)

	_, ok := second.Score("silhouette")
	assert.True(t, ok)
}

func TestDirectKMeans_SpecialDatasetSkipsCache(t *testing.T) {
	store := blobstore.NewMemoryStore()
	c := newClusterer(t,
		WithDistanceCache(distcache.New(store)),
		WithSpecialDataset(true),
	)

	res, err := c.DirectKMeansK(context.Background(), twoGroups(t), distance.MetricEuclidean, 2)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Len(t, res.Validity, 2)

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDirectKMeans_ReportsSummary(t *testing.T) {
	var buf bytes.Buffer
	c := newClusterer(t, WithReportSink(report.NewTextSink(&buf)), WithEvaluators())

	_, err := c.DirectKMeansK(context.Background(), twoGroups(t), distance.MetricChebyshev, 2)
	require.NoError(t, err)
	assert.Equal(t, "For norm 2\ngroups: 2\nentropy: 1\n\n", buf.String())
}

func TestTimingsRecorded(t *testing.T) {
	res, err := newClusterer(t, WithPostProcessing(AHCReduced)).PCAClusterK(context.Background(), twoGroups(t), 2)
	require.NoError(t, err)

	var events []string
	for _, tm := range res.Timings {
		events = append(events, tm.Event)
	}
	assert.Equal(t, []string{"svd", "distance-matrix", "ahc", "evaluation"}, events)
}

func TestConfigurationErrors(t *testing.T) {
	_, err := New(WithClusters(0))
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = New(WithInit(Init(9)))
	assert.ErrorIs(t, err, ErrUnknownInit)

	_, err = New(WithPostProcessing(PostProcessing(3)))
	assert.ErrorIs(t, err, ErrUnknownPostProcessing)

	ctx := context.Background()
	c := newClusterer(t)

	_, err = c.PCAClusterK(ctx, twoGroups(t), 7)
	assert.ErrorIs(t, err, ErrClusterCountExceedsSamples)

	_, err = c.PCAClusterK(ctx, twoGroups(t), 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = c.PCACluster(ctx, matrix.New(0, 3))
	assert.ErrorIs(t, err, ErrEmptyInput)

	bad, err := matrix.FromRows([][]float32{{0, 0}, {float32(math.NaN()), 1}, {2, 2}})
	require.NoError(t, err)
	_, err = c.PCAClusterK(ctx, bad, 2)
	assert.ErrorIs(t, err, ErrNonFiniteValue)
	_, err = c.DirectKMeansK(ctx, bad, distance.MetricEuclidean, 3)
	assert.ErrorIs(t, err, ErrNonFiniteValue)

	bad.Set(1, 0, float32(math.Inf(1)))
	_, err = c.DirectKMeansK(ctx, bad, distance.MetricEuclidean, 2)
	assert.ErrorIs(t, err, ErrNonFiniteValue)

	_, err = c.DirectKMeansK(ctx, twoGroups(t), distance.Metric(99), 2)
	assert.ErrorIs(t, err, ErrUnknownMetric)

	_, err = c.DirectKMeansK(ctx, twoGroups(t), distance.MetricDTW, 2)
	var dim *ErrInvalidDimension
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 2, dim.Dimension)
}

func TestMemoryLimit(t *testing.T) {
	c := newClusterer(t, WithPostProcessing(AHCReduced), WithMemoryLimit(16))
	_, err := c.PCAClusterK(context.Background(), twoGroups(t), 2)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
}

func TestTranslateError(t *testing.T) {
	err := translateError(&distcache.ErrDimensionMismatch{Row: 2, Expected: 9, Actual: 4})
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Row)
	assert.Equal(t, 9, dm.Expected)
	assert.Equal(t, 4, dm.Actual)

	boom := errors.New("boom")
	assert.Equal(t, boom, translateError(boom))
	assert.NoError(t, translateError(nil))
}

func TestParsePostProcessing(t *testing.T) {
	for in, want := range map[string]PostProcessing{"1": KMeansReduced, "ahc": AHCReduced, " KMeans ": KMeansReduced} {
		got, err := ParsePostProcessing(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePostProcessing("3")
	assert.ErrorIs(t, err, ErrUnknownPostProcessing)
}

type failingSink struct{ err error }

func (s failingSink) WriteSummary(context.Context, report.Summary) error { return s.err }

func TestReportFailureFailsRun(t *testing.T) {
	boom := errors.New("disk full")
	ctx := context.Background()

	for _, post := range []PostProcessing{KMeansReduced, AHCReduced} {
		c := newClusterer(t, WithPostProcessing(post), WithReportSink(failingSink{err: boom}))
		res, err := c.PCAClusterK(ctx, twoGroups(t), 2)
		assert.ErrorIs(t, err, boom, "post=%v", post)
		assert.Nil(t, res, "post=%v", post)
	}

	c := newClusterer(t, WithReportSink(failingSink{err: boom}))
	res, err := c.DirectKMeansK(ctx, twoGroups(t), distance.MetricManhattan, 2)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
}
