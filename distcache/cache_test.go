package distcache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowclust/blobstore"
	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/internal/resource"
	"github.com/hupe1980/flowclust/matrix"
	"github.com/hupe1980/flowclust/testutil"
)

func pairwise(data *matrix.Dense) *matrix.Dense {
	n := data.Rows()
	d := matrix.New(n, n)
	for i := range n {
		for j := range n {
			if i != j {
				d.Set(i, j, distance.Euclidean(data.Row(i), data.Row(j)))
			}
		}
	}
	return d
}

type memIndex struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func (m *memIndex) Lookup(_ context.Context, name string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	return e, ok, nil
}

func (m *memIndex) Register(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]Entry{}
	}
	m.entries[e.Name] = e
	return nil
}

func TestCache_SaveLoad(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(1).Matrix(12, 6)
	d := pairwise(data)
	key := NewKey(data, distance.MetricEuclidean)

	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			c := New(store, WithCompression(comp), WithMemoryBytes(0))

			_, err := c.Load(ctx, key, 12)
			require.ErrorIs(t, err, ErrMiss)

			require.NoError(t, c.Save(ctx, key, d))

			names, err := store.List(ctx, "distcache/")
			require.NoError(t, err)
			assert.Equal(t, []string{c.Name(key)}, names)

			got, err := c.Load(ctx, key, 12)
			require.NoError(t, err)
			assert.Equal(t, d.Data(), got.Data())
		})
	}
}

func TestCache_LocalStore(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(2).Matrix(8, 3)
	d := pairwise(data)
	key := NewKey(data, distance.MetricManhattan)

	c := New(blobstore.NewLocalStore(t.TempDir()), WithMemoryBytes(0))
	require.NoError(t, c.Save(ctx, key, d))

	got, err := c.Load(ctx, key, 8)
	require.NoError(t, err)
	assert.Equal(t, d.Data(), got.Data())
}

func TestCache_KeysAreContentAddressed(t *testing.T) {
	a := testutil.NewRNG(1).Matrix(4, 3)
	b := testutil.NewRNG(2).Matrix(4, 3)
	c := New(blobstore.NewMemoryStore())

	assert.NotEqual(t, c.Name(NewKey(a, distance.MetricEuclidean)), c.Name(NewKey(b, distance.MetricEuclidean)))
	assert.NotEqual(t, c.Name(NewKey(a, distance.MetricEuclidean)), c.Name(NewKey(a, distance.MetricDTW)))
	assert.Equal(t, c.Name(NewKey(a, distance.MetricCosine)), c.Name(NewKey(a.Clone(), distance.MetricCosine)))
}

func TestCache_GetOrCompute(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(3).Matrix(10, 3)
	key := NewKey(data, distance.MetricEuclidean)
	c := New(blobstore.NewMemoryStore())

	calls := 0
	compute := func(context.Context) (*matrix.Dense, error) {
		calls++
		return pairwise(data), nil
	}

	m1, hit, err := c.GetOrCompute(ctx, key, 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	m2, hit, err := c.GetOrCompute(ctx, key, 10, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, m1.Data(), m2.Data())
	assert.Equal(t, 1, calls)

	hits, _ := c.Stats()
	assert.Equal(t, int64(1), hits)
}

func TestCache_CorruptEntryIsRecomputed(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(4).Matrix(3, 2)
	key := NewKey(data, distance.MetricEuclidean)

	store := blobstore.NewMemoryStore()
	c := New(store, WithMemoryBytes(0))
	require.NoError(t, store.Put(ctx, c.Name(key), []byte("0 1\n1 0\n")))

	_, err := c.Load(ctx, key, 3)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 0, dm.Row)

	m, hit, err := c.GetOrCompute(ctx, key, 3, func(context.Context) (*matrix.Dense, error) {
		return pairwise(data), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)

	got, err := c.Load(ctx, key, 3)
	require.NoError(t, err)
	assert.Equal(t, m.Data(), got.Data())
}

func TestCache_UnparsableEntryIsRecomputed(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(6).Matrix(2, 2)
	key := NewKey(data, distance.MetricEuclidean)

	store := blobstore.NewMemoryStore()
	c := New(store, WithMemoryBytes(0))
	require.NoError(t, store.Put(ctx, c.Name(key), []byte("0 abc\n1 0\n")))

	_, err := c.Load(ctx, key, 2)
	require.Error(t, err)
	var dm *ErrDimensionMismatch
	assert.False(t, errors.As(err, &dm))

	_, hit, err := c.GetOrCompute(ctx, key, 2, func(context.Context) (*matrix.Dense, error) {
		return pairwise(data), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)

	_, err = c.Load(ctx, key, 2)
	assert.NoError(t, err)
}

func TestCache_ComputeError(t *testing.T) {
	boom := errors.New("boom")
	c := New(blobstore.NewMemoryStore())
	_, _, err := c.GetOrCompute(context.Background(), Key{Dataset: "x"}, 2, func(context.Context) (*matrix.Dense, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCache_IndexGatesVisibility(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(5).Matrix(4, 2)
	key := NewKey(data, distance.MetricEuclidean)

	store := blobstore.NewMemoryStore()
	idx := &memIndex{}
	c := New(store, WithIndex(idx), WithMemoryBytes(0))

	// A blob without an index record is an uncommitted write.
	var raw = New(store, WithMemoryBytes(0))
	require.NoError(t, raw.Save(ctx, key, pairwise(data)))
	_, err := c.Load(ctx, key, 4)
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Save(ctx, key, pairwise(data)))
	e, ok, err := idx.Lookup(ctx, c.Name(key))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, e.Rows)
	assert.Equal(t, key.Dataset, e.Dataset)
	assert.Positive(t, e.Bytes)

	_, err = c.Load(ctx, key, 4)
	require.NoError(t, err)
}

func TestCache_MemoryTierChargesController(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20, IOLimitBytesPerSec: 1 << 20})
	data := testutil.NewRNG(6).Matrix(16, 2)
	key := NewKey(data, distance.MetricEuclidean)

	c := New(blobstore.NewMemoryStore(), WithResourceController(rc))
	require.NoError(t, c.Save(ctx, key, pairwise(data)))
	assert.Equal(t, resource.MatrixBytes(16), rc.MemoryUsage())

	hits, misses := c.Stats()
	assert.Zero(t, hits+misses)

	require.NoError(t, c.Close())
	assert.Zero(t, rc.MemoryUsage())
}
