package kmeans

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/hupe1980/flowclust/matrix"
)

// ErrUnknownInit is returned for initialization selectors outside the closed set.
var ErrUnknownInit = errors.New("kmeans: unknown initialization strategy")

// Init selects how the initial centers are placed.
type Init int

const (
	// InitRandomPosition places centers uniformly inside the per-dimension bounding box.
	InitRandomPosition Init = 1
	// InitFromSamples copies k distinct random rows.
	InitFromSamples Init = 2
	// InitFarSamples greedily picks k mutually far rows, starting from row 0.
	InitFarSamples Init = 3
)

func (i Init) String() string {
	switch i {
	case InitRandomPosition:
		return "random-position"
	case InitFromSamples:
		return "from-samples"
	case InitFarSamples:
		return "far-samples"
	default:
		return fmt.Sprintf("Unknown(%d)", int(i))
	}
}

// Valid reports whether i is a supported strategy.
func (i Init) Valid() bool {
	return i >= InitRandomPosition && i <= InitFarSamples
}

// ParseInit accepts a strategy name or its numeric option.
func ParseInit(s string) (Init, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		if i := Init(n); i.Valid() {
			return i, nil
		}
		return 0, fmt.Errorf("%w: %s", ErrUnknownInit, s)
	}
	for i := InitRandomPosition; i <= InitFarSamples; i++ {
		if i.String() == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownInit, s)
}

// DistanceFunc returns the dissimilarity between a center and data row i.
type DistanceFunc func(center []float32, row int) float32

// InitialCenters returns exactly k starting centers for data.
// k must be in [1, data.Rows()].
func InitialCenters(data *matrix.Dense, k int, init Init, rng *rand.Rand, dist DistanceFunc) (*matrix.Dense, error) {
	if err := validateK(k, data.Rows()); err != nil {
		return nil, err
	}

	switch init {
	case InitRandomPosition:
		return randomPosition(data, k, rng), nil
	case InitFromSamples:
		return fromSamples(data, k, rng), nil
	case InitFarSamples:
		return farSamples(data, k, dist), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownInit, init)
	}
}

func randomPosition(data *matrix.Dense, k int, rng *rand.Rand) *matrix.Dense {
	rows, cols := data.Dims()
	lo := make([]float32, cols)
	hi := make([]float32, cols)
	copy(lo, data.Row(0))
	copy(hi, data.Row(0))
	for i := 1; i < rows; i++ {
		for j, v := range data.Row(i) {
			lo[j] = min(lo[j], v)
			hi[j] = max(hi[j], v)
		}
	}

	centers := matrix.New(k, cols)
	for c := range k {
		row := centers.Row(c)
		for j := range row {
			row[j] = lo[j] + rng.Float32()*(hi[j]-lo[j])
		}
	}
	return centers
}

func fromSamples(data *matrix.Dense, k int, rng *rand.Rand) *matrix.Dense {
	perm := rng.Perm(data.Rows())
	centers := matrix.New(k, data.Cols())
	for c := range k {
		copy(centers.Row(c), data.Row(perm[c]))
	}
	return centers
}

// farSamples is the greedy max-min selection. Ties resolve to the lowest row index.
// Rows whose distances are NaN are never preferred; the first unchosen row is
// taken when nothing else qualifies.
func farSamples(data *matrix.Dense, k int, dist DistanceFunc) *matrix.Dense {
	n := data.Rows()
	centers := matrix.New(k, data.Cols())
	chosen := make([]bool, n)

	copy(centers.Row(0), data.Row(0))
	chosen[0] = true

	nearest := make([]float32, n)
	for i := range n {
		nearest[i] = dist(centers.Row(0), i)
	}

	for c := 1; c < k; c++ {
		best, far := -1, float32(math.Inf(-1))
		for i := range n {
			if !chosen[i] && nearest[i] > far {
				best, far = i, nearest[i]
			}
		}
		if best < 0 {
			// Every candidate distance is NaN.
			for best = 0; chosen[best]; best++ {
			}
		}

		chosen[best] = true
		copy(centers.Row(c), data.Row(best))
		for i := range n {
			if d := dist(centers.Row(c), i); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return centers
}
