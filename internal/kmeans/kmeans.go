package kmeans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/internal/parallel"
	"github.com/hupe1980/flowclust/matrix"
)

const (
	// MaxIterations bounds the number of update steps.
	MaxIterations = 20
	// RelativeTolerance stops iteration when the maximum displacement changes
	// by less than this fraction between two iterations.
	RelativeTolerance = 0.01
	// AbsoluteTolerance stops iteration once the maximum displacement is at or below it.
	AbsoluteTolerance = 0.01

	initialMoving = 1000
)

var (
	// ErrInvalidK is returned when k < 1.
	ErrInvalidK = errors.New("kmeans: k must be at least 1")
	// ErrTooManyClusters is returned when k exceeds the number of rows.
	ErrTooManyClusters = errors.New("kmeans: k exceeds number of samples")
)

// State is the phase of the Lloyd iteration.
type State int

const (
	StateInitializing State = iota
	StateAssigning
	StateUpdating
	StateConverged
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAssigning:
		return "assigning"
	case StateUpdating:
		return "updating"
	case StateConverged:
		return "converged"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config controls a k-means run.
type Config struct {
	K       int
	Init    Init
	Seed    int64
	Workers int

	// MaxIterations overrides the iteration bound when > 0.
	MaxIterations int

	// OnIteration is called after each update step.
	OnIteration func(iteration int, moving float32)
}

// Result is the outcome of a k-means run. Cluster indices are raw, in [0, K).
type Result struct {
	Centers     *matrix.Dense
	Assignments []int
	Counts      []int
	// Members lists the rows of each cluster in ascending order.
	Members    [][]int
	Iterations int
	// Moving is the maximum center displacement of the last update.
	Moving float32
}

// Euclidean returns a DistanceFunc over the rows of data.
func Euclidean(data *matrix.Dense) DistanceFunc {
	return func(center []float32, row int) float32 {
		return distance.Euclidean(center, data.Row(row))
	}
}

// Run clusters the rows of data into cfg.K groups. Centers are arithmetic
// means of the member rows regardless of dist.
func Run(ctx context.Context, data *matrix.Dense, dist DistanceFunc, cfg Config) (*Result, error) {
	if err := validateK(cfg.K, data.Rows()); err != nil {
		return nil, err
	}
	if !cfg.Init.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownInit, cfg.Init)
	}

	e := &engine{
		data:    data,
		dist:    dist,
		k:       cfg.K,
		workers: parallel.Workers(cfg.Workers),
		assign:  make([]int, data.Rows()),
	}

	limit := cfg.MaxIterations
	if limit <= 0 {
		limit = MaxIterations
	}

	var (
		acc    *accumulator
		iter   int
		before float32
		moving float32 = initialMoving
		err    error
	)

	state := StateInitializing
	for state != StateConverged {
		switch state {
		case StateInitializing:
			rng := rand.New(rand.NewSource(cfg.Seed))
			e.centers, err = InitialCenters(data, cfg.K, cfg.Init, rng, dist)
			if err != nil {
				return nil, err
			}
			state = StateAssigning
		case StateAssigning:
			before = moving
			if acc, err = e.assignStep(ctx); err != nil {
				return nil, err
			}
			state = StateUpdating
		case StateUpdating:
			if moving, err = e.updateStep(ctx, acc); err != nil {
				return nil, err
			}
			iter++
			if cfg.OnIteration != nil {
				cfg.OnIteration(iter, moving)
			}
			if converged(before, moving, iter, limit) {
				state = StateConverged
			} else {
				state = StateAssigning
			}
		}
	}

	return &Result{
		Centers:     e.centers,
		Assignments: e.assign,
		Counts:      acc.counts,
		Members:     acc.members,
		Iterations:  iter,
		Moving:      moving,
	}, nil
}

func converged(before, moving float32, iter, limit int) bool {
	if iter >= limit || moving <= AbsoluteTolerance || before == 0 {
		return true
	}
	return float32(math.Abs(float64(moving-before)))/before < RelativeTolerance
}

func validateK(k, n int) error {
	if k < 1 {
		return ErrInvalidK
	}
	if k > n {
		return fmt.Errorf("%w: k=%d, n=%d", ErrTooManyClusters, k, n)
	}
	return nil
}

type engine struct {
	data    *matrix.Dense
	dist    DistanceFunc
	k       int
	workers int
	centers *matrix.Dense
	assign  []int
}

// accumulator holds per-cluster sums, counts and member lists.
type accumulator struct {
	sums    []float64
	counts  []int
	members [][]int
}

func newAccumulator(k, dim int) *accumulator {
	return &accumulator{
		sums:    make([]float64, k*dim),
		counts:  make([]int, k),
		members: make([][]int, k),
	}
}

// merge folds o into a. Callers merge in chunk order so member lists stay ascending.
func (a *accumulator) merge(o *accumulator) {
	for i, v := range o.sums {
		a.sums[i] += v
	}
	for c, n := range o.counts {
		a.counts[c] += n
		a.members[c] = append(a.members[c], o.members[c]...)
	}
}

// assignStep assigns every row to its nearest center. Ties go to the lowest
// center index.
func (e *engine) assignStep(ctx context.Context) (*accumulator, error) {
	n, dim := e.data.Dims()
	partials := make([]*accumulator, parallel.Chunks(n, e.workers))

	err := parallel.For(ctx, n, e.workers, func(chunk, lo, hi int) error {
		acc := newAccumulator(e.k, dim)
		for i := lo; i < hi; i++ {
			best, bestDist := 0, float32(math.Inf(1))
			for c := range e.k {
				if d := e.dist(e.centers.Row(c), i); d < bestDist {
					best, bestDist = c, d
				}
			}

			e.assign[i] = best
			acc.counts[best]++
			acc.members[best] = append(acc.members[best], i)
			sum := acc.sums[best*dim : (best+1)*dim]
			for j, v := range e.data.Row(i) {
				sum[j] += float64(v)
			}
		}
		partials[chunk] = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := newAccumulator(e.k, dim)
	for _, p := range partials {
		if p != nil {
			total.merge(p)
		}
	}
	return total, nil
}

// updateStep moves every non-empty center to the mean of its members and
// returns the largest displacement. Empty clusters keep their center.
func (e *engine) updateStep(ctx context.Context, acc *accumulator) (float32, error) {
	dim := e.data.Cols()

	return parallel.Max(ctx, e.k, e.workers, func(c int) (float32, bool) {
		count := acc.counts[c]
		if count == 0 {
			return 0, false
		}

		center := e.centers.Row(c)
		sum := acc.sums[c*dim : (c+1)*dim]
		var shift float64
		for j := range center {
			mean := float32(sum[j] / float64(count))
			d := float64(mean - center[j])
			shift += d * d
			center[j] = mean
		}
		return float32(math.Sqrt(shift)), true
	})
}
