// Package validity scores a finished clustering.
//
// Evaluators receive the data, the dense labels and, when available, the
// full pairwise distance matrix. Without a matrix they fall back to the
// pairwise function in Input.
package validity

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/internal/parallel"
	"github.com/hupe1980/flowclust/matrix"
)

// ErrTooFewGroups is returned when fewer than two clusters are non-empty.
var ErrTooFewGroups = errors.New("validity: need at least two clusters")

// Input is a labeled dataset.
type Input struct {
	Data *matrix.Dense
	// Labels are dense cluster ids in [0, Groups).
	Labels []int
	Groups int

	// Distances is an optional N x N dissimilarity matrix.
	Distances *matrix.Dense
	// Pairwise is used when Distances is nil. Nil means Euclidean on Data.
	Pairwise func(i, j int) float32

	Workers int
}

func (in Input) distance(i, j int) float32 {
	switch {
	case in.Distances != nil:
		return in.Distances.At(i, j)
	case in.Pairwise != nil:
		return in.Pairwise(i, j)
	default:
		return distance.Euclidean(in.Data.Row(i), in.Data.Row(j))
	}
}

func (in Input) validate() error {
	if in.Groups < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewGroups, in.Groups)
	}
	if in.Data != nil && in.Data.Rows() != len(in.Labels) {
		return fmt.Errorf("validity: %d labels for %d rows", len(in.Labels), in.Data.Rows())
	}
	return nil
}

// Evaluator computes one scalar quality score.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, in Input) (float64, error)
}

// Default returns the evaluators run after every clustering.
func Default() []Evaluator {
	return []Evaluator{DaviesBouldin{}, Silhouette{}}
}

// Silhouette is the mean silhouette coefficient over all rows, in [-1, 1].
// Rows in singleton clusters score 0.
type Silhouette struct{}

func (Silhouette) Name() string { return "silhouette" }

func (Silhouette) Evaluate(ctx context.Context, in Input) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	n := len(in.Labels)

	sizes := make([]int, in.Groups)
	for _, l := range in.Labels {
		sizes[l]++
	}

	total, err := parallel.Sum(ctx, n, in.Workers, func(i int) float64 {
		sums := make([]float64, in.Groups)
		for j := range n {
			if j != i {
				sums[in.Labels[j]] += float64(in.distance(i, j))
			}
		}

		own := in.Labels[i]
		if sizes[own] <= 1 {
			return 0
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for g, s := range sums {
			if g != own && sizes[g] > 0 {
				b = min(b, s/float64(sizes[g]))
			}
		}

		if m := max(a, b); m > 0 && !math.IsInf(b, 1) {
			return (b - a) / m
		}
		return 0
	})
	if err != nil {
		return 0, err
	}
	return total / float64(n), nil
}

// DaviesBouldin is the Davies-Bouldin index over Euclidean centroids. Lower is better.
type DaviesBouldin struct{}

func (DaviesBouldin) Name() string { return "davies-bouldin" }

func (DaviesBouldin) Evaluate(ctx context.Context, in Input) (float64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	if in.Data == nil {
		return 0, errors.New("validity: davies-bouldin needs coordinates")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dim := in.Data.Cols()
	centroids := matrix.New(in.Groups, dim)
	sizes := make([]int, in.Groups)
	sums := make([]float64, in.Groups*dim)
	for i, l := range in.Labels {
		sizes[l]++
		for j, v := range in.Data.Row(i) {
			sums[l*dim+j] += float64(v)
		}
	}
	for g := range in.Groups {
		if sizes[g] == 0 {
			continue
		}
		row := centroids.Row(g)
		for j := range row {
			row[j] = float32(sums[g*dim+j] / float64(sizes[g]))
		}
	}

	scatter := make([]float64, in.Groups)
	for i, l := range in.Labels {
		scatter[l] += float64(distance.Euclidean(in.Data.Row(i), centroids.Row(l)))
	}

	var index float64
	groups := 0
	for g := range in.Groups {
		if sizes[g] == 0 {
			continue
		}
		groups++
		scatter[g] /= float64(sizes[g])
	}
	for g := range in.Groups {
		if sizes[g] == 0 {
			continue
		}
		worst := 0.0
		for h := range in.Groups {
			if h == g || sizes[h] == 0 {
				continue
			}
			sep := float64(distance.Euclidean(centroids.Row(g), centroids.Row(h)))
			if sep == 0 {
				return math.Inf(1), nil
			}
			worst = max(worst, (scatter[g]+scatter[h])/sep)
		}
		index += worst
	}
	return index / float64(groups), nil
}
