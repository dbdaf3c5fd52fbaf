// Package pca reduces a trajectory matrix to its dominant principal
// components.
//
// The data is mean-centered, factorized with a thin SVD and projected onto
// the right-singular vectors. The number of kept components P is the
// smallest count whose cumulative squared projection norm exceeds
// VarianceFraction of the total.
package pca

import (
	"context"
	"errors"

	"github.com/hupe1980/flowclust/internal/parallel"
	"github.com/hupe1980/flowclust/matrix"
	"gonum.org/v1/gonum/mat"
)

// VarianceFraction is the share of total variance the kept components must exceed.
const VarianceFraction = 0.999

var (
	// ErrNoComponents is returned when no principal component was selected.
	ErrNoComponents = errors.New("pca: no principal components selected")

	// ErrFactorization is returned when the SVD does not converge.
	ErrFactorization = errors.New("pca: SVD factorization failed")
)

// Reduction is the result of Reduce.
type Reduction struct {
	// Reduced holds the N x P projected coordinates.
	Reduced *matrix.Dense
	// Basis holds the top P right-singular vectors as rows (P x M).
	Basis *matrix.Dense
	// Mean is the column-wise mean of the input (length M).
	Mean []float32
	// Components is P.
	Components int
}

// Reduce computes the principal-component reduction of data using up to
// workers goroutines for the centering passes.
func Reduce(ctx context.Context, data *matrix.Dense, workers int) (*Reduction, error) {
	rows, cols := data.Dims()

	mean := make([]float32, cols)
	err := parallel.For(ctx, cols, workers, func(_, lo, hi int) error {
		for j := lo; j < hi; j++ {
			var sum float64
			for i := range rows {
				sum += float64(data.At(i, j))
			}
			mean[j] = float32(sum / float64(rows))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	centered := mat.NewDense(rows, cols, nil)
	err = parallel.For(ctx, rows, workers, func(_, lo, hi int) error {
		for i := lo; i < hi; i++ {
			src := data.Row(i)
			dst := centered.RawRowView(i)
			for j, v := range src {
				dst[j] = float64(v - mean[j])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, ErrFactorization
	}
	var v mat.Dense
	svd.VTo(&v)

	var coeff mat.Dense
	coeff.Mul(centered, &v)
	projected := matrix.FromGonum(&coeff)

	p := selectComponents(projected)
	if p == 0 {
		return nil, ErrNoComponents
	}

	reduced := matrix.New(rows, p)
	for i := range rows {
		copy(reduced.Row(i), projected.Row(i)[:p])
	}

	basis := matrix.New(p, cols)
	for c := range p {
		row := basis.Row(c)
		for j := range cols {
			row[j] = float32(v.At(j, c))
		}
	}

	return &Reduction{
		Reduced:    reduced,
		Basis:      basis,
		Mean:       mean,
		Components: p,
	}, nil
}

// selectComponents returns the smallest P whose leading columns carry more
// than VarianceFraction of the squared norm. Sums stay in float32 like the
// input. If the threshold is never crossed all columns are kept.
func selectComponents(projected *matrix.Dense) int {
	rows, cols := projected.Dims()
	colNorm := make([]float32, cols)
	var total float32
	for i := range rows {
		for j, v := range projected.Row(i) {
			colNorm[j] += v * v
		}
	}
	for _, s := range colNorm {
		total += s
	}

	threshold := float32(VarianceFraction) * total
	var cum float32
	for j, s := range colNorm {
		cum += s
		if cum > threshold {
			return j + 1
		}
	}
	return cols
}

// BackProjectAll maps every row of centers (K x P) to the original space (K x M):
// full = centers x Basis + Mean.
func (r *Reduction) BackProjectAll(centers *matrix.Dense) *matrix.Dense {
	var full mat.Dense
	full.Mul(centers.ToGonum(), r.Basis.ToGonum())
	out := matrix.FromGonum(&full)
	for i := range out.Rows() {
		row := out.Row(i)
		for j := range row {
			row[j] += r.Mean[j]
		}
	}
	return out
}
