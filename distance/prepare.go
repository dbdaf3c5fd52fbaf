package distance

import (
	"fmt"

	"github.com/hupe1980/flowclust/matrix"
)

// ErrInvalidDimension indicates a row length the metric cannot interpret.
type ErrInvalidDimension struct {
	Metric    Metric
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("distance: %v needs a multiple of %d columns, got %d", e.Metric, VertexDim, e.Dimension)
}

// Dissimilarity measures how far a center lies from a row of the dataset it
// was prepared for. Implementations are deterministic and safe for
// concurrent use.
type Dissimilarity interface {
	// Distance returns a non-negative dissimilarity between center and data row i.
	Distance(center []float32, row int) float32
	// Metric returns the metric the measure was prepared with.
	Metric() Metric
}

// Prepare binds metric m to data and pre-computes per-row statistics the
// metric needs (row norms for the cosine angle).
func Prepare(m Metric, data *matrix.Dense) (Dissimilarity, error) {
	fn, err := Provider(m)
	if err != nil {
		return nil, err
	}
	if (m == MetricMeanPointwise || m == MetricDTW) && data.Cols()%VertexDim != 0 {
		return nil, &ErrInvalidDimension{Metric: m, Dimension: data.Cols()}
	}

	p := &prepared{metric: m, data: data, fn: fn}
	if m == MetricCosine {
		p.norms = make([]float32, data.Rows())
		for i := range p.norms {
			p.norms[i] = Norm(data.Row(i))
		}
	}
	return p, nil
}

type prepared struct {
	metric Metric
	data   *matrix.Dense
	fn     Func
	norms  []float32
}

func (p *prepared) Metric() Metric { return p.metric }

func (p *prepared) Distance(center []float32, row int) float32 {
	if p.norms != nil {
		r := p.data.Row(row)
		return angle(Dot(center, r), Norm(center), p.norms[row])
	}
	return p.fn(center, p.data.Row(row))
}
