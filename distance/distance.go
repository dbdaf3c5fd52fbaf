package distance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VertexDim is the number of coordinates per trajectory vertex.
const VertexDim = 3

// ErrUnknownMetric is returned for metric selectors outside the closed set.
var ErrUnknownMetric = errors.New("distance: unknown metric")

// Metric selects a dissimilarity measure. The numeric value is the metric
// option used in cache keys and report labels.
type Metric int

const (
	MetricEuclidean Metric = iota
	MetricManhattan
	MetricChebyshev
	MetricCosine
	MetricMeanPointwise
	MetricDTW
)

var metricNames = [...]string{
	MetricEuclidean:     "euclidean",
	MetricManhattan:     "manhattan",
	MetricChebyshev:     "chebyshev",
	MetricCosine:        "cosine",
	MetricMeanPointwise: "mean-pointwise",
	MetricDTW:           "dtw",
}

func (m Metric) String() string {
	if m.Valid() {
		return metricNames[m]
	}
	return fmt.Sprintf("Unknown(%d)", int(m))
}

// Valid reports whether m is one of the supported metrics.
func (m Metric) Valid() bool {
	return m >= MetricEuclidean && m <= MetricDTW
}

// ParseMetric accepts either a metric name or its numeric option.
func ParseMetric(s string) (Metric, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		m := Metric(n)
		if !m.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrUnknownMetric, n)
		}
		return m, nil
	}
	for i, name := range metricNames {
		if name == s {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// Func computes the dissimilarity between two equal-length rows.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricEuclidean:
		return Euclidean, nil
	case MetricManhattan:
		return Manhattan, nil
	case MetricChebyshev:
		return Chebyshev, nil
	case MetricCosine:
		return CosineAngle, nil
	case MetricMeanPointwise:
		return MeanPointwise, nil
	case MetricDTW:
		return DTW, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMetric, m)
	}
}

// SquaredEuclidean calculates the squared L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredEuclidean(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Euclidean calculates the L2 distance between two vectors.
func Euclidean(a, b []float32) float32 {
	return float32(math.Sqrt(float64(SquaredEuclidean(a, b))))
}

// Manhattan calculates the L1 distance between two vectors.
func Manhattan(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += float32(math.Abs(float64(a[i] - b[i])))
	}
	return sum
}

// Chebyshev calculates the largest per-coordinate difference.
func Chebyshev(a, b []float32) float32 {
	var m float32
	for i := range a {
		d := float32(math.Abs(float64(a[i] - b[i])))
		if d > m {
			m = d
		}
	}
	return m
}

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// CosineAngle returns the angle between a and b in radians.
// Two zero vectors are at angle 0; a zero and a non-zero vector at pi/2.
func CosineAngle(a, b []float32) float32 {
	return angle(Dot(a, b), Norm(a), Norm(b))
}

func angle(dot, na, nb float32) float32 {
	if na == 0 || nb == 0 {
		if na == nb {
			return 0
		}
		return math.Pi / 2
	}
	c := float64(dot / (na * nb))
	c = math.Max(-1, math.Min(1, c))
	return float32(math.Acos(c))
}

// MeanPointwise returns the mean Euclidean distance between matching 3-D vertices.
func MeanPointwise(a, b []float32) float32 {
	n := len(a) / VertexDim
	if n == 0 {
		return 0
	}
	var sum float32
	for v := range n {
		off := v * VertexDim
		sum += Euclidean(a[off:off+VertexDim], b[off:off+VertexDim])
	}
	return sum / float32(n)
}
