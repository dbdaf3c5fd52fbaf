package flowclust

import (
	"errors"
	"fmt"

	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/distcache"
	"github.com/hupe1980/flowclust/internal/ahc"
	"github.com/hupe1980/flowclust/internal/kmeans"
	"github.com/hupe1980/flowclust/internal/pca"
	"github.com/hupe1980/flowclust/internal/resource"
)

var (
	// ErrInvalidK is returned when the cluster count is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrClusterCountExceedsSamples is returned when k exceeds the number of rows.
	ErrClusterCountExceedsSamples = errors.New("cluster count exceeds number of samples")

	// ErrNoPrincipalComponents is returned when the reduction keeps no component.
	ErrNoPrincipalComponents = errors.New("no principal components selected")

	// ErrUnknownInit is returned for an unknown initialization strategy.
	ErrUnknownInit = errors.New("unknown initialization strategy")

	// ErrUnknownMetric is returned for an unknown dissimilarity metric.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnknownPostProcessing is returned for an unknown post-processing mode.
	ErrUnknownPostProcessing = errors.New("unknown post-processing mode")

	// ErrEmptyInput is returned when the coordinate matrix has no rows or columns.
	ErrEmptyInput = errors.New("empty input")

	// ErrNonFiniteValue is returned when a coordinate is NaN or infinite.
	ErrNonFiniteValue = errors.New("non-finite coordinate")

	// ErrMemoryLimitExceeded is returned when a distance matrix does not fit the memory limit.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")
)

// ErrDimensionMismatch indicates a cached distance matrix whose shape
// disagrees with the dataset. Row is -1 for a wrong row count, otherwise the
// row holding the wrong number of values.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Row      int
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("dimension mismatch: expected %d rows, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch: row %d: expected %d values, got %d", e.Row, e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates a column count the selected metric cannot use.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *distcache.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Row: dm.Row, Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var id *distance.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidDimension{Dimension: id.Dimension, cause: err}
	}

	sentinels := []struct {
		from, to error
	}{
		{kmeans.ErrInvalidK, ErrInvalidK},
		{ahc.ErrInvalidK, ErrInvalidK},
		{kmeans.ErrTooManyClusters, ErrClusterCountExceedsSamples},
		{ahc.ErrTooManyClusters, ErrClusterCountExceedsSamples},
		{pca.ErrNoComponents, ErrNoPrincipalComponents},
		{kmeans.ErrUnknownInit, ErrUnknownInit},
		{distance.ErrUnknownMetric, ErrUnknownMetric},
		{resource.ErrMemoryLimitExceeded, ErrMemoryLimitExceeded},
	}
	for _, s := range sentinels {
		if errors.Is(err, s.from) {
			return fmt.Errorf("%w: %w", s.to, err)
		}
	}

	return err
}
