package flowclust

import (
	"time"

	"github.com/hupe1980/flowclust/internal/ahc"
	"github.com/hupe1980/flowclust/internal/postprocess"
	"github.com/hupe1980/flowclust/report"
)

// Representative identifies the row closest to or furthest from the center
// of its cluster.
type Representative = postprocess.Representative

// MeanLine is a cluster centroid in the original coordinate space.
type MeanLine = postprocess.MeanLine

// Merge is one agglomeration step of an AHC run.
type Merge = ahc.Merge

// Timing is the duration of one phase of a run.
type Timing struct {
	Event    string
	Duration time.Duration
}

// Result is a finished clustering. Cluster ids are dense in [0, Groups) and
// increase with cluster population.
type Result struct {
	// Label is the readme label of the run ("" for PCA runs).
	Label string
	// Groups is the number of non-empty clusters, at most the requested k.
	Groups int
	// Assignments holds the cluster id of every row.
	Assignments []int
	// Sizes holds the size of the cluster of every row.
	Sizes []int

	// Entropy is the balanced entropy of the cluster sizes. It is only
	// meaningful when EntropyDefined is set, which requires two or more groups.
	Entropy        float64
	EntropyDefined bool

	Closest   []Representative
	Furthest  []Representative
	MeanLines []MeanLine

	// Components is the number of principal components kept (PCA runs only).
	Components int
	// Iterations is the number of k-means update steps (k-means runs only).
	Iterations int
	// Merges is the merge history (AHC runs only).
	Merges []Merge

	// Validity holds the evaluator scores; empty when Groups < 2.
	Validity []report.Score
	// CacheHit reports whether the distance matrix came from the cache.
	CacheHit bool

	Timings []Timing
}

// Score returns the named validity score.
func (r *Result) Score(name string) (float64, bool) {
	for _, s := range r.Validity {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}
