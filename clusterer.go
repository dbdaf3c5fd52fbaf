package flowclust

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/flowclust/distance"
	"github.com/hupe1980/flowclust/distcache"
	"github.com/hupe1980/flowclust/internal/ahc"
	"github.com/hupe1980/flowclust/internal/kmeans"
	"github.com/hupe1980/flowclust/internal/pca"
	"github.com/hupe1980/flowclust/internal/postprocess"
	"github.com/hupe1980/flowclust/internal/resource"
	"github.com/hupe1980/flowclust/matrix"
	"github.com/hupe1980/flowclust/report"
	"github.com/hupe1980/flowclust/validity"
)

// mergeLogInterval is the number of merges between AHC progress records.
const mergeLogInterval = 100

// Clusterer runs the clustering pipelines. It is safe for concurrent use.
type Clusterer struct {
	opts options
	rc   *resource.Controller
}

// New creates a Clusterer. Configuration errors are reported here, before
// any clustering work.
func New(optFns ...Option) (*Clusterer, error) {
	o := applyOptions(optFns)
	if o.clusters < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, o.clusters)
	}
	if !o.init.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownInit, int(o.init))
	}
	if !o.postProcessing.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPostProcessing, int(o.postProcessing))
	}
	return &Clusterer{
		opts: o,
		rc:   resource.NewController(resource.Config{MemoryLimitBytes: o.memoryLimit}),
	}, nil
}

// PCACluster reduces data to its principal components and clusters them
// into the configured number of clusters with the configured post-processing.
func (c *Clusterer) PCACluster(ctx context.Context, data *matrix.Dense) (*Result, error) {
	return c.PCAClusterK(ctx, data, c.opts.clusters)
}

// PCAClusterK is PCACluster with an explicit cluster count.
func (c *Clusterer) PCAClusterK(ctx context.Context, data *matrix.Dense, k int) (*Result, error) {
	start := time.Now()
	mode := "pca-" + c.opts.postProcessing.String()
	res, err := c.pcaCluster(ctx, data, k)
	c.finish(ctx, mode, start, res, err)
	return res, translateError(err)
}

// DirectKMeans clusters the raw rows of data with k-means under metric into
// the configured number of clusters.
func (c *Clusterer) DirectKMeans(ctx context.Context, data *matrix.Dense, metric distance.Metric) (*Result, error) {
	return c.DirectKMeansK(ctx, data, metric, c.opts.clusters)
}

// DirectKMeansK is DirectKMeans with an explicit cluster count.
func (c *Clusterer) DirectKMeansK(ctx context.Context, data *matrix.Dense, metric distance.Metric, k int) (*Result, error) {
	start := time.Now()
	res, err := c.directKMeans(ctx, data, metric, k)
	c.finish(ctx, "direct-kmeans", start, res, err)
	return res, translateError(err)
}

func (c *Clusterer) finish(ctx context.Context, mode string, start time.Time, res *Result, err error) {
	c.opts.metricsCollector.RecordRun(mode, time.Since(start), err)
	if res == nil {
		c.opts.logger.LogRun(ctx, 0, 0, false, err)
		return
	}
	c.opts.logger.LogRun(ctx, res.Groups, res.Entropy, res.EntropyDefined, err)
}

func validateInput(data *matrix.Dense, k int) error {
	if data == nil || data.Rows() == 0 || data.Cols() == 0 {
		return ErrEmptyInput
	}
	if k < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	if k > data.Rows() {
		return fmt.Errorf("%w: k=%d, n=%d", ErrClusterCountExceedsSamples, k, data.Rows())
	}
	for i, v := range data.Data() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: row %d, column %d", ErrNonFiniteValue, i/data.Cols(), i%data.Cols())
		}
	}
	return nil
}

// run tracks the timings of one clustering run.
type run struct {
	c       *Clusterer
	timings []Timing
}

func (r *run) time(event string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.timings = append(r.timings, Timing{Event: event, Duration: d})
	r.c.opts.metricsCollector.RecordPhase(event, d)
	return err
}

func (c *Clusterer) pcaCluster(ctx context.Context, data *matrix.Dense, k int) (*Result, error) {
	if err := validateInput(data, k); err != nil {
		return nil, err
	}
	logger := c.opts.logger.WithK(k).WithDimension(data.Cols()).WithCount(data.Rows())
	r := &run{c: c}

	var red *pca.Reduction
	err := r.time("svd", func() error {
		var err error
		red, err = pca.Reduce(ctx, data, c.opts.workers)
		return err
	})
	logger.LogReduction(ctx, componentsOf(red), r.timings[0].Duration, err)
	if err != nil {
		return nil, err
	}

	reduced := red.Reduced
	euclid := kmeans.Euclidean(reduced)
	in := postprocess.Input{Distance: euclid, Project: red.BackProjectAll}

	var (
		iterations int
		merges     []Merge
		dist       *matrix.Dense
	)
	switch c.opts.postProcessing {
	case KMeansReduced:
		km, err := c.kmeans(ctx, r, logger, reduced, euclid, k)
		if err != nil {
			return nil, err
		}
		in.Assignments, in.Counts, in.Members, in.Centers = km.Assignments, km.Counts, km.Members, km.Centers
		iterations = km.Iterations
	case AHCReduced:
		release, err := c.rc.AcquireMatrix(reduced.Rows())
		if err != nil {
			return nil, err
		}
		defer release()

		err = r.time("distance-matrix", func() error {
			var err error
			dist, err = ahc.Pairwise(ctx, reduced.Rows(), c.opts.workers, func(i, j int) float32 {
				return distance.Euclidean(reduced.Row(i), reduced.Row(j))
			})
			return err
		})
		if err != nil {
			return nil, err
		}

		var res *ahc.Result
		err = r.time("ahc", func() error {
			var err error
			res, err = ahc.Run(ctx, dist, k, ahc.Options{
				Workers: c.opts.workers,
				OnMerge: func(m ahc.Merge) {
					step := m.Node - reduced.Rows() + 1
					if step%mergeLogInterval == 0 {
						logger.LogMerge(ctx, step, reduced.Rows()-step, m.Distance)
					}
				},
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := ahc.CheckPartition(reduced.Rows(), res.Clusters); err != nil {
			return nil, err
		}

		in.Assignments, in.Counts, in.Members = flatten(reduced.Rows(), res.Clusters)
		in.Centers = postprocess.Centroids(reduced, in.Members)
		merges = res.Merges
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPostProcessing, int(c.opts.postProcessing))
	}

	out := postprocess.Process(in)
	res := newResult("", out)
	res.Components = red.Components
	res.Iterations = iterations
	res.Merges = merges

	err = c.evaluate(ctx, r, res, validity.Input{
		Data:      reduced,
		Labels:    res.Assignments,
		Groups:    res.Groups,
		Distances: dist,
		Workers:   c.opts.workers,
	})
	if err != nil {
		return nil, err
	}
	res.Timings = r.timings
	if err := c.report(ctx, res, data.Rows(), k, "pca-"+c.opts.postProcessing.String(), "euclidean"); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Clusterer) directKMeans(ctx context.Context, data *matrix.Dense, metric distance.Metric, k int) (*Result, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, int(metric))
	}
	if err := validateInput(data, k); err != nil {
		return nil, err
	}
	diss, err := distance.Prepare(metric, data)
	if err != nil {
		return nil, err
	}

	label := report.NormLabel(int(metric))
	logger := c.opts.logger.WithRun(label).WithK(k).WithDimension(data.Cols()).WithCount(data.Rows())
	r := &run{c: c}

	km, err := c.kmeans(ctx, r, logger, data, diss.Distance, k)
	if err != nil {
		return nil, err
	}

	out := postprocess.Process(postprocess.Input{
		Assignments: km.Assignments,
		Counts:      km.Counts,
		Members:     km.Members,
		Centers:     km.Centers,
		Distance:    diss.Distance,
	})
	res := newResult(label, out)
	res.Iterations = km.Iterations

	in := validity.Input{
		Data:    data,
		Labels:  res.Assignments,
		Groups:  res.Groups,
		Workers: c.opts.workers,
		Pairwise: func(i, j int) float32 {
			return diss.Distance(data.Row(i), j)
		},
	}
	if res.Groups > 1 && len(c.opts.evaluators) > 0 && c.opts.cache != nil && !c.opts.special {
		release, err := c.rc.AcquireMatrix(data.Rows())
		if err != nil {
			return nil, err
		}
		defer release()

		if in.Distances, res.CacheHit, err = c.distanceMatrix(ctx, r, logger, data, diss); err != nil {
			return nil, err
		}
	}

	if err := c.evaluate(ctx, r, res, in); err != nil {
		return nil, err
	}
	res.Timings = r.timings
	if err := c.report(ctx, res, data.Rows(), k, "direct-kmeans", metric.String()); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Clusterer) kmeans(ctx context.Context, r *run, logger *Logger, data *matrix.Dense, dist kmeans.DistanceFunc, k int) (*kmeans.Result, error) {
	var km *kmeans.Result
	err := r.time("kmeans", func() error {
		var err error
		km, err = kmeans.Run(ctx, data, dist, kmeans.Config{
			K:       k,
			Init:    c.opts.init,
			Seed:    c.opts.seed,
			Workers: c.opts.workers,
			OnIteration: func(iteration int, moving float32) {
				logger.LogIteration(ctx, iteration, moving)
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	c.opts.metricsCollector.RecordIterations(km.Iterations)
	return km, nil
}

// distanceMatrix loads the full matrix of data under diss from the cache,
// computing and storing it on a miss.
func (c *Clusterer) distanceMatrix(ctx context.Context, r *run, logger *Logger, data *matrix.Dense, diss distance.Dissimilarity) (*matrix.Dense, bool, error) {
	key := distcache.NewKey(data, diss.Metric())
	name := c.opts.cache.Name(key)
	n := data.Rows()

	var (
		d   *matrix.Dense
		hit bool
	)
	start := time.Now()
	err := r.time("distance-matrix", func() error {
		var err error
		d, hit, err = c.opts.cache.GetOrCompute(ctx, key, n, func(ctx context.Context) (*matrix.Dense, error) {
			return ahc.Pairwise(ctx, n, c.opts.workers, func(i, j int) float32 {
				return diss.Distance(data.Row(i), j)
			})
		})
		return err
	})
	if err != nil {
		return nil, false, err
	}

	c.opts.metricsCollector.RecordCache(hit)
	if hit {
		logger.LogCacheHit(ctx, name)
	} else {
		logger.LogCacheMiss(ctx, name, time.Since(start))
	}
	return d, hit, nil
}

// evaluate runs every evaluator. Runs with fewer than two groups are not scored.
func (c *Clusterer) evaluate(ctx context.Context, r *run, res *Result, in validity.Input) error {
	if res.Groups < 2 || len(c.opts.evaluators) == 0 {
		return nil
	}
	return r.time("evaluation", func() error {
		for _, ev := range c.opts.evaluators {
			v, err := ev.Evaluate(ctx, in)
			if errors.Is(err, validity.ErrTooFewGroups) {
				continue
			}
			if err != nil {
				return fmt.Errorf("%s: %w", ev.Name(), err)
			}
			res.Validity = append(res.Validity, report.Score{Name: ev.Name(), Value: v})
		}
		return nil
	})
}

func (c *Clusterer) report(ctx context.Context, res *Result, rows, k int, mode, metric string) error {
	err := c.opts.sink.WriteSummary(ctx, report.Summary{
		Label:          res.Label,
		Mode:           mode,
		Metric:         metric,
		Rows:           rows,
		K:              k,
		Groups:         res.Groups,
		Entropy:        res.Entropy,
		EntropyDefined: res.EntropyDefined,
		Scores:         res.Validity,
	})
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func newResult(label string, out *postprocess.Output) *Result {
	return &Result{
		Label:          label,
		Groups:         out.Groups,
		Assignments:    out.Assignments,
		Sizes:          out.Sizes,
		Entropy:        out.Entropy,
		EntropyDefined: out.EntropyDefined,
		Closest:        out.Closest,
		Furthest:       out.Furthest,
		MeanLines:      out.MeanLines,
	}
}

// flatten turns terminal AHC clusters into raw assignments, counts and
// member lists indexed by cluster position.
func flatten(n int, clusters []ahc.Cluster) (assign, counts []int, members [][]int) {
	assign = make([]int, n)
	counts = make([]int, len(clusters))
	members = make([][]int, len(clusters))
	for c, cl := range clusters {
		counts[c] = cl.Size()
		members[c] = cl.Members
		for _, row := range cl.Members {
			assign[row] = c
		}
	}
	return assign, counts, members
}

func componentsOf(red *pca.Reduction) int {
	if red == nil {
		return 0
	}
	return red.Components
}
