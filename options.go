package flowclust

import (
	"log/slog"

	"github.com/hupe1980/flowclust/distcache"
	"github.com/hupe1980/flowclust/internal/kmeans"
	"github.com/hupe1980/flowclust/internal/parallel"
	"github.com/hupe1980/flowclust/report"
	"github.com/hupe1980/flowclust/validity"
)

// DefaultClusters is the cluster count of the default-K entry points.
const DefaultClusters = 8

// Init selects how k-means places its initial centers.
type Init = kmeans.Init

const (
	// InitRandomPosition draws centers uniformly inside the data bounding box.
	InitRandomPosition = kmeans.InitRandomPosition
	// InitFromSamples copies k distinct random rows.
	InitFromSamples = kmeans.InitFromSamples
	// InitFarSamples greedily picks mutually distant rows starting at row 0.
	InitFarSamples = kmeans.InitFarSamples
)

type options struct {
	clusters         int
	init             Init
	postProcessing   PostProcessing
	seed             int64
	workers          int
	metricsCollector MetricsCollector
	logger           *Logger
	cache            *distcache.Cache
	evaluators       []validity.Evaluator
	sink             report.Sink
	special          bool
	memoryLimit      int64
}

// Option configures a Clusterer.
type Option func(*options)

// WithClusters sets the cluster count used by the default-K entry points.
func WithClusters(k int) Option {
	return func(o *options) {
		o.clusters = k
	}
}

// WithInit selects the initialization strategy of k-means.
func WithInit(init Init) Option {
	return func(o *options) {
		o.init = init
	}
}

// WithPostProcessing selects the clustering run on the reduced coordinates.
func WithPostProcessing(mode PostProcessing) Option {
	return func(o *options) {
		o.postProcessing = mode
	}
}

// WithSeed seeds the random initialization strategies.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithWorkers sets the size of the fork-join worker pool.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &flowclust.BasicMetricsCollector{}
//	c, _ := flowclust.New(flowclust.WithMetricsCollector(metrics))
//	// ... run ...
//	stats := metrics.GetStats()
//	fmt.Printf("Runs: %d, Avg latency: %dns\n", stats.RunCount, stats.RunAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := flowclust.NewJSONLogger(slog.LevelInfo)
//	c, _ := flowclust.New(flowclust.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithDistanceCache sets the cache consulted for the full distance matrix
// of direct runs.
func WithDistanceCache(c *distcache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithEvaluators replaces the validity evaluators run after each clustering.
// Passing none disables evaluation.
func WithEvaluators(evs ...validity.Evaluator) Option {
	return func(o *options) {
		o.evaluators = evs
	}
}

// WithReportSink sets the sink receiving one summary per run.
func WithReportSink(sink report.Sink) Option {
	return func(o *options) {
		if sink == nil {
			sink = report.Discard
		}
		o.sink = sink
	}
}

// WithSpecialDataset flags the dataset as special (PBF). Special datasets
// never consult the distance cache.
func WithSpecialDataset(special bool) Option {
	return func(o *options) {
		o.special = special
	}
}

// WithMemoryLimit bounds the memory held by N x N distance matrices.
// Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		clusters:         DefaultClusters,
		init:             InitFromSamples,
		postProcessing:   KMeansReduced,
		seed:             1,
		workers:          parallel.DefaultWorkers,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		evaluators:       validity.Default(),
		sink:             report.Discard,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
