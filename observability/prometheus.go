package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/flowclust"
)

// PrometheusCollector implements flowclust.MetricsCollector.
type PrometheusCollector struct {
	runLatency   *prometheus.HistogramVec
	phaseLatency *prometheus.HistogramVec
	iterations   prometheus.Histogram
	cacheLookups *prometheus.CounterVec
}

var _ flowclust.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &PrometheusCollector{
		runLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowclust_run_duration_seconds",
			Help:    "Duration of clustering runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode", "status"}),
		phaseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowclust_phase_duration_seconds",
			Help:    "Duration of clustering phases",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowclust_kmeans_iterations",
			Help:    "Update steps per k-means run",
			Buckets: prometheus.LinearBuckets(1, 1, 20),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowclust_distance_cache_lookups_total",
			Help: "Distance matrix cache lookups",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{p.runLatency, p.phaseLatency, p.iterations, p.cacheLookups} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordRun implements flowclust.MetricsCollector.
func (p *PrometheusCollector) RecordRun(mode string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.runLatency.WithLabelValues(mode, status).Observe(d.Seconds())
}

// RecordPhase implements flowclust.MetricsCollector.
func (p *PrometheusCollector) RecordPhase(phase string, d time.Duration) {
	p.phaseLatency.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordIterations implements flowclust.MetricsCollector.
func (p *PrometheusCollector) RecordIterations(n int) {
	p.iterations.Observe(float64(n))
}

// RecordCache implements flowclust.MetricsCollector.
func (p *PrometheusCollector) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(result).Inc()
}
