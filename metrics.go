package flowclust

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; see the observability package for a ready-made collector.
type MetricsCollector interface {
	// RecordRun is called after each clustering run.
	// mode names the entry point, duration is the total time taken,
	// err is nil if successful.
	RecordRun(mode string, duration time.Duration, err error)

	// RecordPhase is called for every timed phase of a run
	// (svd, kmeans, ahc, distance-matrix, evaluation).
	RecordPhase(phase string, duration time.Duration)

	// RecordIterations is called after each k-means run with the number of
	// update steps performed.
	RecordIterations(iterations int)

	// RecordCache is called after each distance-matrix lookup.
	RecordCache(hit bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRun(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordPhase(string, time.Duration)      {}
func (NoopMetricsCollector) RecordIterations(int)                   {}
func (NoopMetricsCollector) RecordCache(bool)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RunCount        atomic.Int64
	RunErrors       atomic.Int64
	RunTotalNanos   atomic.Int64
	PhaseCount      atomic.Int64
	PhaseTotalNanos atomic.Int64
	IterationTotal  atomic.Int64
	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(mode string, duration time.Duration, err error) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// RecordPhase implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPhase(phase string, duration time.Duration) {
	b.PhaseCount.Add(1)
	b.PhaseTotalNanos.Add(duration.Nanoseconds())
}

// RecordIterations implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIterations(iterations int) {
	b.IterationTotal.Add(int64(iterations))
}

// RecordCache implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCache(hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RunCount:       b.RunCount.Load(),
		RunErrors:      b.RunErrors.Load(),
		RunAvgNanos:    b.getAvgRunNanos(),
		PhaseCount:     b.PhaseCount.Load(),
		IterationTotal: b.IterationTotal.Load(),
		CacheHits:      b.CacheHits.Load(),
		CacheMisses:    b.CacheMisses.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgRunNanos() int64 {
	count := b.RunCount.Load()
	if count == 0 {
		return 0
	}
	return b.RunTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RunCount       int64
	RunErrors      int64
	RunAvgNanos    int64
	PhaseCount     int64
	IterationTotal int64
	CacheHits      int64
	CacheMisses    int64
}
