// Package parallel implements the fork-join primitives used by the
// clustering stages: static range partitioning over a bounded worker pool
// and associative reductions.
//
// Every call is a full barrier: it returns only after all chunks finished.
package parallel

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the worker pool size used when callers pass <= 0.
const DefaultWorkers = 8

// Workers normalizes a configured worker count.
func Workers(n int) int {
	if n <= 0 {
		return DefaultWorkers
	}
	return n
}

// Chunks returns the number of contiguous chunks For splits n items into.
func Chunks(n, workers int) int {
	workers = Workers(workers)
	if n < workers {
		return n
	}
	return workers
}

// For splits [0, n) into contiguous chunks, one per worker, and runs fn on
// each chunk concurrently. chunk is the chunk index in [0, Chunks(n, workers)),
// so callers can keep per-chunk partial state without locking.
// Chunks are assigned in index order, which keeps merges of per-chunk state
// deterministic.
func For(ctx context.Context, n, workers int, fn func(chunk, lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	chunks := Chunks(n, workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(chunks)

	size := (n + chunks - 1) / chunks
	for c := range chunks {
		lo := c * size
		hi := min(lo+size, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(c, lo, hi)
		})
	}
	return g.Wait()
}

// Max evaluates fn for every index in [0, n) and returns the maximum.
// Indices where fn reports ok == false do not participate; if none
// participate the result is 0.
func Max(ctx context.Context, n, workers int, fn func(i int) (float32, bool)) (float32, error) {
	partial := make([]float32, Chunks(n, workers))
	for i := range partial {
		partial[i] = float32(math.Inf(-1))
	}

	err := For(ctx, n, workers, func(chunk, lo, hi int) error {
		best := partial[chunk]
		for i := lo; i < hi; i++ {
			if v, ok := fn(i); ok && v > best {
				best = v
			}
		}
		partial[chunk] = best
		return nil
	})
	if err != nil {
		return 0, err
	}

	best := float32(math.Inf(-1))
	for _, v := range partial {
		best = max(best, v)
	}
	if math.IsInf(float64(best), -1) {
		return 0, nil
	}
	return best, nil
}

// Sum evaluates fn for every index in [0, n) and returns the total.
// Partial sums are combined in chunk order, so the result is reproducible
// for a fixed worker count.
func Sum(ctx context.Context, n, workers int, fn func(i int) float64) (float64, error) {
	partial := make([]float64, Chunks(n, workers))

	err := For(ctx, n, workers, func(chunk, lo, hi int) error {
		var s float64
		for i := lo; i < hi; i++ {
			s += fn(i)
		}
		partial[chunk] = s
		return nil
	})
	if err != nil {
		return 0, err
	}

	var total float64
	for _, v := range partial {
		total += v
	}
	return total, nil
}
