// Package testutil provides deterministic fixtures for flowclust tests and
// benchmarks.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	data := rng.Matrix(100, 12)                       // uniform [0, 1)
//	data, labels := rng.Blobs(centers, 20, 0.1)       // Gaussian blobs
//	data, labels := rng.Trajectories(60, 16, 3, 0.05) // 3-D polylines
//
// # Partition Comparison
//
//	ok := testutil.SamePartition(labelsA, labelsB)
package testutil
