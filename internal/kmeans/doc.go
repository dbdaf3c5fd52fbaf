// Package kmeans implements Lloyd's k-means over trajectory rows.
//
// The engine runs over either raw coordinates with a pluggable
// dissimilarity or over PCA-reduced coordinates with the Euclidean norm.
// Assignment is data-parallel with per-worker partial accumulators that are
// merged in worker order; the update step uses a parallel max-reduction of
// center displacement.
//
// Iteration stops at the first of: relative change of the maximum
// displacement below 1%, MaxIterations iterations, or maximum displacement
// at or below 0.01.
package kmeans
