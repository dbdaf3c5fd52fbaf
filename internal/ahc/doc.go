// Package ahc implements agglomerative hierarchical clustering with average
// linkage over a precomputed pairwise distance matrix.
//
// Nodes live in an arena indexed by id. Leaves take ids 0..N-1 and every
// merge appends a node with the next id, so ids are never reused and the
// merge history can be replayed. The live pair list is scanned linearly for
// its minimum; the first minimum in list order wins.
package ahc
