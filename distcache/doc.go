// Package distcache persists full pairwise distance matrices so repeated
// runs over the same dataset and metric skip the O(N²) computation.
//
// Entries are content-addressed: the key combines the dataset fingerprint
// with the metric, so a changed dataset never reads a stale matrix. Matrices
// are stored as whitespace-separated text, one row per line, optionally
// compressed with LZ4 or Zstandard, in any blobstore.Store. A decoded-matrix
// LRU sits in front of the store, and an optional Index records committed
// entries so concurrent writers never expose a partial blob.
package distcache
