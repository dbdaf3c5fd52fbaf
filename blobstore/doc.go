// Package blobstore stores the immutable blobs behind the distance-matrix
// cache.
//
// Built-in implementations:
//
//   - LocalStore: a directory on the local filesystem, read through mmap
//   - MemoryStore: an in-process map, used by tests and short-lived runs
//   - minio.Store and s3.Store: object storage backends
//
// Implementations must be safe for concurrent use.
package blobstore
