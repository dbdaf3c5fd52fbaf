// Package mmap maps cache files read-only into memory.
//
// A Mapping backs blobstore.LocalStore reads so that a cached distance
// matrix is decoded straight from the page cache. Access hints are passed to
// madvise(2) on Unix and ignored on Windows.
package mmap
