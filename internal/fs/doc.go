// Package fs abstracts the filesystem calls made by blobstore.LocalStore so
// tests can inject write, sync and close failures.
//
// Production code uses [Default]. Tests wrap it in a [FaultyFS].
package fs
