// Package cache holds decoded distance matrices in memory in front of the
// blob-backed distance cache.
//
// Entries are charged by their float32 footprint against both the cache
// capacity and, when configured, the process-wide resource controller.
package cache
