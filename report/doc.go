// Package report records the outcome of clustering runs.
//
// A Sink receives one Summary per run. TextSink appends the human-readable
// readme block, the sqlite subpackage keeps a queryable run table.
package report
