// Package observability exports flowclust run metrics to Prometheus.
package observability
