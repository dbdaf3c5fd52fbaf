// Package resource bounds the two resources a clustering run can exhaust:
// memory for dense N x N distance matrices and IO bandwidth for persisting
// them to a blob store.
package resource
