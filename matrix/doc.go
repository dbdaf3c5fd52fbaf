// Package matrix provides the row-major float32 matrix shared by every
// flowclust stage.
//
// A Dense holds N trajectories as rows, each a flattened sequence of
// per-step coordinates. Rows are exposed as slice views so distance and
// clustering kernels work on contiguous memory without copying.
//
// Conversion helpers bridge to gonum for the linear-algebra heavy stages
// (SVD, back-projection).
package matrix
