// Package distance provides trajectory dissimilarity measures.
//
// A trajectory is one flattened row of a coordinate matrix. Some metrics
// treat the row as a plain vector (Euclidean, Manhattan, Chebyshev, Cosine);
// the vertex metrics (MeanPointwise, DTW) read it as a sequence of 3-D
// vertices and require the row length to be a multiple of 3.
//
// # Supported Metrics
//
//   - MetricEuclidean: L2 norm of the difference (default, option 0)
//   - MetricManhattan: L1 norm of the difference
//   - MetricChebyshev: L-infinity norm of the difference
//   - MetricCosine: angle between the two rows in radians
//   - MetricMeanPointwise: mean Euclidean distance between matching vertices
//   - MetricDTW: dynamic time warping over vertices
//
// # Usage
//
//	d := distance.Euclidean(a, b)
//
//	diss, _ := distance.Prepare(distance.MetricCosine, data)
//	v := diss.Distance(center, row)
package distance
