package distance

import "math"

// DTW computes the dynamic time warping distance between two vertex sequences.
//
// The local cost is the Euclidean distance between 3-D vertices and the
// recurrence is D[i][j] = cost + min(D[i-1][j], D[i][j-1], D[i-1][j-1]).
// Only two rows of the DP matrix are kept, so memory is O(len(b)).
func DTW(a, b []float32) float32 {
	n := len(a) / VertexDim
	m := len(b) / VertexDim
	if n == 0 || m == 0 {
		return 0
	}

	inf := float32(math.Inf(1))
	prev := make([]float32, m+1)
	curr := make([]float32, m+1)
	for j := 1; j <= m; j++ {
		prev[j] = inf
	}

	for i := 1; i <= n; i++ {
		curr[0] = inf
		va := a[(i-1)*VertexDim : i*VertexDim]
		for j := 1; j <= m; j++ {
			vb := b[(j-1)*VertexDim : j*VertexDim]
			best := min(prev[j], curr[j-1], prev[j-1])
			curr[j] = Euclidean(va, vb) + best
		}
		prev, curr = curr, prev
	}
	return prev[m]
}
