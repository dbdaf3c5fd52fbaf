package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/flowclust/matrix"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// Matrix returns a rows x cols matrix with values in [0, 1).
func (r *RNG) Matrix(rows, cols int) *matrix.Dense {
	m := matrix.New(rows, cols)
	r.FillUniformRange(m.Data(), 0, 1)
	return m
}

// Blobs draws perCluster Gaussian samples around each center.
// Rows are grouped by center; labels[i] is the index of the center row i was drawn from.
func (r *RNG) Blobs(centers [][]float32, perCluster int, spread float32) (*matrix.Dense, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dim := len(centers[0])
	m := matrix.New(len(centers)*perCluster, dim)
	labels := make([]int, m.Rows())

	for c, center := range centers {
		for k := range perCluster {
			i := c*perCluster + k
			row := m.Row(i)
			for j := range row {
				row[j] = center[j] + float32(r.rand.NormFloat64())*spread
			}
			labels[i] = c
		}
	}
	return m, labels
}

// Trajectories generates n 3-D polylines with the given number of steps,
// drawn from `groups` template curves plus Gaussian noise. Row i follows
// template i % groups; the returned labels record that template.
func (r *RNG) Trajectories(n, steps, groups int, noise float32) (*matrix.Dense, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type template struct{ origin, heading [3]float64 }
	templates := make([]template, groups)
	for g := range templates {
		theta := 2 * math.Pi * float64(g) / float64(groups)
		templates[g] = template{
			origin:  [3]float64{float64(g) * 2, 0, 0},
			heading: [3]float64{math.Cos(theta), math.Sin(theta), 0.1 * float64(g)},
		}
	}

	m := matrix.New(n, steps*3)
	labels := make([]int, n)
	for i := range n {
		g := i % groups
		t := templates[g]
		row := m.Row(i)
		for s := range steps {
			for d := range 3 {
				v := t.origin[d] + t.heading[d]*float64(s)
				row[s*3+d] = float32(v) + float32(r.rand.NormFloat64())*noise
			}
		}
		labels[i] = g
	}
	return m, labels
}

// SamePartition reports whether two labelings group the rows identically,
// ignoring the label values themselves.
func SamePartition(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ab := make(map[int]int)
	ba := make(map[int]int)
	for i := range a {
		if v, ok := ab[a[i]]; ok && v != b[i] {
			return false
		}
		if v, ok := ba[b[i]]; ok && v != a[i] {
			return false
		}
		ab[a[i]] = b[i]
		ba[b[i]] = a[i]
	}
	return true
}
