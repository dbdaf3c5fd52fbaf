// Package postprocess turns raw cluster assignments into the reported form:
// dense ids ordered by population, balanced entropy, representative rows and
// centroids in the original coordinate space.
package postprocess

import (
	"math"
	"slices"

	"github.com/hupe1980/flowclust/matrix"
)

// Representative identifies the row closest to or furthest from its cluster center.
type Representative struct {
	Row     int
	Cluster int
}

// MeanLine is a cluster centroid in original coordinates.
type MeanLine struct {
	Coordinates []float32
	Cluster     int
}

// Input is a raw clustering. Cluster indices are positions in Counts.
type Input struct {
	Assignments []int
	Counts      []int
	// Members lists each cluster's rows in the order representatives are scanned.
	Members [][]int
	Centers *matrix.Dense

	// Distance measures a center against a data row.
	Distance func(center []float32, row int) float32
	// Project maps every center row to original coordinates. Nil means identity.
	Project func(centers *matrix.Dense) *matrix.Dense
}

// Output is the renumbered clustering.
type Output struct {
	// Groups is the number of non-empty clusters.
	Groups int
	// Assignments holds the dense id of every row.
	Assignments []int
	// Sizes holds the size of the cluster of every row.
	Sizes          []int
	Entropy        float64
	EntropyDefined bool
	Closest        []Representative
	Furthest       []Representative
	MeanLines      []MeanLine
}

// Process renumbers in and derives every reported quantity.
func Process(in Input) *Output {
	ids, groups := Renumber(in.Counts)
	assign, sizes := Relabel(in.Assignments, in.Counts, ids)
	entropy, ok := BalancedEntropy(in.Counts, len(in.Assignments))
	closest, furthest := Representatives(in.Centers, in.Members, ids, in.Distance)

	return &Output{
		Groups:         groups,
		Assignments:    assign,
		Sizes:          sizes,
		Entropy:        entropy,
		EntropyDefined: ok,
		Closest:        closest,
		Furthest:       furthest,
		MeanLines:      MeanLines(in.Centers, ids, in.Project),
	}
}

// Renumber maps every raw cluster index to a dense id. Ids increase with
// population; equal populations keep raw index order. Empty clusters map to
// -1 and are not counted in groups.
func Renumber(counts []int) (ids []int, groups int) {
	order := make([]int, 0, len(counts))
	for c, n := range counts {
		if n > 0 {
			order = append(order, c)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return counts[a] - counts[b]
	})

	ids = make([]int, len(counts))
	for c := range ids {
		ids[c] = -1
	}
	for id, c := range order {
		ids[c] = id
	}
	return ids, len(order)
}

// Relabel rewrites raw assignments to dense ids and reports each row's cluster size.
func Relabel(assign, counts, ids []int) (group, sizes []int) {
	group = make([]int, len(assign))
	sizes = make([]int, len(assign))
	for i, c := range assign {
		group[i] = ids[c]
		sizes[i] = counts[c]
	}
	return group, sizes
}

// BalancedEntropy returns -sum(p*log2 p)/log2(groups) over non-empty clusters.
// With one or zero groups the value is undefined and ok is false.
func BalancedEntropy(counts []int, n int) (entropy float64, ok bool) {
	groups := 0
	for _, c := range counts {
		if c > 0 {
			groups++
		}
	}
	if groups <= 1 || n <= 0 {
		return 0, false
	}

	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(groups)), true
}

// Representatives scans every non-empty cluster and returns its closest and
// furthest member, indexed by dense id. Ties go to the first member in list order.
func Representatives(centers *matrix.Dense, members [][]int, ids []int, dist func(center []float32, row int) float32) (closest, furthest []Representative) {
	groups := 0
	for _, id := range ids {
		groups = max(groups, id+1)
	}
	closest = make([]Representative, groups)
	furthest = make([]Representative, groups)

	for c, rows := range members {
		id := ids[c]
		if id < 0 || len(rows) == 0 {
			continue
		}

		center := centers.Row(c)
		near, far := float32(math.Inf(1)), float32(-1)
		for _, i := range rows {
			d := dist(center, i)
			if d < near {
				near = d
				closest[id] = Representative{Row: i, Cluster: id}
			}
			if d > far {
				far = d
				furthest[id] = Representative{Row: i, Cluster: id}
			}
		}
	}
	return closest, furthest
}

// MeanLines returns the centroid of every non-empty cluster, indexed by dense id.
func MeanLines(centers *matrix.Dense, ids []int, project func(*matrix.Dense) *matrix.Dense) []MeanLine {
	groups := 0
	for _, id := range ids {
		groups = max(groups, id+1)
	}
	if project != nil {
		centers = project(centers)
	}

	out := make([]MeanLine, groups)
	for c, id := range ids {
		if id < 0 {
			continue
		}
		out[id] = MeanLine{Coordinates: slices.Clone(centers.Row(c)), Cluster: id}
	}
	return out
}

// Centroids returns the mean of each member list over the rows of data.
func Centroids(data *matrix.Dense, members [][]int) *matrix.Dense {
	dim := data.Cols()
	out := matrix.New(len(members), dim)
	sum := make([]float64, dim)

	for c, rows := range members {
		if len(rows) == 0 {
			continue
		}
		clear(sum)
		for _, i := range rows {
			for j, v := range data.Row(i) {
				sum[j] += float64(v)
			}
		}
		center := out.Row(c)
		for j := range center {
			center[j] = float32(sum[j] / float64(len(rows)))
		}
	}
	return out
}
