package ahc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/flowclust/internal/parallel"
	"github.com/hupe1980/flowclust/matrix"
)

var (
	// ErrInvalidK is returned when k < 1.
	ErrInvalidK = errors.New("ahc: k must be at least 1")
	// ErrTooManyClusters is returned when k exceeds the number of leaves.
	ErrTooManyClusters = errors.New("ahc: k exceeds number of samples")
	// ErrNotSquare is returned for distance matrices that are not N x N.
	ErrNotSquare = errors.New("ahc: distance matrix is not square")
	// ErrBrokenPartition is returned when live nodes do not cover every row exactly once.
	ErrBrokenPartition = errors.New("ahc: live nodes do not partition the rows")
)

// parallelLinkage is the member-pair count above which the linkage sum is
// split across workers.
const parallelLinkage = 1 << 14

// Node is an arena entry. Leaves have Left == Right == -1.
type Node struct {
	ID          int
	Left, Right int
	Members     *roaring.Bitmap
}

// Size returns the number of rows in the node.
func (n *Node) Size() int { return int(n.Members.GetCardinality()) }

// Pair is a live pair of nodes with its linkage distance. A < B.
type Pair struct {
	A, B     int
	Distance float32
}

// Merge records one agglomeration step.
type Merge struct {
	Left, Right int
	Node        int
	Distance    float32
	Size        int
}

// Cluster is a terminal node.
type Cluster struct {
	Node    int
	Members []int
}

// Size returns the number of rows in the cluster.
func (c Cluster) Size() int { return len(c.Members) }

// Result is the cut of the hierarchy at k clusters.
type Result struct {
	// Clusters are ordered by ascending size, then ascending node id.
	Clusters []Cluster
	Merges   []Merge
}

// Options configures Cluster.
type Options struct {
	Workers int
	// OnMerge is called after every merge step.
	OnMerge func(Merge)
}

// Pairwise builds the symmetric N x N matrix of fn(i, j) with a zero diagonal.
// Rows of the upper triangle are computed in parallel.
func Pairwise(ctx context.Context, n, workers int, fn func(i, j int) float32) (*matrix.Dense, error) {
	d := matrix.New(n, n)
	err := parallel.For(ctx, n, workers, func(_, lo, hi int) error {
		for i := lo; i < hi; i++ {
			row := d.Row(i)
			for j := i + 1; j < n; j++ {
				row[j] = fn(i, j)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range n {
		for j := i + 1; j < n; j++ {
			d.Set(j, i, d.At(i, j))
		}
	}
	return d, nil
}

type tree struct {
	dist    *matrix.Dense
	workers int
	nodes   []*Node
	live    []bool
	pairs   []Pair
}

// Run merges the N leaves of dist until k nodes remain.
func Run(ctx context.Context, dist *matrix.Dense, k int, opts Options) (*Result, error) {
	n, cols := dist.Dims()
	if n != cols {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, n, cols)
	}
	if k < 1 {
		return nil, ErrInvalidK
	}
	if k > n {
		return nil, fmt.Errorf("%w: k=%d, n=%d", ErrTooManyClusters, k, n)
	}

	t := newTree(dist, parallel.Workers(opts.Workers))
	merges := make([]Merge, 0, n-k)

	for liveCount := n; liveCount > k; liveCount-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := t.mergeClosest(ctx)
		if err != nil {
			return nil, err
		}
		merges = append(merges, m)
		if opts.OnMerge != nil {
			opts.OnMerge(m)
		}
	}

	return &Result{Clusters: t.clusters(), Merges: merges}, nil
}

func newTree(dist *matrix.Dense, workers int) *tree {
	n := dist.Rows()
	t := &tree{
		dist:    dist,
		workers: workers,
		nodes:   make([]*Node, n, 2*n-1),
		live:    make([]bool, n, 2*n-1),
		pairs:   make([]Pair, 0, n*(n-1)/2),
	}

	for i := range n {
		t.nodes[i] = &Node{ID: i, Left: -1, Right: -1, Members: roaring.BitmapOf(uint32(i))}
		t.live[i] = true
	}
	for i := range n {
		row := dist.Row(i)
		for j := i + 1; j < n; j++ {
			t.pairs = append(t.pairs, Pair{A: i, B: j, Distance: row[j]})
		}
	}
	return t
}

// closest returns the index of the first pair with the minimum distance.
func (t *tree) closest() int {
	best, bestDist := -1, float32(math.Inf(1))
	for i, p := range t.pairs {
		if p.Distance < bestDist {
			best, bestDist = i, p.Distance
		}
	}
	if best < 0 && len(t.pairs) > 0 {
		// Every distance is +Inf or NaN.
		best = 0
	}
	return best
}

func (t *tree) mergeClosest(ctx context.Context) (Merge, error) {
	p := t.pairs[t.closest()]
	left, right := t.nodes[p.A], t.nodes[p.B]

	node := &Node{
		ID:      len(t.nodes),
		Left:    left.ID,
		Right:   right.ID,
		Members: roaring.Or(left.Members, right.Members),
	}
	t.nodes = append(t.nodes, node)
	t.live = append(t.live, true)
	t.live[left.ID] = false
	t.live[right.ID] = false

	kept := t.pairs[:0]
	for _, q := range t.pairs {
		if t.live[q.A] && t.live[q.B] {
			kept = append(kept, q)
		}
	}
	t.pairs = kept

	members := node.Members.ToArray()
	for id, alive := range t.live[:node.ID] {
		if !alive {
			continue
		}
		d, err := t.linkage(ctx, members, t.nodes[id].Members.ToArray())
		if err != nil {
			return Merge{}, err
		}
		t.pairs = append(t.pairs, Pair{A: id, B: node.ID, Distance: d})
	}

	return Merge{
		Left:     left.ID,
		Right:    right.ID,
		Node:     node.ID,
		Distance: p.Distance,
		Size:     node.Size(),
	}, nil
}

// linkage is the mean distance over every member pair of a and b.
func (t *tree) linkage(ctx context.Context, a, b []uint32) (float32, error) {
	sumRow := func(i int) float64 {
		row := t.dist.Row(int(a[i]))
		var s float64
		for _, j := range b {
			s += float64(row[j])
		}
		return s
	}

	var sum float64
	if len(a)*len(b) >= parallelLinkage {
		var err error
		if sum, err = parallel.Sum(ctx, len(a), t.workers, sumRow); err != nil {
			return 0, err
		}
	} else {
		for i := range a {
			sum += sumRow(i)
		}
	}
	return float32(sum / float64(len(a)*len(b))), nil
}

func (t *tree) clusters() []Cluster {
	var out []Cluster
	for id, alive := range t.live {
		if alive {
			out = append(out, newCluster(t.nodes[id]))
		}
	}
	sortClusters(out)
	return out
}

func newCluster(n *Node) Cluster {
	members := make([]int, 0, n.Size())
	it := n.Members.Iterator()
	for it.HasNext() {
		members = append(members, int(it.Next()))
	}
	return Cluster{Node: n.ID, Members: members}
}

func sortClusters(cs []Cluster) {
	slices.SortFunc(cs, func(a, b Cluster) int {
		if a.Size() != b.Size() {
			return a.Size() - b.Size()
		}
		return a.Node - b.Node
	})
}

// Replay rebuilds the terminal clusters of n leaves from a merge history.
func Replay(n int, merges []Merge) ([]Cluster, error) {
	nodes := make(map[int]*Node, n)
	for i := range n {
		nodes[i] = &Node{ID: i, Left: -1, Right: -1, Members: roaring.BitmapOf(uint32(i))}
	}

	for _, m := range merges {
		left, lok := nodes[m.Left]
		right, rok := nodes[m.Right]
		if !lok || !rok {
			return nil, fmt.Errorf("ahc: merge into %d references dead node", m.Node)
		}
		if _, dup := nodes[m.Node]; dup || m.Node < n {
			return nil, fmt.Errorf("ahc: node id %d reused", m.Node)
		}
		delete(nodes, m.Left)
		delete(nodes, m.Right)
		nodes[m.Node] = &Node{ID: m.Node, Left: m.Left, Right: m.Right, Members: roaring.Or(left.Members, right.Members)}
	}

	out := make([]Cluster, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, newCluster(node))
	}
	sortClusters(out)
	return out, nil
}

// CheckPartition verifies that clusters cover 0..n-1 exactly once.
func CheckPartition(n int, clusters []Cluster) error {
	seen := roaring.New()
	total := 0
	for _, c := range clusters {
		for _, m := range c.Members {
			seen.Add(uint32(m))
		}
		total += c.Size()
	}

	if total != n || int(seen.GetCardinality()) != n {
		return fmt.Errorf("%w: %d members, %d distinct, want %d", ErrBrokenPartition, total, seen.GetCardinality(), n)
	}
	if n > 0 && (seen.Minimum() != 0 || seen.Maximum() != uint32(n-1)) {
		return fmt.Errorf("%w: members outside [0, %d)", ErrBrokenPartition, n)
	}
	return nil
}
