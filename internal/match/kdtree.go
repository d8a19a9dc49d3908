package match

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree answers exact 2-NN queries from a k-d tree built over the
// candidate descriptors. Results equal Exhaustive, including tie order.
type KDTree struct{}

// Nearest2 implements Searcher.
func (KDTree) Nearest2(a, b [][]float64) []Neighbours {
	// The tree drops a lone result as if it were its sentinel.
	if len(b) < 2 {
		return Exhaustive{}.Nearest2(a, b)
	}
	out := make([]Neighbours, len(a))

	pts := make(descPoints, len(b))
	for j, d := range b {
		pts[j] = descPoint{idx: j, v: d}
	}
	tree := kdtree.New(pts, false)

	for i, q := range a {
		k := newTwoKeeper()
		tree.NearestSet(k, descPoint{idx: -1, v: q})
		out[i] = k.neighbours()
	}
	return out
}

// descPoint is a descriptor that remembers its position in the input slice.
type descPoint struct {
	idx int
	v   []float64
}

func (p descPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.v[d] - c.(descPoint).v[d]
}

func (p descPoint) Dims() int { return len(p.v) }

// Distance is squared Euclidean, as the tree's pruning expects.
func (p descPoint) Distance(c kdtree.Comparable) float64 {
	return sqDist(p.v, c.(descPoint).v)
}

type descPoints []descPoint

func (p descPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p descPoints) Len() int                      { return len(p) }
func (p descPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}
func (p descPoints) Pivot(d kdtree.Dim) int {
	pl := descPlane{descPoints: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

// descPlane sorts descriptors along one dimension for pivot selection.
type descPlane struct {
	descPoints
	dim kdtree.Dim
}

func (p descPlane) Less(i, j int) bool {
	return p.descPoints[i].v[p.dim] < p.descPoints[j].v[p.dim]
}
func (p descPlane) Swap(i, j int) {
	p.descPoints[i], p.descPoints[j] = p.descPoints[j], p.descPoints[i]
}
func (p descPlane) Slice(start, end int) kdtree.SortSlicer {
	return descPlane{descPoints: p.descPoints[start:end], dim: p.dim}
}

// twoKeeper retains the two best candidates ordered by (distance, index),
// which reproduces the exhaustive scan's tie order. The slice is kept
// sorted best first; heap order is worst first.
type twoKeeper struct {
	best []kdtree.ComparableDist
}

func newTwoKeeper() *twoKeeper {
	return &twoKeeper{best: make([]kdtree.ComparableDist, 0, 2)}
}

func better(a, b kdtree.ComparableDist) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Comparable.(descPoint).idx < b.Comparable.(descPoint).idx
}

// Keep inserts c if it ranks among the two best.
func (k *twoKeeper) Keep(c kdtree.ComparableDist) {
	switch {
	case len(k.best) == 0:
		k.best = append(k.best, c)
	case better(c, k.best[0]):
		if len(k.best) == 2 {
			k.best[1] = k.best[0]
		} else {
			k.best = append(k.best, k.best[0])
		}
		k.best[0] = c
	case len(k.best) == 1:
		k.best = append(k.best, c)
	case better(c, k.best[1]):
		k.best[1] = c
	}
}

// Max returns the pruning bound: the second-best distance, or +Inf while
// fewer than two candidates are held.
func (k *twoKeeper) Max() kdtree.ComparableDist {
	if len(k.best) < 2 {
		return kdtree.ComparableDist{Dist: math.Inf(1)}
	}
	return k.best[1]
}

func (k *twoKeeper) Len() int           { return len(k.best) }
func (k *twoKeeper) Less(i, j int) bool { return better(k.best[j], k.best[i]) }
func (k *twoKeeper) Swap(i, j int)      { k.best[i], k.best[j] = k.best[j], k.best[i] }
func (k *twoKeeper) Push(x interface{}) { k.best = append(k.best, x.(kdtree.ComparableDist)) }
func (k *twoKeeper) Pop() interface{} {
	last := k.best[len(k.best)-1]
	k.best = k.best[:len(k.best)-1]
	return last
}

func (k *twoKeeper) neighbours() Neighbours {
	n := Neighbours{First: -1, Second: -1, FirstDist: math.Inf(1), SecondDist: math.Inf(1)}
	if len(k.best) > 0 {
		n.First, n.FirstDist = k.best[0].Comparable.(descPoint).idx, k.best[0].Dist
	}
	if len(k.best) > 1 {
		n.Second, n.SecondDist = k.best[1].Comparable.(descPoint).idx, k.best[1].Dist
	}
	return n
}
