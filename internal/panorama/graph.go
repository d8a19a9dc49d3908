package panorama

import (
	"log"
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"panostitch/pkg/geometry"
)

// tieBreak separates otherwise equal path costs by pair order.
const tieBreak = 1e-12

// connectivity is the undirected image graph. Edge weights are 1/inliers, so
// the cheapest path follows the best-supported transforms.
type connectivity struct {
	n       int
	g       *simple.WeightedUndirectedGraph
	edges   map[[2]int]Edge
	inliers []int // total inliers per image
}

// newGraph is built from the complete, index-ordered edge list.
func newGraph(n int, edges []Edge) *connectivity {
	c := &connectivity{
		n:       n,
		g:       simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		edges:   make(map[[2]int]Edge, len(edges)),
		inliers: make([]int, n),
	}
	for i := 0; i < n; i++ {
		c.g.AddNode(simple.Node(i))
	}
	for k, e := range edges {
		w := 1/float64(e.Inliers) + tieBreak*float64(k)
		c.g.SetWeightedEdge(c.g.NewWeightedEdge(simple.Node(e.I), simple.Node(e.J), w))
		c.edges[[2]int{e.I, e.J}] = e
		c.inliers[e.I] += e.Inliers
		c.inliers[e.J] += e.Inliers
	}
	return c
}

func (c *connectivity) degree(i int) int {
	return c.g.From(int64(i)).Len()
}

// reference returns want when it names an image, otherwise the image with
// the most neighbours, then the most inliers, then the lowest index.
func (c *connectivity) reference(want int) int {
	if want >= 0 {
		if want < c.n {
			return want
		}
		log.Printf("Warning: reference image %d out of range, choosing automatically", want)
	}

	best := 0
	for i := 1; i < c.n; i++ {
		di, db := c.degree(i), c.degree(best)
		if di > db || (di == db && c.inliers[i] > c.inliers[best]) {
			best = i
		}
	}
	return best
}

// step returns the transform taking image `to` into the frame of image
// `from`, for adjacent images.
func (c *connectivity) step(from, to int) (geometry.Homography, bool) {
	if e, ok := c.edges[[2]int{from, to}]; ok {
		return e.H, true
	}
	if e, ok := c.edges[[2]int{to, from}]; ok {
		return e.H.Inverse()
	}
	return geometry.Homography{}, false
}

// transforms chains edge transforms along the cheapest path from ref to
// every image. Images without a path are returned as disconnected.
func (c *connectivity) transforms(ref int) ([]geometry.Homography, []int) {
	out := make([]geometry.Homography, c.n)
	var disconnected []int

	shortest := path.DijkstraFrom(c.g.Node(int64(ref)), c.g)
	for v := 0; v < c.n; v++ {
		if v == ref {
			out[v] = geometry.IdentityHomography()
			continue
		}
		nodes, _ := shortest.To(int64(v))
		if len(nodes) == 0 {
			disconnected = append(disconnected, v)
			continue
		}

		T := geometry.IdentityHomography()
		ok := true
		for k := 1; k < len(nodes) && ok; k++ {
			var h geometry.Homography
			h, ok = c.step(int(nodes[k-1].ID()), int(nodes[k].ID()))
			T = T.Mul(h)
		}
		if !ok {
			disconnected = append(disconnected, v)
			continue
		}
		out[v] = T.Normalize()
	}
	return out, disconnected
}
