package match

import (
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// Exhaustive compares every query against every candidate. Queries are
// split across CPUs; each query writes only its own slot.
type Exhaustive struct{}

// Nearest2 implements Searcher.
func (Exhaustive) Nearest2(a, b [][]float64) []Neighbours {
	out := make([]Neighbours, len(a))
	parallel.Line(len(a), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = nearest2(a[i], b)
		}
	})
	return out
}

// nearest2 scans b in index order; strict comparisons keep the lower index
// on equal distances.
func nearest2(q []float64, b [][]float64) Neighbours {
	n := Neighbours{First: -1, Second: -1, FirstDist: math.Inf(1), SecondDist: math.Inf(1)}
	for j, d := range b {
		dist := sqDist(q, d)
		switch {
		case dist < n.FirstDist:
			n.Second, n.SecondDist = n.First, n.FirstDist
			n.First, n.FirstDist = j, dist
		case dist < n.SecondDist:
			n.Second, n.SecondDist = j, dist
		}
	}
	return n
}
