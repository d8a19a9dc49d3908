// Package match pairs keypoint descriptors between two images using the
// nearest / second-nearest distance ratio test.
package match

import (
	"math"

	"github.com/pkg/errors"

	"panostitch/internal/config"
	"panostitch/internal/keypoint"
)

// ErrMatchInsufficient is returned by Check when too few pairs survive.
var ErrMatchInsufficient = errors.New("insufficient matches")

// Pair links feature A of the first image to feature B of the second.
type Pair struct {
	A    int     `json:"a"`
	B    int     `json:"b"`
	Dist float64 `json:"dist"` // descriptor distance to B
}

// Searcher finds, for every descriptor of a, the two nearest descriptors of b.
type Searcher interface {
	Nearest2(a, b [][]float64) []Neighbours
}

// Neighbours holds the two nearest candidates of one query. Second is -1
// when fewer than two candidates exist. Distances are squared.
type Neighbours struct {
	First, Second         int
	FirstDist, SecondDist float64
}

// NewSearcher returns the searcher selected by cfg.MatchIndex.
func NewSearcher(cfg *config.Config) Searcher {
	if cfg.MatchIndex == config.IndexKDTree {
		return KDTree{}
	}
	return Exhaustive{}
}

// Match returns the pairs passing the ratio test, ordered by A.
func Match(a, b []keypoint.Feature, cfg *config.Config) []Pair {
	if len(a) == 0 || len(b) < 2 {
		return nil
	}
	nn := NewSearcher(cfg).Nearest2(descriptors(a), descriptors(b))
	return ratioTest(nn, cfg.MatchRejectNextRatio)
}

// Check reports ErrMatchInsufficient when fewer than MatchMinSize pairs exist.
func Check(pairs []Pair, cfg *config.Config) error {
	if len(pairs) < cfg.MatchMinSize {
		return errors.Wrapf(ErrMatchInsufficient, "%d pairs, need %d", len(pairs), cfg.MatchMinSize)
	}
	return nil
}

func ratioTest(nn []Neighbours, ratio float64) []Pair {
	var pairs []Pair
	for i, n := range nn {
		if n.Second < 0 || n.SecondDist <= 0 {
			continue
		}
		d1, d2 := math.Sqrt(n.FirstDist), math.Sqrt(n.SecondDist)
		if d1 <= ratio*d2 {
			pairs = append(pairs, Pair{A: i, B: n.First, Dist: d1})
		}
	}
	return pairs
}

func descriptors(feats []keypoint.Feature) [][]float64 {
	out := make([][]float64, len(feats))
	for i, f := range feats {
		out[i] = f.Descriptor
	}
	return out
}

func sqDist(a, b []float64) float64 {
	var d float64
	for i := range a {
		v := a[i] - b[i]
		d += v * v
	}
	return d
}
