// Package alignment estimates geometric transforms between matched point
// sets with RANSAC.
package alignment

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"

	"panostitch/internal/config"
	"panostitch/pkg/geometry"
)

var (
	// ErrRansacFailure is returned when no model gathers enough inliers.
	ErrRansacFailure = errors.New("RANSAC failed to find enough inliers")

	// ErrInsufficientCorrespondences is returned when there are fewer
	// correspondences than a minimal sample needs.
	ErrInsufficientCorrespondences = errors.New("too few correspondences for model")
)

// maxRefits bounds the refit and reclassify rounds after sampling.
const maxRefits = 10

// maxRedraws bounds how often a repeated minimal subset is redrawn within
// one iteration.
const maxRedraws = 10

// Estimator runs RANSAC for one model. Rand supplies all randomness, so two
// estimators with equally seeded sources give identical results.
type Estimator struct {
	Model             Model
	Iterations        int
	Threshold         float64 // inlier reprojection distance, pixels
	MinInliers        int
	MinInlierFraction float64
	Refine            bool
	Rand              *rand.Rand
}

// Result is the best model found.
type Result struct {
	H          geometry.Homography
	Inliers    []int // indices into the correspondence slices, ascending
	Iterations int   // minimal fits attempted
}

// NewEstimator builds an estimator from cfg with its own seeded source.
func NewEstimator(cfg *config.Config, seed int64) (*Estimator, error) {
	model, err := ParseModel(cfg.EffectiveModel())
	if err != nil {
		return nil, err
	}
	return &Estimator{
		Model:             model,
		Iterations:        cfg.RansacIterations,
		Threshold:         cfg.RansacInlierThres,
		MinInliers:        model.MinSamples(),
		MinInlierFraction: cfg.RansacMinInlierFraction,
		Refine:            cfg.RansacRefine,
		Rand:              rand.New(rand.NewSource(seed)),
	}, nil
}

// Estimate fits the model mapping src[i] onto dst[i].
func (e *Estimator) Estimate(src, dst []geometry.Point2D) (*Result, error) {
	if len(src) != len(dst) {
		return nil, errors.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	k := e.Model.MinSamples()
	if n < k {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences, "%s needs %d, got %d", e.Model, k, n)
	}

	total := combinations(n, k)
	seen := make(map[[4]int]bool)
	sample := make([]geometry.Point2D, k)
	target := make([]geometry.Point2D, k)

	var (
		best   []int
		bestH  geometry.Homography
		result Result
	)
	for iter := 0; iter < e.Iterations; iter++ {
		if total > 0 && len(seen) >= total {
			break
		}
		indices, ok := e.draw(n, k, seen)
		if !ok {
			continue
		}
		result.Iterations++

		for i, idx := range indices {
			sample[i] = src[idx]
			target[i] = dst[idx]
		}
		H, err := e.Model.fitMinimal(sample, target)
		if err != nil || !finite(H) {
			continue
		}

		inliers := e.inliers(H, src, dst)
		if len(inliers) > len(best) {
			best = inliers
			bestH = H
		}
	}

	if !e.enough(len(best), n) {
		return nil, errors.Wrapf(ErrRansacFailure, "best model has %d of %d inliers", len(best), n)
	}

	if e.Refine && len(best) > k {
		bestH, best = e.refine(bestH, best, src, dst)
	}

	result.H = bestH.Normalize()
	result.Inliers = best
	return &result, nil
}

// refine alternates a least-squares fit over the current inliers with
// reclassification of all correspondences until the inlier set is stable.
// The refit replaces the sampled model when it still has enough inliers
// and reprojects the inliers both models share at least as accurately.
func (e *Estimator) refine(H geometry.Homography, inliers []int, src, dst []geometry.Point2D) (geometry.Homography, []int) {
	curH, cur := H, inliers
	for r := 0; r < maxRefits; r++ {
		fit, err := e.Model.fitAll(subset(src, cur), subset(dst, cur))
		if err != nil || !finite(fit) {
			break
		}
		next := e.inliers(fit, src, dst)
		if !e.enough(len(next), len(src)) {
			break
		}
		stable := equalIndices(cur, next)
		curH, cur = fit, next
		if stable {
			break
		}
	}

	shared := intersect(inliers, cur)
	if len(shared) == 0 {
		return H, inliers
	}
	sSrc, sDst := subset(src, shared), subset(dst, shared)
	if MeanError(sSrc, sDst, curH) <= MeanError(sSrc, sDst, H) {
		return curH, cur
	}
	return H, inliers
}

func (e *Estimator) enough(inliers, n int) bool {
	return inliers >= e.MinInliers && inliers >= e.Model.MinSamples() &&
		float64(inliers) >= e.MinInlierFraction*float64(n)
}

func subset(pts []geometry.Point2D, idx []int) []geometry.Point2D {
	out := make([]geometry.Point2D, len(idx))
	for i, k := range idx {
		out[i] = pts[k]
	}
	return out
}

func equalIndices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// intersect merges two ascending index lists.
func intersect(a, b []int) []int {
	var out []int
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// draw picks k distinct indices whose subset has not been tried yet.
func (e *Estimator) draw(n, k int, seen map[[4]int]bool) ([]int, bool) {
	for r := 0; r <= maxRedraws; r++ {
		indices := e.Rand.Perm(n)[:k]
		key := subsetKey(indices)
		if !seen[key] {
			seen[key] = true
			return indices, true
		}
	}
	return nil, false
}

func (e *Estimator) inliers(H geometry.Homography, src, dst []geometry.Point2D) []int {
	var inliers []int
	for i := range src {
		p, ok := H.Apply(src[i])
		if !ok {
			continue
		}
		if p.Distance(dst[i]) < e.Threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// subsetKey is the sorted index tuple, padded with -1.
func subsetKey(indices []int) [4]int {
	key := [4]int{-1, -1, -1, -1}
	copy(key[:], indices)
	sort.Ints(key[:len(indices)])
	return key
}

// combinations returns C(n, k), or 0 when it is too large to enumerate.
func combinations(n, k int) int {
	c := 1.0
	for i := 0; i < k; i++ {
		c = c * float64(n-i) / float64(i+1)
	}
	if c > 1<<24 {
		return 0
	}
	return int(math.Round(c))
}
