package panorama

import (
	"context"
	"log"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"panostitch/internal/alignment"
	pimage "panostitch/internal/image"
	"panostitch/internal/keypoint"
	"panostitch/internal/match"
	"panostitch/pkg/geometry"
)

// errFoldedTransform is reported for pair transforms that fold or mirror the
// warped image.
var errFoldedTransform = errors.New("warped image is not a convex, orientation-preserving quad")

// Edge is an accepted pairwise transform. H maps pixels of image J into the
// frame of image I, with I < J.
type Edge struct {
	I, J    int
	H       geometry.Homography
	Inliers int
	Error   float64 // mean inlier reprojection error, pixels
}

// PairResult records the outcome of one candidate pair.
type PairResult struct {
	I, J    int
	Matches int
	Inliers int
	Edge    *Edge // nil unless Inliers >= ConnectedThres
	Err     error
}

// candidatePairs lists the image pairs to try, in a fixed order.
func (s *Stitcher) candidatePairs(n int) [][2]int {
	var pairs [][2]int
	if s.cfg.Pano {
		for i := 0; i+1 < n; i++ {
			pairs = append(pairs, [2]int{i, i + 1})
		}
		return pairs
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}

// matchPairs evaluates every candidate pair on a pool of workers. Each
// worker writes only its own slot, so the result is ordered by pair index
// regardless of scheduling.
func (s *Stitcher) matchPairs(ctx context.Context, imgs []*pimage.Image, feats [][]keypoint.Feature) []PairResult {
	pairs := s.candidatePairs(len(imgs))
	results := make([]PairResult, len(pairs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < runtime.NumCPU(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				i, j := pairs[k][0], pairs[k][1]
				results[k] = s.matchPair(k, i, j, imgs[j], feats[i], feats[j])
			}
		}()
	}

	for k := range pairs {
		if ctx.Err() != nil {
			break
		}
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	for _, r := range results {
		switch {
		case r.Err != nil:
			log.Printf("Warning: pair %d-%d: %v", r.I, r.J, r.Err)
		case r.Edge == nil && s.cfg.Debug:
			log.Printf("pair %d-%d: %d inliers, below %d", r.I, r.J, r.Inliers, s.cfg.ConnectedThres)
		case s.cfg.Debug:
			log.Printf("pair %d-%d: %d matches, %d inliers, error %.2f", r.I, r.J, r.Matches, r.Inliers, r.Edge.Error)
		}
	}
	return results
}

// matchPair estimates the transform taking image j onto image i. The
// estimator is seeded from the pair index so results do not depend on
// worker scheduling.
func (s *Stitcher) matchPair(k, i, j int, imgJ *pimage.Image, fi, fj []keypoint.Feature) PairResult {
	res := PairResult{I: i, J: j}

	pairs := match.Match(fi, fj, s.cfg)
	res.Matches = len(pairs)
	if err := match.Check(pairs, s.cfg); err != nil {
		res.Err = err
		return res
	}

	src := make([]geometry.Point2D, len(pairs))
	dst := make([]geometry.Point2D, len(pairs))
	for n, p := range pairs {
		src[n] = fj[p.B].Coord
		dst[n] = fi[p.A].Coord
	}

	est, err := alignment.NewEstimator(s.cfg, s.cfg.Seed+int64(k))
	if err != nil {
		res.Err = err
		return res
	}
	fit, err := est.Estimate(src, dst)
	if err != nil {
		res.Err = err
		return res
	}
	res.Inliers = len(fit.Inliers)

	if !preservesShape(fit.H, imgJ.Width, imgJ.Height) {
		res.Err = errFoldedTransform
		return res
	}
	if res.Inliers < s.cfg.ConnectedThres {
		return res
	}

	inSrc := make([]geometry.Point2D, len(fit.Inliers))
	inDst := make([]geometry.Point2D, len(fit.Inliers))
	for n, idx := range fit.Inliers {
		inSrc[n] = src[idx]
		inDst[n] = dst[idx]
	}
	res.Edge = &Edge{
		I:       i,
		J:       j,
		H:       fit.H,
		Inliers: res.Inliers,
		Error:   alignment.MeanError(inSrc, inDst, fit.H),
	}
	return res
}

// preservesShape reports whether the image outline stays a convex quad with
// its original winding after warping by h.
func preservesShape(h geometry.Homography, w, hgt int) bool {
	corners, ok := h.Corners(w, hgt)
	if !ok {
		return false
	}
	return geometry.IsConvex(corners) && geometry.SignedArea(corners) > 0
}
