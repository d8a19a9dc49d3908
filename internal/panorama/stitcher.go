// Package panorama composes several overlapping photographs into one image.
//
// Stitch detects keypoints in every input, estimates pairwise transforms,
// chains them through a connectivity graph towards a reference image and
// blends every connected image onto a shared canvas.
package panorama

import (
	"context"
	"image"
	"log"
	"sync"

	"github.com/pkg/errors"

	"panostitch/internal/config"
	pimage "panostitch/internal/image"
	"panostitch/internal/keypoint"
	"panostitch/pkg/geometry"
)

var (
	// ErrNoConnectedImages is returned when nothing can be placed on the
	// canvas, such as for an empty input.
	ErrNoConnectedImages = errors.New("no connected images")

	// ErrCanvasTooLarge is returned when the transforms spread the images
	// over an implausibly large area.
	ErrCanvasTooLarge = errors.New("output canvas too large")
)

// Stitcher runs the stitching pipeline with a fixed configuration.
type Stitcher struct {
	cfg *config.Config
}

// NewStitcher returns a stitcher for cfg. cfg must have been validated.
func NewStitcher(cfg *config.Config) *Stitcher {
	return &Stitcher{cfg: cfg}
}

// Result is a composed panorama and the data it was derived from.
type Result struct {
	Image    *pimage.Image
	Coverage []bool // per output pixel, true where at least one input contributed

	// Offset is the position of the reference image origin in Image.
	Offset    geometry.Point2D
	Reference int

	// Transforms map input pixels into the reference frame. Entries of
	// disconnected images are zero.
	Transforms []geometry.Homography

	Pairs        []PairResult
	Edges        []Edge
	Disconnected []int
	Features     [][]keypoint.Feature

	// Crop is the kept rectangle of the uncropped canvas; the full canvas
	// when cropping is off.
	Crop image.Rectangle
}

// Connected reports whether image i was placed on the canvas.
func (r *Result) Connected(i int) bool {
	for _, d := range r.Disconnected {
		if d == i {
			return false
		}
	}
	return true
}

// Stitch composes imgs. Image order matters only in pano mode, where
// neighbours in the slice are assumed to overlap.
func (s *Stitcher) Stitch(ctx context.Context, imgs []*pimage.Image) (*Result, error) {
	if len(imgs) == 0 {
		return nil, errors.Wrap(ErrNoConnectedImages, "no input images")
	}
	for i, img := range imgs {
		if img.Channels != imgs[0].Channels {
			return nil, errors.Errorf("image %d has %d channels, image 0 has %d", i, img.Channels, imgs[0].Channels)
		}
	}

	res := &Result{Transforms: make([]geometry.Homography, len(imgs))}
	if len(imgs) == 1 {
		res.Transforms[0] = geometry.IdentityHomography()
		return res, s.compose(ctx, imgs, res)
	}

	res.Features = s.detectAll(imgs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Pairs = s.matchPairs(ctx, imgs, res.Features)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range res.Pairs {
		if p.Edge != nil {
			res.Edges = append(res.Edges, *p.Edge)
		}
	}
	if len(res.Edges) == 0 {
		log.Printf("Warning: none of %d pairs has %d inliers, output holds the reference image only", len(res.Pairs), s.cfg.ConnectedThres)
	}

	g := newGraph(len(imgs), res.Edges)
	res.Reference = g.reference(s.cfg.Reference)
	res.Transforms, res.Disconnected = g.transforms(res.Reference)
	for _, i := range res.Disconnected {
		log.Printf("Warning: image %d is not connected to reference image %d, skipping", i, res.Reference)
	}

	return res, s.compose(ctx, imgs, res)
}

// detectAll runs the keypoint detector on every image concurrently. Images
// that yield no features keep a nil slice and end up disconnected.
func (s *Stitcher) detectAll(imgs []*pimage.Image) [][]keypoint.Feature {
	feats := make([][]keypoint.Feature, len(imgs))

	var wg sync.WaitGroup
	for i, img := range imgs {
		wg.Add(1)
		go func(i int, img *pimage.Image) {
			defer wg.Done()
			f, err := keypoint.Detect(img, s.cfg)
			if err != nil {
				log.Printf("Warning: image %d: %v", i, err)
				return
			}
			feats[i] = f
		}(i, img)
	}
	wg.Wait()

	if s.cfg.Debug {
		for i, f := range feats {
			log.Printf("image %d: %d features", i, len(f))
		}
	}
	return feats
}
