// Package keypoint finds scale-invariant keypoints in a difference-of-Gaussian
// stack and describes them with rotation-normalised gradient histograms.
package keypoint

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"

	"panostitch/internal/config"
	pimage "panostitch/internal/image"
	"panostitch/internal/scalespace"
	"panostitch/pkg/geometry"
)

// ErrInsufficientFeatures is returned when an image yields no keypoints.
var ErrInsufficientFeatures = errors.New("no keypoints detected")

// Feature is a described keypoint.
type Feature struct {
	Coord       geometry.Point2D `json:"coord"` // input-image pixels
	Octave      int              `json:"octave"`
	Scale       int              `json:"scale"`
	ScaleOffset float64          `json:"scale_offset"`
	Sigma       float64          `json:"sigma"` // absolute blur in input pixels
	Dir         float64          `json:"dir"`   // radians, [0, 2pi)
	Descriptor  []float64        `json:"-"`
}

// Detect runs the full detection pipeline on img. Octaves are processed
// concurrently; the result lists octave 0 features first.
func Detect(img *pimage.Image, cfg *config.Config) ([]Feature, error) {
	ss, err := scalespace.New(img, cfg)
	if err != nil {
		return nil, err
	}
	return DetectIn(ss, scalespace.NewDoG(ss), cfg)
}

// DetectIn detects and describes keypoints in a prebuilt scale space.
func DetectIn(ss *scalespace.ScaleSpace, dog *scalespace.DoG, cfg *config.Config) ([]Feature, error) {
	perOctave := make([][]Feature, len(dog.Octaves))

	var wg sync.WaitGroup
	for o := range dog.Octaves {
		wg.Add(1)
		go func(o int) {
			defer wg.Done()
			var feats []Feature
			for _, e := range octaveExtrema(dog, o, cfg) {
				feats = append(feats, describe(ss, e, cfg)...)
			}
			perOctave[o] = feats
		}(o)
	}
	wg.Wait()

	var out []Feature
	for o, feats := range perOctave {
		if cfg.Debug {
			fmt.Printf("  octave %d: %d features\n", o, len(feats))
		}
		out = append(out, feats...)
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(ErrInsufficientFeatures, "%dx%d image", ss.Octaves[0].Width, ss.Octaves[0].Height)
	}
	return out, nil
}

// describe assigns orientations to e and builds one Feature per orientation.
func describe(ss *scalespace.ScaleSpace, e Extremum, cfg *config.Config) []Feature {
	scale := float64(e.Scale) + e.Offset[2]
	sigma := ss.Sigma(scale)

	layer := int(math.Round(scale))
	if layer < 0 {
		layer = 0
	}
	if last := ss.ImagesPerOctave() - 1; layer > last {
		layer = last
	}
	img := ss.Image(e.Octave, layer)

	pos := e.OctaveCoord()
	xi, yi := int(math.Round(pos.X)), int(math.Round(pos.Y))
	radius := int(math.Round(cfg.OriRadius * sigma))
	hist := orientationHist(img, xi, yi, radius, cfg.OriWindowFactor*sigma)
	smoothHist(hist, cfg.OriHistSmoothCount)

	octScale := float64(int(1) << e.Octave)
	var feats []Feature
	for _, dir := range dominantDirections(hist, cfg.OriHistPeakRatio) {
		feats = append(feats, Feature{
			Coord:       e.Coord(),
			Octave:      e.Octave,
			Scale:       e.Scale,
			ScaleOffset: e.Offset[2],
			Sigma:       sigma * octScale,
			Dir:         dir,
			Descriptor: descriptor(img, pos.X, pos.Y, sigma, dir,
				cfg.DescHistRealWidth, cfg.DescNormThresh, cfg.DescIntFactor),
		})
	}
	return feats
}
