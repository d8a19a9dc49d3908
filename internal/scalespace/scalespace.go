// Package scalespace builds Gaussian scale-space pyramids and their
// difference-of-Gaussian stacks.
//
// A ScaleSpace owns its octaves and every octave owns its blurred images.
// Octave o+1 is derived from octave o by decimating the image at scale
// NumScale, so the pyramid is computed once from the full-resolution input.
package scalespace

import (
	"math"

	"github.com/pkg/errors"

	"panostitch/internal/config"
	pimage "panostitch/internal/image"
)

// MinOctaveSize is the smallest width or height the last octave may have.
const MinOctaveSize = 8

// ExtraScales is the number of blurred images per octave beyond NumScale,
// needed so that extrema can be searched across the full scale range.
const ExtraScales = 3

// ErrSizeIncompatible is returned when an image is too small for the
// requested number of octaves.
var ErrSizeIncompatible = errors.New("image too small for requested octave count")

// Octave is one resolution level: NumScale+ExtraScales images of equal size
// and increasing blur.
type Octave struct {
	Width  int
	Height int
	Images []*pimage.Image
	Sigmas []float64 // octave-local blur of each image
}

// ScaleSpace is the full Gaussian pyramid of one image.
type ScaleSpace struct {
	NumOctave   int
	NumScale    int
	BaseSigma   float64
	ScaleFactor float64
	Octaves     []Octave
}

// RequiredSize returns the smallest width and height accepted for the
// given octave count.
func RequiredSize(numOctave int) int {
	return MinOctaveSize << (numOctave - 1)
}

// New builds the scale space of img. Colour images are converted to
// luminance first.
func New(img *pimage.Image, cfg *config.Config) (*ScaleSpace, error) {
	if cfg.NumOctave < 1 || cfg.NumScale < 1 {
		return nil, errors.Errorf("invalid pyramid shape: %d octaves, %d scales", cfg.NumOctave, cfg.NumScale)
	}
	need := RequiredSize(cfg.NumOctave)
	if img.Width < need || img.Height < need {
		return nil, errors.Wrapf(ErrSizeIncompatible, "%dx%d image, %d octaves need at least %dx%d",
			img.Width, img.Height, cfg.NumOctave, need, need)
	}

	ss := &ScaleSpace{
		NumOctave:   cfg.NumOctave,
		NumScale:    cfg.NumScale,
		BaseSigma:   cfg.GaussSigma,
		ScaleFactor: cfg.ScaleFactor,
		Octaves:     make([]Octave, cfg.NumOctave),
	}

	nImages := cfg.NumScale + ExtraScales
	sigmas := make([]float64, nImages)
	for s := range sigmas {
		sigmas[s] = ss.Sigma(float64(s))
	}

	base := Blur(img.Gray(), cfg.GaussSigma, cfg.GaussWindowFactor)
	for o := 0; o < cfg.NumOctave; o++ {
		if o > 0 {
			base = halve(ss.Octaves[o-1].Images[cfg.NumScale])
		}
		oct := Octave{
			Width:  base.Width,
			Height: base.Height,
			Images: make([]*pimage.Image, nImages),
			Sigmas: sigmas,
		}
		oct.Images[0] = base
		for s := 1; s < nImages; s++ {
			diff := math.Sqrt(sigmas[s]*sigmas[s] - sigmas[s-1]*sigmas[s-1])
			oct.Images[s] = Blur(oct.Images[s-1], diff, cfg.GaussWindowFactor)
		}
		ss.Octaves[o] = oct
	}
	return ss, nil
}

// ImagesPerOctave returns NumScale+ExtraScales.
func (ss *ScaleSpace) ImagesPerOctave() int {
	return ss.NumScale + ExtraScales
}

// Sigma returns the octave-local blur at a (possibly fractional) scale index.
func (ss *ScaleSpace) Sigma(scale float64) float64 {
	return ss.BaseSigma * math.Pow(ss.ScaleFactor, scale)
}

// Image returns the blurred image at (octave, scale).
func (ss *ScaleSpace) Image(octave, scale int) *pimage.Image {
	return ss.Octaves[octave].Images[scale]
}
