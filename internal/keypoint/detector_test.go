package keypoint

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panostitch/internal/config"
	pimage "panostitch/internal/image"
	"panostitch/internal/scalespace"
	"panostitch/pkg/geometry"
)

// blobImage draws a single bright Gaussian blob on black.
func blobImage(w, h int, cx, cy, sigma float64) *pimage.Image {
	img := pimage.New(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			img.Set(x, y, 0, float32(math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))))
		}
	}
	return img
}

func TestDetect_SingleBlob(t *testing.T) {
	cfg := config.Default()
	center := geometry.Point2D{X: 48, Y: 48}

	feats, err := Detect(blobImage(96, 96, center.X, center.Y, 2.8), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, feats)

	nearest := math.Inf(1)
	for _, f := range feats {
		d := f.Coord.Distance(center)
		nearest = math.Min(nearest, d)
		assert.Less(t, d, 12.0, "feature at %+v is far from the blob", f.Coord)

		assert.Len(t, f.Descriptor, DescriptorLength)
		assert.GreaterOrEqual(t, f.Dir, 0.0)
		assert.Less(t, f.Dir, 2*math.Pi)
		assert.Greater(t, f.Sigma, 0.0)
		for _, v := range f.Descriptor {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 255.0)
		}
	}
	assert.Less(t, nearest, 1.5)
}

func TestDetect_Deterministic(t *testing.T) {
	cfg := config.Default()
	img := blobImage(96, 96, 40, 52, 2.8)

	a, err := Detect(img, cfg)
	require.NoError(t, err)
	b, err := Detect(img, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDetect_BlankImage(t *testing.T) {
	_, err := Detect(pimage.New(64, 64, 1), config.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFeatures))
}

func TestDetect_TooSmall(t *testing.T) {
	_, err := Detect(pimage.New(16, 16, 1), config.Default())
	assert.True(t, errors.Is(err, scalespace.ErrSizeIncompatible))
}

func TestExtrema_BlobIsMinimumAtCentre(t *testing.T) {
	cfg := config.Default()
	ss, err := scalespace.New(blobImage(96, 96, 48, 48, 2.8), cfg)
	require.NoError(t, err)

	ext := Extrema(scalespace.NewDoG(ss), cfg)
	require.NotEmpty(t, ext)

	var found bool
	for _, e := range ext {
		if e.Coord().Distance(geometry.Point2D{X: 48, Y: 48}) < 1.5 {
			found = true
			assert.Less(t, e.Value, 0.0, "bright blob gives a negative DoG response")
			assert.GreaterOrEqual(t, e.Scale, 1)
			assert.LessOrEqual(t, e.Scale, cfg.NumScale)
		}
	}
	assert.True(t, found)
}

func TestIsExtremum(t *testing.T) {
	layers := make([]*pimage.Image, 3)
	for i := range layers {
		layers[i] = pimage.New(3, 3, 1)
	}
	layers[1].Set(1, 1, 0, 1)
	assert.True(t, isExtremum(layers, 1, 1, 1, 0))
	assert.False(t, isExtremum(layers, 1, 1, 1, 1), "difference must exceed the threshold")

	layers[2].Set(0, 0, 0, 1)
	assert.False(t, isExtremum(layers, 1, 1, 1, 0), "ties are not extrema")
}

func TestDominantDirections(t *testing.T) {
	hist := make([]float64, oriHistBins)
	hist[9] = 10
	hist[27] = 9
	hist[18] = 5

	dirs := dominantDirections(hist, 0.8)
	require.Len(t, dirs, 2)

	binWidth := 2 * math.Pi / oriHistBins
	assert.InDelta(t, 9.5*binWidth, dirs[0], 1e-9)
	assert.InDelta(t, 27.5*binWidth, dirs[1], 1e-9)

	assert.Empty(t, dominantDirections(make([]float64, oriHistBins), 0.8))
}

func TestSmoothHist_PreservesMass(t *testing.T) {
	hist := make([]float64, oriHistBins)
	hist[0] = 4
	smoothHist(hist, 2)

	var sum float64
	for _, v := range hist {
		sum += v
	}
	assert.InDelta(t, 4.0, sum, 1e-12)
	assert.InDelta(t, hist[1], hist[oriHistBins-1], 1e-12)
}

func TestNormalizeClips(t *testing.T) {
	hist := make([]float64, DescriptorLength)
	hist[0] = 10
	hist[1] = 1
	normalize(hist, 0.2)

	var sq float64
	for _, v := range hist {
		sq += v * v
	}
	assert.InDelta(t, 1.0, sq, 1e-12)
	assert.Greater(t, hist[0], hist[1])
}
