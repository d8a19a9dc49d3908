package scalespace

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panostitch/internal/config"
	pimage "panostitch/internal/image"
)

func noiseImage(w, h int, seed int64) *pimage.Image {
	rng := rand.New(rand.NewSource(seed))
	img := pimage.New(w, h, 1)
	for i := range img.Pix {
		img.Pix[i] = rng.Float32()
	}
	return img
}

func TestNew_OctaveShape(t *testing.T) {
	tests := []struct {
		name           string
		w, h           int
		octaves, scale int
	}{
		{"even", 128, 96, 3, 3},
		{"odd", 101, 77, 3, 2},
		{"single octave", 20, 20, 1, 4},
		{"four octaves", 130, 64, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.NumOctave = tt.octaves
			cfg.NumScale = tt.scale

			ss, err := New(noiseImage(tt.w, tt.h, 1), cfg)
			require.NoError(t, err)
			require.Len(t, ss.Octaves, tt.octaves)

			w, h := tt.w, tt.h
			for o, oct := range ss.Octaves {
				assert.Equal(t, w, oct.Width, "octave %d width", o)
				assert.Equal(t, h, oct.Height, "octave %d height", o)
				assert.Len(t, oct.Images, tt.scale+ExtraScales)
				for _, img := range oct.Images {
					assert.Equal(t, w, img.Width)
					assert.Equal(t, h, img.Height)
				}
				w, h = w/2, h/2
			}
		})
	}
}

func TestNew_TooSmall(t *testing.T) {
	cfg := config.Default()
	cfg.NumOctave = 4 // needs 64x64

	_, err := New(noiseImage(63, 200, 1), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeIncompatible))

	_, err = New(noiseImage(64, 64, 1), cfg)
	assert.NoError(t, err)
}

func TestSigmaProgression(t *testing.T) {
	cfg := config.Default()
	ss, err := New(noiseImage(64, 64, 2), cfg)
	require.NoError(t, err)

	for _, oct := range ss.Octaves {
		for s := 1; s < len(oct.Sigmas); s++ {
			assert.InDelta(t, cfg.ScaleFactor, oct.Sigmas[s]/oct.Sigmas[s-1], 1e-12)
		}
		assert.InDelta(t, cfg.GaussSigma, oct.Sigmas[0], 1e-12)
	}
}

func TestNextOctaveIsDecimated(t *testing.T) {
	cfg := config.Default()
	ss, err := New(noiseImage(64, 48, 3), cfg)
	require.NoError(t, err)

	src := ss.Image(0, cfg.NumScale)
	dst := ss.Image(1, 0)
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			require.Equal(t, src.At(2*x, 2*y, 0), dst.At(x, y, 0))
		}
	}
}

func TestDoGMatchesExplicitDifferences(t *testing.T) {
	cfg := config.Default()
	ss, err := New(noiseImage(80, 64, 4), cfg)
	require.NoError(t, err)

	dog := NewDoG(ss)
	require.Len(t, dog.Octaves, cfg.NumOctave)

	for o, oct := range ss.Octaves {
		require.Len(t, dog.Octaves[o], len(oct.Images)-1)
		for s := range dog.Octaves[o] {
			d := dog.Image(o, s)
			for i := range d.Pix {
				want := oct.Images[s+1].Pix[i] - oct.Images[s].Pix[i]
				if d.Pix[i] != want {
					t.Fatalf("octave %d scale %d pixel %d: got %g, want %g", o, s, i, d.Pix[i], want)
				}
			}
		}
	}
}

func TestGaussianKernel(t *testing.T) {
	k := GaussianKernel(1.6, 3)
	assert.Len(t, k, 2*int(math.Ceil(1.6*3))+1)

	var sum float64
	for _, v := range k {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	// symmetric and peaked in the middle
	r := len(k) / 2
	for i := 1; i <= r; i++ {
		assert.InDelta(t, k[r-i], k[r+i], 1e-15)
		assert.Less(t, k[r+i], k[r+i-1])
	}
}

func TestBlur_PreservesConstant(t *testing.T) {
	img := pimage.New(16, 12, 1)
	for i := range img.Pix {
		img.Pix[i] = 0.5
	}

	out := Blur(img, 2.0, 3)
	for _, v := range out.Pix {
		assert.InDelta(t, 0.5, v, 1e-5)
	}
}
