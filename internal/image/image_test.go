package image

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createGradientImage builds an opaque RGB test pattern with distinct
// channel ramps.
func createGradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func TestFromGoToGo_PreservesPixels(t *testing.T) {
	src := createGradientImage(17, 11)

	m := FromGo(src)
	require.Equal(t, 17, m.Width)
	require.Equal(t, 11, m.Height)
	require.Equal(t, 3, m.Channels)

	back := m.ToGo(nil)
	assert.Equal(t, src.Pix, back.Pix)
}

func TestToGo_MaskMakesTransparent(t *testing.T) {
	m := New(2, 1, 3)
	m.Set(0, 0, 0, 1)
	m.Set(1, 0, 0, 1)

	out := m.ToGo([]bool{true, false})
	assert.Equal(t, uint8(255), out.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(1, 0).A)
}

func TestBilinear(t *testing.T) {
	m := New(2, 2, 1)
	m.Set(0, 0, 0, 0)
	m.Set(1, 0, 0, 1)
	m.Set(0, 1, 0, 0)
	m.Set(1, 1, 0, 1)

	out := make([]float64, 1)

	require.True(t, m.Bilinear(0, 0, out))
	assert.Equal(t, 0.0, out[0])

	require.True(t, m.Bilinear(0.5, 0.5, out))
	assert.InDelta(t, 0.5, out[0], 1e-9)

	require.True(t, m.Bilinear(1, 1, out))
	assert.Equal(t, 1.0, out[0])

	assert.False(t, m.Bilinear(1.01, 0, out))
	assert.False(t, m.Bilinear(-0.01, 0, out))
}

func TestGray(t *testing.T) {
	m := New(1, 1, 3)
	m.Set(0, 0, 0, 1)
	m.Set(0, 0, 1, 1)
	m.Set(0, 0, 2, 1)

	g := m.Gray()
	require.Equal(t, 1, g.Channels)
	assert.InDelta(t, 1.0, g.At(0, 0, 0), 1e-6)
}

func TestSaveLoad_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	src := createGradientImage(20, 10)

	require.NoError(t, Save(src, path))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, m.ToGo(nil).Pix)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)

	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := Load(path)
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestSave_UnsupportedFormat(t *testing.T) {
	err := Save(createGradientImage(4, 4), filepath.Join(t.TempDir(), "out.xyz"))
	require.Error(t, err)

	var ee *EncodeError
	assert.True(t, errors.As(err, &ee))
}

func TestLoadMax_Downscales(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	require.NoError(t, Save(createGradientImage(200, 100), path))

	m, err := LoadMax(path, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, m.Width)
	assert.Equal(t, 25, m.Height)
}

func TestConcat(t *testing.T) {
	a := createGradientImage(10, 8)
	b := createGradientImage(6, 12)

	out, offsets := Concat(a, b)
	assert.Equal(t, 16, out.Bounds().Dx())
	assert.Equal(t, 12, out.Bounds().Dy())
	assert.Equal(t, []int{0, 10}, offsets)
	assert.Equal(t, b.NRGBAAt(3, 5), out.NRGBAAt(13, 5))
}

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator(2, 1, 1)
	acc.Add(0, 0, []float64{1}, 1)
	acc.Add(0, 0, []float64{0}, 3)

	img, mask := acc.Resolve()
	assert.InDelta(t, 0.25, img.At(0, 0, 0), 1e-6)
	assert.Equal(t, []bool{true, false}, mask)
}
