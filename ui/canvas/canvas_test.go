package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panostitch/pkg/geometry"
)

func TestRenderView_Zoom(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	red := color.RGBA{R: 255, A: 255}
	src.SetRGBA(1, 1, red)

	out := renderView(src, 2, 5, 5)
	require.Equal(t, image.Rect(0, 0, 5, 5), out.Bounds())
	assert.Equal(t, red, out.RGBAAt(2, 2))
	assert.Equal(t, red, out.RGBAAt(3, 3))
	assert.Equal(t, uint8(0), out.RGBAAt(1, 1).R)
	assert.Equal(t, uint8(40), out.RGBAAt(4, 4).R, "outside the source")
}

func TestRenderView_NilImage(t *testing.T) {
	out := renderView(nil, 1, 3, 3)
	assert.Equal(t, uint8(40), out.RGBAAt(1, 1).G)
}

func TestDrawLine(t *testing.T) {
	out := image.NewRGBA(image.Rect(0, 0, 10, 10))
	c := color.RGBA{G: 255, A: 255}
	drawLine(out, 0, 0, 9, 9, c, 1)
	for i := 0; i < 10; i++ {
		assert.Equal(t, c, out.RGBAAt(i, i))
	}
	assert.Equal(t, uint8(0), out.RGBAAt(9, 0).G)

	// Clipped without panicking.
	drawLine(out, -5, 5, 20, 5, c, 3)
	assert.Equal(t, c, out.RGBAAt(0, 4))
}

func TestDrawOverlay_Polygon(t *testing.T) {
	out := image.NewRGBA(image.Rect(0, 0, 20, 20))
	c := color.RGBA{B: 255, A: 255}
	ov := &Overlay{Color: c, Polygons: []OverlayPolygon{{
		Points: []geometry.Point2D{{X: 1, Y: 1}, {X: 8, Y: 1}, {X: 8, Y: 8}, {X: 1, Y: 8}},
	}}}
	drawOverlay(out, ov, 2)
	assert.Equal(t, c, out.RGBAAt(10, 2))
	assert.Equal(t, c, out.RGBAAt(16, 10))
	assert.Equal(t, uint8(0), out.RGBAAt(9, 9).B, "interior untouched")
}

func TestFitZoom(t *testing.T) {
	z, ok := fitZoom(image.Rect(0, 0, 200, 100), 100, 100)
	require.True(t, ok)
	assert.InDelta(t, 0.475, z, 1e-12)

	_, ok = fitZoom(image.Rect(0, 0, 0, 0), 100, 100)
	assert.False(t, ok)
	assert.Equal(t, maxZoom, clampZoom(1e6))
	assert.Equal(t, minZoom, clampZoom(0))
}
