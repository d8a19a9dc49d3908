// Package image provides the floating-point image buffer used by every
// pipeline stage, plus loading, saving and compositing helpers.
package image

import (
	"image"
	"image/color"
	"math"
)

// Image is a dense grid of pixels, each a vector of Channels intensities in
// [0, 1]. Pixels are stored row-major with interleaved channels.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// New allocates a zeroed image.
func New(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}
}

// Offset returns the index of channel c of pixel (x, y) in Pix.
func (m *Image) Offset(x, y, c int) int {
	return (y*m.Width+x)*m.Channels + c
}

// At returns channel c of pixel (x, y).
func (m *Image) At(x, y, c int) float32 {
	return m.Pix[(y*m.Width+x)*m.Channels+c]
}

// Set stores channel c of pixel (x, y).
func (m *Image) Set(x, y, c int, v float32) {
	m.Pix[(y*m.Width+x)*m.Channels+c] = v
}

// Bounds returns the image rectangle anchored at the origin.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	pix := make([]float32, len(m.Pix))
	copy(pix, m.Pix)
	return &Image{Width: m.Width, Height: m.Height, Channels: m.Channels, Pix: pix}
}

// Gray converts to a single channel using ITU-R BT.601 luminance weights.
// Single-channel images are copied.
func (m *Image) Gray() *Image {
	if m.Channels == 1 {
		return m.Clone()
	}
	out := New(m.Width, m.Height, 1)
	for i := 0; i < m.Width*m.Height; i++ {
		p := m.Pix[i*m.Channels:]
		if m.Channels >= 3 {
			out.Pix[i] = 0.299*p[0] + 0.587*p[1] + 0.114*p[2]
		} else {
			out.Pix[i] = p[0]
		}
	}
	return out
}

// Bilinear interpolates every channel at the real coordinate (x, y) into
// out, which must hold Channels values. It returns false when the point lies
// outside [0, Width-1] x [0, Height-1].
func (m *Image) Bilinear(x, y float64, out []float64) bool {
	if x < 0 || y < 0 || x > float64(m.Width-1) || y > float64(m.Height-1) {
		return false
	}
	x0 := int(x)
	y0 := int(y)
	fx := x - float64(x0)
	fy := y - float64(y0)
	x1 := min(x0+1, m.Width-1)
	y1 := min(y0+1, m.Height-1)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	i00 := (y0*m.Width + x0) * m.Channels
	i10 := (y0*m.Width + x1) * m.Channels
	i01 := (y1*m.Width + x0) * m.Channels
	i11 := (y1*m.Width + x1) * m.Channels
	for c := 0; c < m.Channels; c++ {
		out[c] = w00*float64(m.Pix[i00+c]) + w10*float64(m.Pix[i10+c]) +
			w01*float64(m.Pix[i01+c]) + w11*float64(m.Pix[i11+c])
	}
	return true
}

// FromGo converts a standard library image to a three-channel RGB Image.
// Alpha is discarded after un-premultiplying.
func FromGo(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := New(w, h, 3)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(src.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.NRGBA)
			i := (y*w + x) * 3
			out.Pix[i] = float32(c.R) / 255
			out.Pix[i+1] = float32(c.G) / 255
			out.Pix[i+2] = float32(c.B) / 255
		}
	}
	return out
}

// ToGo converts to an 8-bit NRGBA image. When mask is non-nil, pixels whose
// mask entry is false become fully transparent.
func (m *Image) ToGo(mask []bool) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			o := y*out.Stride + x*4
			if mask != nil && !mask[i] {
				continue
			}
			p := m.Pix[i*m.Channels:]
			switch m.Channels {
			case 1:
				v := to8(p[0])
				out.Pix[o], out.Pix[o+1], out.Pix[o+2] = v, v, v
			default:
				out.Pix[o] = to8(p[0])
				out.Pix[o+1] = to8(p[1])
				out.Pix[o+2] = to8(p[2])
			}
			out.Pix[o+3] = 255
		}
	}
	return out
}

func to8(v float32) uint8 {
	return uint8(math.Round(float64(clampFloat(v, 0, 1)) * 255))
}

func clampFloat(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
