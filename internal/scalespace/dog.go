package scalespace

import (
	pimage "panostitch/internal/image"
)

// DoG holds, per octave, the differences of adjacent blurred images:
// Octaves[o][s] = L[o][s+1] - L[o][s]. It is computed once and never
// modified.
type DoG struct {
	NumScale int
	Octaves  [][]*pimage.Image
}

// NewDoG derives the difference-of-Gaussian stacks from ss.
func NewDoG(ss *ScaleSpace) *DoG {
	d := &DoG{
		NumScale: ss.NumScale,
		Octaves:  make([][]*pimage.Image, len(ss.Octaves)),
	}
	for o, oct := range ss.Octaves {
		layers := make([]*pimage.Image, len(oct.Images)-1)
		for s := range layers {
			layers[s] = subtract(oct.Images[s+1], oct.Images[s])
		}
		d.Octaves[o] = layers
	}
	return d
}

// Image returns the difference image at (octave, scale).
func (d *DoG) Image(octave, scale int) *pimage.Image {
	return d.Octaves[octave][scale]
}

func subtract(a, b *pimage.Image) *pimage.Image {
	out := pimage.New(a.Width, a.Height, 1)
	for i := range out.Pix {
		out.Pix[i] = a.Pix[i] - b.Pix[i]
	}
	return out
}
