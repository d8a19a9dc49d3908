package image

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Concat places images side by side, top aligned, on a black background.
// It is a visualisation helper for match overlays and plays no part in
// stitching. The returned offsets give each image's x origin.
func Concat(imgs ...image.Image) (*image.NRGBA, []int) {
	width, height := 0, 0
	for _, img := range imgs {
		b := img.Bounds()
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
	}

	out := imaging.New(width, height, color.Black)
	offsets := make([]int, len(imgs))
	x := 0
	for i, img := range imgs {
		offsets[i] = x
		out = imaging.Paste(out, img, image.Pt(x, 0))
		x += img.Bounds().Dx()
	}
	return out, offsets
}
