package panorama

import (
	"image"

	pimage "panostitch/internal/image"
)

// MaxCoveredRect returns the largest axis-aligned rectangle whose pixels are
// all covered. Ties keep the first rectangle found scanning rows top to
// bottom. The result is empty when nothing is covered.
func MaxCoveredRect(mask []bool, w, h int) image.Rectangle {
	heights := make([]int, w)
	stack := make([]int, 0, w+1)

	var best image.Rectangle
	bestArea := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] {
				heights[x]++
			} else {
				heights[x] = 0
			}
		}

		// Largest rectangle under the histogram of column run lengths.
		stack = stack[:0]
		for x := 0; x <= w; x++ {
			cur := 0
			if x < w {
				cur = heights[x]
			}
			for len(stack) > 0 && heights[stack[len(stack)-1]] >= cur {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				left := 0
				if len(stack) > 0 {
					left = stack[len(stack)-1] + 1
				}
				hgt := heights[top]
				if area := hgt * (x - left); area > bestArea {
					bestArea = area
					best = image.Rect(left, y-hgt+1, x, y+1)
				}
			}
			stack = append(stack, x)
		}
	}
	return best
}

// cropTo copies rect out of img and its coverage mask.
func cropTo(img *pimage.Image, mask []bool, rect image.Rectangle) (*pimage.Image, []bool) {
	w, h := rect.Dx(), rect.Dy()
	out := pimage.New(w, h, img.Channels)
	outMask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		src := img.Offset(rect.Min.X, rect.Min.Y+y, 0)
		copy(out.Pix[y*w*img.Channels:(y+1)*w*img.Channels], img.Pix[src:src+w*img.Channels])
		copy(outMask[y*w:(y+1)*w], mask[(rect.Min.Y+y)*img.Width+rect.Min.X:])
	}
	return out, outMask
}
