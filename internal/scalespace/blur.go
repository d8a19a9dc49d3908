package scalespace

import (
	"math"

	"github.com/anthonynsimon/bild/parallel"

	pimage "panostitch/internal/image"
)

// GaussianKernel returns a normalised 1D kernel of radius
// ceil(sigma*windowFactor), never smaller than 1.
func GaussianKernel(sigma, windowFactor float64) []float64 {
	radius := int(math.Ceil(sigma * windowFactor))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// Blur applies a separable Gaussian blur to a single-channel image.
// Borders are clamped (replicated). Rows are processed in parallel.
func Blur(src *pimage.Image, sigma, windowFactor float64) *pimage.Image {
	kernel := GaussianKernel(sigma, windowFactor)
	radius := len(kernel) / 2
	w, h := src.Width, src.Height

	tmp := pimage.New(w, h, 1)
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := src.Pix[y*w : (y+1)*w]
			out := tmp.Pix[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				var acc float64
				for k := -radius; k <= radius; k++ {
					acc += kernel[k+radius] * float64(row[clamp(x+k, 0, w-1)])
				}
				out[x] = float32(acc)
			}
		}
	})

	dst := pimage.New(w, h, 1)
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			out := dst.Pix[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				var acc float64
				for k := -radius; k <= radius; k++ {
					acc += kernel[k+radius] * float64(tmp.Pix[clamp(y+k, 0, h-1)*w+x])
				}
				out[x] = float32(acc)
			}
		}
	})
	return dst
}

// halve keeps every second pixel in both directions. The result is
// floor(w/2) x floor(h/2).
func halve(src *pimage.Image) *pimage.Image {
	w, h := src.Width/2, src.Height/2
	dst := pimage.New(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[y*w+x] = src.Pix[(2*y)*src.Width+2*x]
		}
	}
	return dst
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
