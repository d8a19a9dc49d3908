package keypoint

import (
	"math"

	pimage "panostitch/internal/image"
)

const oriHistBins = 36

// gradient returns the central-difference magnitude and angle in [0, 2pi)
// at an interior pixel.
func gradient(img *pimage.Image, x, y int) (mag, ang float64, ok bool) {
	if x < 1 || y < 1 || x >= img.Width-1 || y >= img.Height-1 {
		return 0, 0, false
	}
	gx := float64(img.At(x+1, y, 0)) - float64(img.At(x-1, y, 0))
	gy := float64(img.At(x, y+1, 0)) - float64(img.At(x, y-1, 0))
	mag = math.Hypot(gx, gy)
	ang = math.Atan2(gy, gx)
	if ang < 0 {
		ang += 2 * math.Pi
	}
	return mag, ang, true
}

// orientationHist accumulates Gaussian-weighted gradient magnitudes in a
// circular window around (x, y).
func orientationHist(img *pimage.Image, x, y int, radius int, windowSigma float64) []float64 {
	hist := make([]float64, oriHistBins)
	denom := 2 * windowSigma * windowSigma
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			mag, ang, ok := gradient(img, x+dx, y+dy)
			if !ok {
				continue
			}
			w := math.Exp(-float64(dx*dx+dy*dy) / denom)
			bin := int(ang * oriHistBins / (2 * math.Pi))
			if bin >= oriHistBins {
				bin = 0
			}
			hist[bin] += w * mag
		}
	}
	return hist
}

// smoothHist applies a circular [1/4, 1/2, 1/4] filter count times.
func smoothHist(hist []float64, count int) {
	n := len(hist)
	tmp := make([]float64, n)
	for p := 0; p < count; p++ {
		for i := range hist {
			prev := hist[(i+n-1)%n]
			next := hist[(i+1)%n]
			tmp[i] = 0.25*prev + 0.5*hist[i] + 0.25*next
		}
		copy(hist, tmp)
	}
}

// dominantDirections returns one angle per local histogram peak reaching
// ratio*max, refined by a parabola through the peak and its neighbours.
func dominantDirections(hist []float64, ratio float64) []float64 {
	n := len(hist)
	var max float64
	for _, v := range hist {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return nil
	}

	binWidth := 2 * math.Pi / float64(n)
	var dirs []float64
	for i, v := range hist {
		l := hist[(i+n-1)%n]
		r := hist[(i+1)%n]
		if !(v > l && v > r) || v < ratio*max {
			continue
		}
		var shift float64
		if denom := l - 2*v + r; denom != 0 {
			shift = 0.5 * (l - r) / denom
		}
		dir := (float64(i) + 0.5 + shift) * binWidth
		dir = math.Mod(dir, 2*math.Pi)
		if dir < 0 {
			dir += 2 * math.Pi
		}
		dirs = append(dirs, dir)
	}
	return dirs
}
