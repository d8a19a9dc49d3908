package keypoint

import (
	"math"

	"gonum.org/v1/gonum/floats"

	pimage "panostitch/internal/image"
)

const (
	descWidth = 4
	descBins  = 8

	// DescriptorLength is the number of values in every descriptor.
	DescriptorLength = descWidth * descWidth * descBins
)

// descriptor builds the 4x4x8 gradient histogram around the octave-local
// position (fx, fy), rotated by dir.
func descriptor(img *pimage.Image, fx, fy, sigma, dir float64, histWidthFactor, normThresh, intFactor float64) []float64 {
	hist := make([]float64, DescriptorLength)

	histWidth := histWidthFactor * sigma
	radius := int(math.Round(histWidth * math.Sqrt2 * (descWidth + 1) * 0.5))
	cosT, sinT := math.Cos(dir), math.Sin(dir)
	xi, yi := int(math.Round(fx)), int(math.Round(fy))
	subX, subY := fx-float64(xi), fy-float64(yi)
	expDenom := 2 * (0.5 * descWidth) * (0.5 * descWidth)
	binsPerRad := descBins / (2 * math.Pi)

	for i := -radius; i <= radius; i++ {
		for j := -radius; j <= radius; j++ {
			ox, oy := float64(j)-subX, float64(i)-subY
			cRot := (ox*cosT + oy*sinT) / histWidth
			rRot := (-ox*sinT + oy*cosT) / histWidth
			rbin := rRot + descWidth/2 - 0.5
			cbin := cRot + descWidth/2 - 0.5
			if rbin <= -1 || rbin >= descWidth || cbin <= -1 || cbin >= descWidth {
				continue
			}
			mag, ang, ok := gradient(img, xi+j, yi+i)
			if !ok {
				continue
			}
			ang -= dir
			for ang < 0 {
				ang += 2 * math.Pi
			}
			for ang >= 2*math.Pi {
				ang -= 2 * math.Pi
			}
			w := math.Exp(-(cRot*cRot + rRot*rRot) / expDenom)
			addTrilinear(hist, rbin, cbin, ang*binsPerRad, w*mag)
		}
	}

	normalize(hist, normThresh)
	if intFactor > 0 {
		for i, v := range hist {
			hist[i] = math.Min(v*intFactor, 255)
		}
	}
	return hist
}

// addTrilinear spreads v over the eight neighbouring (row, col, orientation)
// cells. Orientation wraps; rows and columns outside the grid are dropped.
func addTrilinear(hist []float64, rbin, cbin, obin, v float64) {
	r0 := int(math.Floor(rbin))
	c0 := int(math.Floor(cbin))
	o0 := int(math.Floor(obin))
	dr, dc, do := rbin-float64(r0), cbin-float64(c0), obin-float64(o0)

	for ri := 0; ri <= 1; ri++ {
		r := r0 + ri
		if r < 0 || r >= descWidth {
			continue
		}
		vr := v * weight(dr, ri)
		for ci := 0; ci <= 1; ci++ {
			c := c0 + ci
			if c < 0 || c >= descWidth {
				continue
			}
			vc := vr * weight(dc, ci)
			for oi := 0; oi <= 1; oi++ {
				o := (o0 + oi) % descBins
				if o < 0 {
					o += descBins
				}
				hist[(r*descWidth+c)*descBins+o] += vc * weight(do, oi)
			}
		}
	}
}

func weight(frac float64, upper int) float64 {
	if upper == 1 {
		return frac
	}
	return 1 - frac
}

// normalize scales hist to unit length, clips at thresh and renormalises.
func normalize(hist []float64, thresh float64) {
	n := floats.Norm(hist, 2)
	if n == 0 {
		return
	}
	floats.Scale(1/n, hist)
	for i, v := range hist {
		if v > thresh {
			hist[i] = thresh
		}
	}
	if n = floats.Norm(hist, 2); n > 0 {
		floats.Scale(1/n, hist)
	}
}
