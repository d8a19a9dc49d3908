package keypoint

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"panostitch/internal/config"
	pimage "panostitch/internal/image"
	"panostitch/internal/scalespace"
	"panostitch/pkg/geometry"
)

// Extremum is a DoG extremum that survived refinement, contrast and edge
// rejection. X, Y and Scale are the integer sample the quadratic fit
// converged at; Offset is the sub-sample correction (x, y, scale).
type Extremum struct {
	Octave int
	Scale  int
	X      int
	Y      int
	Offset [3]float64
	Value  float64 // interpolated DoG value at the refined location
}

// OctaveCoord returns the refined position in octave pixels.
func (e Extremum) OctaveCoord() geometry.Point2D {
	return geometry.Point2D{X: float64(e.X) + e.Offset[0], Y: float64(e.Y) + e.Offset[1]}
}

// Coord returns the refined position in input-image pixels.
func (e Extremum) Coord() geometry.Point2D {
	return e.OctaveCoord().Scale(float64(int(1) << e.Octave))
}

// Extrema returns the refined extrema of every octave, in octave order.
func Extrema(dog *scalespace.DoG, cfg *config.Config) []Extremum {
	var out []Extremum
	for o := range dog.Octaves {
		out = append(out, octaveExtrema(dog, o, cfg)...)
	}
	return out
}

// octaveExtrema scans the DoG layers of one octave, skipping the first and
// last layer which lack a neighbour in scale.
func octaveExtrema(dog *scalespace.DoG, octave int, cfg *config.Config) []Extremum {
	layers := dog.Octaves[octave]
	if len(layers) < 3 {
		return nil
	}
	w, h := layers[0].Width, layers[0].Height
	border := cfg.ImageBorder

	var out []Extremum
	for s := 1; s < len(layers)-1; s++ {
		cur := layers[s]
		for y := border; y < h-border; y++ {
			for x := border; x < w-border; x++ {
				v := cur.Pix[y*w+x]
				if math.Abs(float64(v)) <= cfg.PreColorThres {
					continue
				}
				if !isExtremum(layers, s, x, y, cfg.JudgeExtremaDiffThres) {
					continue
				}
				if e, ok := refine(layers, octave, s, x, y, cfg); ok {
					out = append(out, e)
				}
			}
		}
	}
	return out
}

// isExtremum reports whether (x, y, s) is strictly greater, or strictly
// smaller, than all 26 neighbours by more than thres.
func isExtremum(layers []*pimage.Image, s, x, y int, thres float64) bool {
	w := layers[s].Width
	v := float64(layers[s].Pix[y*w+x])
	isMax, isMin := true, true

	for ds := -1; ds <= 1; ds++ {
		layer := layers[s+ds].Pix
		for dy := -1; dy <= 1; dy++ {
			row := (y + dy) * w
			for dx := -1; dx <= 1; dx++ {
				if ds == 0 && dy == 0 && dx == 0 {
					continue
				}
				n := float64(layer[row+x+dx])
				if !(v > n+thres) {
					isMax = false
				}
				if !(v < n-thres) {
					isMin = false
				}
				if !isMax && !isMin {
					return false
				}
			}
		}
	}
	return true
}

// refine fits a quadratic around the sample and iterates towards the
// extremum. The candidate is dropped if it fails to settle within
// CalcOffsetDepth steps, drifts out of the scannable volume, has too little
// contrast or lies on an edge.
func refine(layers []*pimage.Image, octave, s, x, y int, cfg *config.Config) (Extremum, bool) {
	w, h := layers[0].Width, layers[0].Height
	border := cfg.ImageBorder

	var (
		offset  [3]float64
		grad    [3]float64
		settled bool
	)
	for i := 0; i < cfg.CalcOffsetDepth; i++ {
		var hess [9]float64
		grad, hess = derivatives(layers, s, x, y)

		var ok bool
		offset, ok = solveOffset(grad, hess)
		if !ok {
			return Extremum{}, false
		}
		if math.Abs(offset[0]) <= cfg.OffsetThres &&
			math.Abs(offset[1]) <= cfg.OffsetThres &&
			math.Abs(offset[2]) <= cfg.OffsetThres {
			settled = true
			break
		}

		x += int(math.Round(offset[0]))
		y += int(math.Round(offset[1]))
		s += int(math.Round(offset[2]))
		if s < 1 || s > len(layers)-2 ||
			x < border || x >= w-border ||
			y < border || y >= h-border {
			return Extremum{}, false
		}
	}
	if !settled {
		return Extremum{}, false
	}

	d := float64(layers[s].At(x, y, 0))
	value := d + 0.5*(grad[0]*offset[0]+grad[1]*offset[1]+grad[2]*offset[2])
	if math.Abs(value) < cfg.ContrastThres {
		return Extremum{}, false
	}
	if onEdge(layers[s], x, y, cfg.EdgeRatio) {
		return Extremum{}, false
	}

	return Extremum{
		Octave: octave,
		Scale:  s,
		X:      x,
		Y:      y,
		Offset: offset,
		Value:  value,
	}, true
}

// derivatives returns the central-difference gradient and the row-major
// 3x3 Hessian over (x, y, scale).
func derivatives(layers []*pimage.Image, s, x, y int) ([3]float64, [9]float64) {
	prev, cur, next := layers[s-1], layers[s], layers[s+1]
	at := func(img *pimage.Image, dx, dy int) float64 {
		return float64(img.At(x+dx, y+dy, 0))
	}

	v := at(cur, 0, 0)
	dx := (at(cur, 1, 0) - at(cur, -1, 0)) / 2
	dy := (at(cur, 0, 1) - at(cur, 0, -1)) / 2
	ds := (at(next, 0, 0) - at(prev, 0, 0)) / 2

	dxx := at(cur, 1, 0) + at(cur, -1, 0) - 2*v
	dyy := at(cur, 0, 1) + at(cur, 0, -1) - 2*v
	dss := at(next, 0, 0) + at(prev, 0, 0) - 2*v
	dxy := (at(cur, 1, 1) - at(cur, 1, -1) - at(cur, -1, 1) + at(cur, -1, -1)) / 4
	dxs := (at(next, 1, 0) - at(next, -1, 0) - at(prev, 1, 0) + at(prev, -1, 0)) / 4
	dys := (at(next, 0, 1) - at(next, 0, -1) - at(prev, 0, 1) + at(prev, 0, -1)) / 4

	return [3]float64{dx, dy, ds}, [9]float64{
		dxx, dxy, dxs,
		dxy, dyy, dys,
		dxs, dys, dss,
	}
}

// solveOffset returns -H^-1 g.
func solveOffset(grad [3]float64, hess [9]float64) ([3]float64, bool) {
	A := mat.NewDense(3, 3, hess[:])
	b := mat.NewVecDense(3, []float64{-grad[0], -grad[1], -grad[2]})

	var x mat.VecDense
	if err := x.SolveVec(A, b); err != nil {
		return [3]float64{}, false
	}
	out := [3]float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return [3]float64{}, false
		}
	}
	return out, true
}

// onEdge applies the principal curvature test on the spatial Hessian:
// points with tr^2/det at or above (r+1)^2/r, or a non-positive determinant, lie
// along an edge.
func onEdge(img *pimage.Image, x, y int, r float64) bool {
	v := float64(img.At(x, y, 0))
	dxx := float64(img.At(x+1, y, 0)) + float64(img.At(x-1, y, 0)) - 2*v
	dyy := float64(img.At(x, y+1, 0)) + float64(img.At(x, y-1, 0)) - 2*v
	dxy := (float64(img.At(x+1, y+1, 0)) - float64(img.At(x+1, y-1, 0)) -
		float64(img.At(x-1, y+1, 0)) + float64(img.At(x-1, y-1, 0))) / 4

	tr := dxx + dyy
	det := dxx*dyy - dxy*dxy
	if det <= 0 {
		return true
	}
	return tr*tr/det >= (r+1)*(r+1)/r
}
