package geometry

import "math"

// Homography is a 3x3 projective transform acting on homogeneous
// coordinates (x, y, 1). It is defined up to scale.
type Homography [3][3]float64

// IdentityHomography returns the identity projective transform.
func IdentityHomography() Homography {
	return Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// TranslationHomography returns a pure translation.
func TranslationHomography(tx, ty float64) Homography {
	return Homography{{1, 0, tx}, {0, 1, ty}, {0, 0, 1}}
}

// Apply maps a point through the transform. The second result is false
// when the point maps to (or behind) the line at infinity.
func (h Homography) Apply(p Point2D) (Point2D, bool) {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if math.Abs(w) < 1e-12 {
		return Point2D{}, false
	}
	return Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}, w > 0
}

// Mul returns h * other, i.e. other is applied first.
func (h Homography) Mul(other Homography) Homography {
	var r Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = h[i][0]*other[0][j] + h[i][1]*other[1][j] + h[i][2]*other[2][j]
		}
	}
	return r
}

// Det returns the determinant of the matrix.
func (h Homography) Det() float64 {
	return h[0][0]*(h[1][1]*h[2][2]-h[1][2]*h[2][1]) -
		h[0][1]*(h[1][0]*h[2][2]-h[1][2]*h[2][0]) +
		h[0][2]*(h[1][0]*h[2][1]-h[1][1]*h[2][0])
}

// Inverse returns the inverse transform, if it exists. The result is
// normalized so that its bottom-right element is 1 where possible.
func (h Homography) Inverse() (Homography, bool) {
	det := h.Det()
	if math.Abs(det) < 1e-12 {
		return Homography{}, false
	}
	inv := 1.0 / det
	r := Homography{
		{
			(h[1][1]*h[2][2] - h[1][2]*h[2][1]) * inv,
			(h[0][2]*h[2][1] - h[0][1]*h[2][2]) * inv,
			(h[0][1]*h[1][2] - h[0][2]*h[1][1]) * inv,
		},
		{
			(h[1][2]*h[2][0] - h[1][0]*h[2][2]) * inv,
			(h[0][0]*h[2][2] - h[0][2]*h[2][0]) * inv,
			(h[0][2]*h[1][0] - h[0][0]*h[1][2]) * inv,
		},
		{
			(h[1][0]*h[2][1] - h[1][1]*h[2][0]) * inv,
			(h[0][1]*h[2][0] - h[0][0]*h[2][1]) * inv,
			(h[0][0]*h[1][1] - h[0][1]*h[1][0]) * inv,
		},
	}
	return r.Normalize(), true
}

// Normalize scales the matrix so that h[2][2] == 1. Matrices whose
// bottom-right element vanishes are returned unchanged.
func (h Homography) Normalize() Homography {
	s := h[2][2]
	if math.Abs(s) < 1e-12 || s == 1 {
		return h
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[i][j] /= s
		}
	}
	return h
}

// Corners maps the pixel-centre corners of a w x h image, in
// clockwise order starting at the origin.
func (h Homography) Corners(w, hgt int) ([]Point2D, bool) {
	src := []Point2D{
		{X: 0, Y: 0},
		{X: float64(w - 1), Y: 0},
		{X: float64(w - 1), Y: float64(hgt - 1)},
		{X: 0, Y: float64(hgt - 1)},
	}
	out := make([]Point2D, len(src))
	for i, p := range src {
		q, ok := h.Apply(p)
		if !ok || !q.IsFinite() {
			return nil, false
		}
		out[i] = q
	}
	return out, true
}
