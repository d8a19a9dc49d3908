// Package geometry holds the planar types shared by the stitching stages.
package geometry

import "math"

// Point2D is a position in pixel coordinates, y pointing down.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point2D) Distance(q Point2D) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

func (p Point2D) Add(q Point2D) Point2D { return Point2D{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point2D) Sub(q Point2D) Point2D { return Point2D{X: p.X - q.X, Y: p.Y - q.Y} }

func (p Point2D) Scale(f float64) Point2D { return Point2D{X: p.X * f, Y: p.Y * f} }

// IsFinite reports whether neither coordinate is NaN or infinite.
func (p Point2D) IsFinite() bool {
	return !math.IsNaN(p.X+p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Point2D
}

// BoundingBox returns the smallest box holding every point. The zero Box
// is returned for no points.
func BoundingBox(points []Point2D) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X, b.Min.Y = math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y)
		b.Max.X, b.Max.Y = math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y)
	}
	return b
}

// PixelGrid returns the integer origin and size of the pixel grid that
// covers the box: from floor(Min) to ceil(Max), inclusive.
func (b Box) PixelGrid() (origin Point2D, width, height int) {
	origin = Point2D{X: math.Floor(b.Min.X), Y: math.Floor(b.Min.Y)}
	width = int(math.Ceil(b.Max.X)-origin.X) + 1
	height = int(math.Ceil(b.Max.Y)-origin.Y) + 1
	return origin, width, height
}

// Centroid is the mean of the points, or the origin for none.
func Centroid(points []Point2D) Point2D {
	var c Point2D
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(points)))
}

// AffineTransform is the 2x3 matrix
//
//	[A B TX]
//	[C D TY]
//
// produced by the closed-form model fits.
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Translation returns a pure shift.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Homography lifts t into a projective matrix with bottom row (0, 0, 1).
func (t AffineTransform) Homography() Homography {
	return Homography{
		{t.A, t.B, t.TX},
		{t.C, t.D, t.TY},
		{0, 0, 1},
	}
}
