// Package render draws diagnostic overlays (keypoints, matches) on images.
//
// Drawing goes through a Target so that the same overlay code can write
// through fogleman/gg (FileRender) or through OpenCV when built with the
// gocv tag (MatRender).
package render

import (
	"image"
	"image/color"
	"math"

	"panostitch/pkg/geometry"
)

// Target is a drawing surface.
type Target interface {
	Bounds() image.Rectangle
	SetColor(c color.Color)
	Line(x0, y0, x1, y1 float64)
	Circle(cx, cy, r float64)
	// Finish flushes the drawing, typically by writing it to disk.
	Finish() error
}

// Drawer adds composite shapes on top of a Target.
type Drawer struct {
	t Target
}

// NewDrawer wraps t.
func NewDrawer(t Target) *Drawer {
	return &Drawer{t: t}
}

func (d *Drawer) SetColor(c color.Color) { d.t.SetColor(c) }

func (d *Drawer) Line(a, b geometry.Point2D) { d.t.Line(a.X, a.Y, b.X, b.Y) }

func (d *Drawer) Circle(c geometry.Point2D, r float64) { d.t.Circle(c.X, c.Y, r) }

// Cross draws an axis-aligned plus sign with arms of length size.
func (d *Drawer) Cross(c geometry.Point2D, size float64) {
	d.t.Line(c.X-size, c.Y, c.X+size, c.Y)
	d.t.Line(c.X, c.Y-size, c.X, c.Y+size)
}

// Arrow draws a line of the given length from p in direction dir (radians)
// with a two-stroke head.
func (d *Drawer) Arrow(p geometry.Point2D, dir, length float64) {
	tip := geometry.Point2D{X: p.X + length*math.Cos(dir), Y: p.Y + length*math.Sin(dir)}
	d.Line(p, tip)

	head := length / 4
	for _, side := range []float64{-1, 1} {
		a := dir + math.Pi - side*math.Pi/6
		d.t.Line(tip.X, tip.Y, tip.X+head*math.Cos(a), tip.Y+head*math.Sin(a))
	}
}
