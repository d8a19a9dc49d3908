package canvas

import (
	"image"
	"image/color"

	"panostitch/pkg/geometry"
)

func drawOverlay(output *image.RGBA, overlay *Overlay, zoom float64) {
	if overlay == nil {
		return
	}
	for _, poly := range overlay.Polygons {
		drawPolygon(output, poly, overlay.Color, zoom)
	}
}

func drawPolygon(output *image.RGBA, poly OverlayPolygon, col color.RGBA, zoom float64) {
	if len(poly.Points) < 2 {
		return
	}
	scaled := make([]geometry.Point2D, len(poly.Points))
	for i, p := range poly.Points {
		scaled[i] = p.Scale(zoom)
	}
	n := len(scaled)
	for i := 0; i < n; i++ {
		p1, p2 := scaled[i], scaled[(i+1)%n]
		drawLine(output, int(p1.X), int(p1.Y), int(p2.X), int(p2.Y), col, 2)
	}
	if poly.Label != "" {
		c := geometry.Centroid(scaled)
		cx, cy := int(c.X), int(c.Y)
		drawLine(output, cx-4, cy, cx+4, cy, col, 1)
		drawLine(output, cx, cy-4, cx, cy+4, col, 1)
	}
}

// drawLine is Bresenham with a square pen of the given thickness.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				p := image.Point{X: x1 + s, Y: y1 + t}
				if p.In(bounds) {
					output.SetRGBA(p.X, p.Y, col)
				}
			}
		}
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
