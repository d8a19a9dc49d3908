// Package canvas provides overlay types for the image canvas.
package canvas

import (
	"image/color"

	"panostitch/pkg/geometry"
)

// Overlay is a set of outlines drawn over the image.
type Overlay struct {
	Polygons []OverlayPolygon
	Color    color.RGBA
}

// OverlayPolygon is a closed outline in image coordinates.
type OverlayPolygon struct {
	Points []geometry.Point2D
	Label  string // Drawn as a marker at the centroid when non-empty
}
