package render

import (
	"image/color"

	"panostitch/internal/keypoint"
	"panostitch/internal/match"
	"panostitch/pkg/colorutil"
	"panostitch/pkg/geometry"
)

// DrawFeatures marks each feature with a circle of its scale and an arrow
// along its orientation.
func DrawFeatures(d *Drawer, feats []keypoint.Feature, c color.Color) {
	d.SetColor(c)
	for _, f := range feats {
		r := max(f.Sigma, 1.5)
		d.Circle(f.Coord, r)
		d.Arrow(f.Coord, f.Dir, 2*r)
	}
}

// DrawMatches connects matched features of two images drawn side by side.
// offB is the position of the second image's origin on the target.
func DrawMatches(d *Drawer, fa, fb []keypoint.Feature, pairs []match.Pair, offB geometry.Point2D) {
	colors := colorutil.Palette(len(pairs))
	for i, p := range pairs {
		a := fa[p.A].Coord
		b := fb[p.B].Coord.Add(offB)
		d.SetColor(colors[i])
		d.Circle(a, 3)
		d.Circle(b, 3)
		d.Line(a, b)
	}
}

// DrawExtrema marks refined DoG extrema with crosses, maxima and minima in
// different colours.
func DrawExtrema(d *Drawer, ext []keypoint.Extremum) {
	for _, e := range ext {
		if e.Value > 0 {
			d.SetColor(colorutil.Yellow)
		} else {
			d.SetColor(colorutil.Cyan)
		}
		d.Cross(e.Coord(), 3)
	}
}
