package panorama

import (
	"context"
	"image"
	"log"
	"math"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/pkg/errors"

	pimage "panostitch/internal/image"
	"panostitch/pkg/geometry"
)

// compose sizes the canvas, warps every connected image onto it and
// optionally crops to the fully covered area.
func (s *Stitcher) compose(ctx context.Context, imgs []*pimage.Image, res *Result) error {
	bounds, err := s.canvasBounds(imgs, res)
	if err != nil {
		return err
	}
	origin, width, height := bounds.PixelGrid()
	res.Offset = origin.Scale(-1)

	if s.cfg.Debug {
		log.Printf("canvas %dx%d, reference %d at (%.0f, %.0f)", width, height, res.Reference, res.Offset.X, res.Offset.Y)
	}

	acc := pimage.NewAccumulator(width, height, imgs[0].Channels)
	shift := geometry.TranslationHomography(res.Offset.X, res.Offset.Y)
	for i, img := range imgs {
		if !res.Connected(i) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := warpInto(acc, img, shift.Mul(res.Transforms[i])); err != nil {
			return errors.Wrapf(err, "image %d", i)
		}
	}

	res.Image, res.Coverage = acc.Resolve()
	res.Crop = image.Rect(0, 0, width, height)
	if s.cfg.Crop {
		rect := MaxCoveredRect(res.Coverage, width, height)
		if rect.Empty() {
			log.Printf("Warning: no fully covered rectangle, keeping the full canvas")
		} else {
			res.Crop = rect
			res.Image, res.Coverage = cropTo(res.Image, res.Coverage, rect)
			res.Offset = res.Offset.Sub(geometry.Point2D{X: float64(rect.Min.X), Y: float64(rect.Min.Y)})
		}
	}
	return nil
}

// canvasBounds returns the union of the warped pixel-corner positions of
// every connected image in the reference frame. Images whose outline maps to
// infinity are marked disconnected.
func (s *Stitcher) canvasBounds(imgs []*pimage.Image, res *Result) (geometry.Box, error) {
	var (
		corners   []geometry.Point2D
		inputArea float64
	)
	for i, img := range imgs {
		if !res.Connected(i) {
			continue
		}
		c, ok := res.Transforms[i].Corners(img.Width, img.Height)
		if !ok {
			log.Printf("Warning: image %d maps to infinity, skipping", i)
			res.Disconnected = append(res.Disconnected, i)
			continue
		}
		corners = append(corners, c...)
		inputArea += float64(img.Width * img.Height)
	}
	if len(corners) == 0 {
		return geometry.Box{}, errors.Wrap(ErrNoConnectedImages, "no image could be placed")
	}

	box := geometry.BoundingBox(corners)
	_, w, h := box.PixelGrid()
	if float64(w)*float64(h) > s.cfg.OutputSizeFactor*inputArea {
		return geometry.Box{}, errors.Wrapf(ErrCanvasTooLarge, "%dx%d canvas for %.0f input pixels", w, h, inputArea)
	}
	return box, nil
}

// warpInto inverse-maps every canvas pixel inside the warped outline of img
// and accumulates bilinear samples weighted by distance to the image border.
// Rows are processed in parallel; each row touches only its own pixels.
func warpInto(acc *pimage.Accumulator, img *pimage.Image, toCanvas geometry.Homography) error {
	inv, ok := toCanvas.Inverse()
	if !ok {
		return errors.New("transform is not invertible")
	}
	corners, ok := toCanvas.Corners(img.Width, img.Height)
	if !ok {
		return errors.New("transform maps image to infinity")
	}
	box := geometry.BoundingBox(corners)
	x0 := max(int(math.Floor(box.Min.X)), 0)
	y0 := max(int(math.Floor(box.Min.Y)), 0)
	x1 := min(int(math.Ceil(box.Max.X)), acc.Width-1)
	y1 := min(int(math.Ceil(box.Max.Y)), acc.Height-1)
	if x1 < x0 || y1 < y0 {
		return nil
	}

	w, h := float64(img.Width), float64(img.Height)
	parallel.Line(y1-y0+1, func(start, end int) {
		vals := make([]float64, img.Channels)
		for y := y0 + start; y < y0+end; y++ {
			for x := x0; x <= x1; x++ {
				p, ok := inv.Apply(geometry.Point2D{X: float64(x), Y: float64(y)})
				if !ok || !img.Bilinear(p.X, p.Y, vals) {
					continue
				}
				weight := math.Min(math.Min(p.X+1, w-p.X), math.Min(p.Y+1, h-p.Y))
				acc.Add(x, y, vals, weight)
			}
		}
	})
	return nil
}
