package render

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"

	pimage "panostitch/internal/image"
)

// FileRender draws onto a copy of a background image with fogleman/gg and
// writes the result to a file on Finish.
type FileRender struct {
	dc   *gg.Context
	path string
}

// NewFileRender starts a drawing over bg that Finish saves to path. An
// empty path keeps the result in memory only.
func NewFileRender(bg image.Image, path string) *FileRender {
	dc := gg.NewContextForImage(bg)
	dc.SetLineWidth(1.5)
	dc.SetColor(color.White)
	return &FileRender{dc: dc, path: path}
}

func (r *FileRender) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.dc.Width(), r.dc.Height())
}

func (r *FileRender) SetColor(c color.Color) { r.dc.SetColor(c) }

// SetLineWidth changes the stroke width for following shapes.
func (r *FileRender) SetLineWidth(w float64) { r.dc.SetLineWidth(w) }

func (r *FileRender) Line(x0, y0, x1, y1 float64) {
	r.dc.DrawLine(x0, y0, x1, y1)
	r.dc.Stroke()
}

func (r *FileRender) Circle(cx, cy, radius float64) {
	r.dc.DrawCircle(cx, cy, radius)
	r.dc.Stroke()
}

// Image returns the current drawing.
func (r *FileRender) Image() image.Image { return r.dc.Image() }

// Finish writes the drawing. PNG goes through gg directly, other formats
// through the image codec.
func (r *FileRender) Finish() error {
	if r.path == "" {
		return nil
	}
	if strings.EqualFold(filepath.Ext(r.path), ".png") {
		if err := r.dc.SavePNG(r.path); err != nil {
			return &pimage.EncodeError{Path: r.path, Err: err}
		}
		return nil
	}
	return pimage.Save(r.dc.Image(), r.path)
}
