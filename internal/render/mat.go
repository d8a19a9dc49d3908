//go:build gocv

package render

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	pimage "panostitch/internal/image"
)

// MatRender draws into an OpenCV matrix and writes it with imwrite.
type MatRender struct {
	mat   gocv.Mat
	color color.RGBA
	path  string
}

// NewMatRender copies bg into a BGR matrix.
func NewMatRender(bg image.Image, path string) (*MatRender, error) {
	m, err := gocv.ImageToMatRGB(bg)
	if err != nil {
		return nil, errors.Wrap(err, "convert background")
	}
	return &MatRender{mat: m, color: color.RGBA{R: 255, G: 255, B: 255, A: 255}, path: path}, nil
}

func (r *MatRender) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.mat.Cols(), r.mat.Rows())
}

func (r *MatRender) SetColor(c color.Color) {
	r.color = color.RGBAModel.Convert(c).(color.RGBA)
}

func (r *MatRender) Line(x0, y0, x1, y1 float64) {
	gocv.Line(&r.mat, roundPoint(x0, y0), roundPoint(x1, y1), r.color, 1)
}

func (r *MatRender) Circle(cx, cy, radius float64) {
	gocv.Circle(&r.mat, roundPoint(cx, cy), int(math.Round(radius)), r.color, 1)
}

// Finish writes the matrix and releases it.
func (r *MatRender) Finish() error {
	defer r.mat.Close()
	if r.path == "" {
		return nil
	}
	if !gocv.IMWrite(r.path, r.mat) {
		return &pimage.EncodeError{Path: r.path, Err: errors.New("imwrite failed")}
	}
	return nil
}

func roundPoint(x, y float64) image.Point {
	return image.Point{X: int(math.Round(x)), Y: int(math.Round(y))}
}
