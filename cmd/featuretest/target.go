//go:build !gocv

package main

import (
	"image"

	"panostitch/internal/render"
)

func newTarget(bg image.Image, path string) (render.Target, error) {
	return render.NewFileRender(bg, path), nil
}
