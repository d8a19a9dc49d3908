//go:build gocv

package main

import (
	"image"

	"panostitch/internal/render"
)

func newTarget(bg image.Image, path string) (render.Target, error) {
	r, err := render.NewMatRender(bg, path)
	if err != nil {
		return nil, err
	}
	return r, nil
}
