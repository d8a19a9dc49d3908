// Command featuretest runs single stages of the stitching pipeline on one or
// two images and writes a diagnostic overlay.
//
// Modes:
//
//	extrema   img          refined DoG extrema as crosses
//	features  img          keypoints with scale circles and orientation arrows
//	matches   imgA imgB    side-by-side pair with coloured match lines
//	transform imgA imgB    two-image stitch
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"

	"panostitch/internal/alignment"
	"panostitch/internal/config"
	pimage "panostitch/internal/image"
	"panostitch/internal/keypoint"
	"panostitch/internal/match"
	"panostitch/internal/panorama"
	"panostitch/internal/render"
	"panostitch/internal/scalespace"
	"panostitch/pkg/colorutil"
	"panostitch/pkg/geometry"
)

func main() {
	mode := flag.String("mode", "features", "extrema, features, matches or transform")
	output := flag.String("o", "featuretest.png", "Output image path")
	configPath := flag.String("config", "", "Configuration file (.toml, .yaml)")
	debug := flag.Bool("debug", false, "Verbose output")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fatalf("Config: %v", err)
		}
	}
	cfg.Debug = cfg.Debug || *debug
	if err := cfg.Validate(); err != nil {
		fatalf("Config: %v", err)
	}

	args := flag.Args()
	need := 1
	if *mode == "matches" || *mode == "transform" {
		need = 2
	}
	if len(args) != need {
		fmt.Printf("Usage: featuretest -mode %s [-o out.png] %s\n", *mode, map[int]string{1: "<img>", 2: "<imgA> <imgB>"}[need])
		os.Exit(1)
	}

	imgs := make([]*pimage.Image, len(args))
	for i, path := range args {
		img, err := pimage.LoadMax(path, cfg.MaxInputDim)
		if err != nil {
			fatalf("Load: %v", err)
		}
		imgs[i] = img
		fmt.Printf("=== %s: %dx%d ===\n", path, img.Width, img.Height)
	}

	var err error
	switch *mode {
	case "extrema":
		err = runExtrema(imgs[0], cfg, *output)
	case "features":
		err = runFeatures(imgs[0], cfg, *output)
	case "matches":
		err = runMatches(imgs[0], imgs[1], cfg, *output)
	case "transform":
		err = runTransform(imgs, cfg, *output)
	default:
		fatalf("Unknown mode %q", *mode)
	}
	if err != nil {
		fatalf("%s: %v", *mode, err)
	}
	fmt.Printf("Wrote %s\n", *output)
}

func runExtrema(img *pimage.Image, cfg *config.Config, out string) error {
	ss, err := scalespace.New(img, cfg)
	if err != nil {
		return err
	}
	ext := keypoint.Extrema(scalespace.NewDoG(ss), cfg)

	perOctave := make([]int, cfg.NumOctave)
	for _, e := range ext {
		perOctave[e.Octave]++
	}
	fmt.Printf("%d extrema (per octave %v)\n", len(ext), perOctave)

	t, err := newTarget(img.ToGo(nil), out)
	if err != nil {
		return err
	}
	render.DrawExtrema(render.NewDrawer(t), ext)
	return t.Finish()
}

func runFeatures(img *pimage.Image, cfg *config.Config, out string) error {
	feats, err := keypoint.Detect(img, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("%d features\n", len(feats))

	t, err := newTarget(img.ToGo(nil), out)
	if err != nil {
		return err
	}
	render.DrawFeatures(render.NewDrawer(t), feats, colorutil.Green)
	return t.Finish()
}

func runMatches(a, b *pimage.Image, cfg *config.Config, out string) error {
	fa, err := keypoint.Detect(a, cfg)
	if err != nil {
		return fmt.Errorf("first image: %w", err)
	}
	fb, err := keypoint.Detect(b, cfg)
	if err != nil {
		return fmt.Errorf("second image: %w", err)
	}
	pairs := match.Match(fa, fb, cfg)
	fmt.Printf("%d / %d features, %d matches\n", len(fa), len(fb), len(pairs))
	if err := match.Check(pairs, cfg); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	if len(pairs) >= 1 {
		src := make([]geometry.Point2D, len(pairs))
		dst := make([]geometry.Point2D, len(pairs))
		for i, p := range pairs {
			src[i] = fb[p.B].Coord
			dst[i] = fa[p.A].Coord
		}
		if est, err := alignment.NewEstimator(cfg, cfg.Seed); err == nil {
			if fit, err := est.Estimate(src, dst); err == nil {
				fmt.Printf("%s: %d inliers after %d samples, mean error %.3f px\n",
					est.Model, len(fit.Inliers), fit.Iterations,
					alignment.MeanError(pick(src, fit.Inliers), pick(dst, fit.Inliers), fit.H))
				fmt.Printf("H = %v\n", fit.H)
			} else {
				fmt.Printf("RANSAC: %v\n", err)
			}
		}
	}

	canvas, offsets := pimage.Concat(a.ToGo(nil), b.ToGo(nil))
	t, err := newTarget(canvas, out)
	if err != nil {
		return err
	}
	render.DrawMatches(render.NewDrawer(t), fa, fb, pairs, geometry.Point2D{X: float64(offsets[1])})
	return t.Finish()
}

func runTransform(imgs []*pimage.Image, cfg *config.Config, out string) error {
	res, err := panorama.NewStitcher(cfg).Stitch(context.Background(), imgs)
	if err != nil {
		return err
	}
	for _, e := range res.Edges {
		fmt.Printf("edge %d-%d: %d inliers, error %.3f px\n", e.I, e.J, e.Inliers, e.Error)
	}
	for i, h := range res.Transforms {
		if res.Connected(i) {
			fmt.Printf("T[%d] = %v\n", i, h)
		}
	}
	fmt.Printf("canvas %dx%d, reference %d\n", res.Image.Width, res.Image.Height, res.Reference)
	var bg image.Image = res.Image.ToGo(res.Coverage)
	return pimage.Save(bg, out)
}

func pick(pts []geometry.Point2D, idx []int) []geometry.Point2D {
	out := make([]geometry.Point2D, len(idx))
	for i, k := range idx {
		out[i] = pts[k]
	}
	return out
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
