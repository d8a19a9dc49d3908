// Command panoview displays a stitched panorama with the footprint of every
// input, or a single image with its detected features.
//
// Usage:
//
//	panoview run.json      report written by panostitch -report
//	panoview photo.jpg     image with keypoints
//	panoview               reopen the last path
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"panostitch/internal/config"
	pimage "panostitch/internal/image"
	"panostitch/internal/keypoint"
	"panostitch/internal/render"
	"panostitch/internal/report"
	"panostitch/pkg/colorutil"
	"panostitch/pkg/geometry"
	"panostitch/ui/canvas"
	"panostitch/ui/prefs"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "", "Configuration file for feature detection")
	flag.Parse()
	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config file] [report.json | image]\n", os.Args[0])
		os.Exit(2)
	}

	a := app.NewWithID("io.panostitch.panoview")
	p := prefs.New(a.Preferences())

	path := flag.Arg(0)
	if path == "" {
		if path = p.LastPath(); path == "" {
			fmt.Fprintf(os.Stderr, "Usage: %s [-config file] [report.json | image]\n", os.Args[0])
			os.Exit(2)
		}
		log.Printf("Reopening %s", path)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Config: %v", err)
		}
	}

	w := a.NewWindow("panoview - " + filepath.Base(path))

	ic := canvas.NewImageCanvas()
	status := widget.NewLabel("")

	var (
		extra fyne.CanvasObject
		err   error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		extra, err = showReport(a, ic, status, path, cfg)
	} else {
		err = showFeatures(ic, status, path, cfg)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	p.SetLastPath(path)

	zoomLabel := widget.NewLabel("")
	ic.OnZoomChange(func(z float64) {
		zoomLabel.SetText(fmt.Sprintf("%.0f%%", z*100))
		p.SetZoom(z)
	})
	fit := widget.NewCheck("Fit", func(on bool) {
		ic.SetFitToWindow(on)
		p.SetFit(on)
	})
	toolbar := container.NewHBox(
		widget.NewButton("-", ic.ZoomOut),
		widget.NewButton("+", ic.ZoomIn),
		fit,
		zoomLabel,
	)
	if extra != nil {
		toolbar.Add(extra)
	}

	w.SetContent(container.NewBorder(toolbar, status, nil, nil, ic.Container()))
	w.Resize(fyne.NewSize(1200, 800))

	ic.SetZoom(p.Zoom())
	fit.SetChecked(p.Fit())
	w.ShowAndRun()
}

// showReport loads the stitched image named by a report and outlines each
// placed input. Clicks report which inputs cover the point. The returned
// selector opens an input with its features in a new window.
func showReport(a fyne.App, ic *canvas.ImageCanvas, status *widget.Label, path string, cfg *config.Config) (fyne.CanvasObject, error) {
	f, err := report.Load(path)
	if err != nil {
		return nil, err
	}
	img, err := decode(f.OutputPath(path))
	if err != nil {
		return nil, err
	}
	ic.SetImage(img)

	colors := colorutil.Palette(len(f.Inputs))
	for i := range f.Inputs {
		outline, ok := f.Outline(i)
		if !ok {
			continue
		}
		ic.SetOverlay(fmt.Sprintf("input%03d", i), &canvas.Overlay{
			Color:    colors[i],
			Polygons: []canvas.OverlayPolygon{{Points: outline, Label: filepath.Base(f.Inputs[i].Path)}},
		})
	}

	placed := 0
	for _, in := range f.Inputs {
		if in.Connected {
			placed++
		}
	}
	summary := fmt.Sprintf("%s: %dx%d, %d of %d inputs placed, model %s, reference %d",
		filepath.Base(path), f.Width, f.Height, placed, len(f.Inputs), f.Model, f.Reference)
	status.SetText(summary)

	ic.OnLeftClick(func(x, y float64) {
		idx, local := f.Covering(geometry.Point2D{X: x, Y: y})
		if len(idx) == 0 {
			status.SetText(fmt.Sprintf("(%.0f, %.0f): no input", x, y))
			return
		}
		parts := make([]string, len(idx))
		for k, i := range idx {
			parts[k] = fmt.Sprintf("%s (%.1f, %.1f)", filepath.Base(f.Inputs[i].Path), local[k].X, local[k].Y)
		}
		status.SetText(fmt.Sprintf("(%.0f, %.0f): %s", x, y, strings.Join(parts, ", ")))
	})

	names := make([]string, len(f.Inputs))
	for i, in := range f.Inputs {
		names[i] = fmt.Sprintf("%d: %s", i, filepath.Base(in.Path))
	}
	open := widget.NewSelect(names, func(choice string) {
		i := indexOf(names, choice)
		if i < 0 {
			return
		}
		inPath := f.InputPath(path, i)
		iw := a.NewWindow(filepath.Base(inPath))
		view := canvas.NewImageCanvas()
		label := widget.NewLabel("")
		if err := showFeatures(view, label, inPath, cfg); err != nil {
			log.Printf("Warning: %v", err)
			status.SetText(err.Error())
			return
		}
		iw.SetContent(container.NewBorder(nil, label, nil, nil, view.Container()))
		iw.Resize(fyne.NewSize(900, 600))
		iw.Show()
		view.SetFitToWindow(true)
	})
	open.PlaceHolder = "Open input"
	return open, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// showFeatures detects keypoints in one image and draws them over it.
func showFeatures(ic *canvas.ImageCanvas, status *widget.Label, path string, cfg *config.Config) error {
	img, err := pimage.LoadMax(path, cfg.MaxInputDim)
	if err != nil {
		return err
	}
	feats, err := keypoint.Detect(img, cfg)
	if err != nil {
		log.Printf("Warning: %v", err)
	}

	fr := render.NewFileRender(img.ToGo(nil), "")
	render.DrawFeatures(render.NewDrawer(fr), feats, colorutil.Green)
	ic.SetImage(fr.Image())
	status.SetText(fmt.Sprintf("%s: %dx%d, %d features", filepath.Base(path), img.Width, img.Height, len(feats)))

	ic.OnLeftClick(func(x, y float64) {
		best, bestDist := -1, 0.0
		for i, f := range feats {
			d := f.Coord.Distance(geometry.Point2D{X: x, Y: y})
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 || bestDist > 10 {
			status.SetText(fmt.Sprintf("(%.0f, %.0f)", x, y))
			return
		}
		f := feats[best]
		status.SetText(fmt.Sprintf("feature %d at (%.1f, %.1f): octave %d, sigma %.2f, dir %.2f rad",
			best, f.Coord.X, f.Coord.Y, f.Octave, f.Sigma, f.Dir))
	})
	return nil
}

func decode(path string) (image.Image, error) {
	img, err := pimage.Load(path)
	if err != nil {
		return nil, err
	}
	return img.ToGo(nil), nil
}
