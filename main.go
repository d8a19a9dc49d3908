// Command panostitch stitches overlapping photographs into one panorama.
//
// Usage:
//
//	panostitch [flags] -o out.png img1.jpg img2.jpg ...
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"panostitch/internal/config"
	pimage "panostitch/internal/image"
	"panostitch/internal/panorama"
	"panostitch/internal/report"
	"panostitch/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "", "Configuration file (.toml, .yaml)")
	output := flag.String("o", "out.png", "Output image path")
	crop := flag.Bool("crop", false, "Crop to the largest fully covered rectangle")
	pano := flag.Bool("pano", false, "Inputs are an ordered sequence; match neighbours only")
	trans := flag.Bool("trans", false, "Translation-only model over all pairs (flat scans)")
	ref := flag.Int("ref", -1, "Reference image index (-1 = most connected)")
	seed := flag.Int64("seed", 1, "Random seed for RANSAC")
	reportPath := flag.String("report", "", "Write a JSON report to this path")
	debug := flag.Bool("debug", false, "Verbose progress output")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] image1 image2 ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("panostitch %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Config: %v", err)
		}
	}

	// Flags given explicitly override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "crop":
			cfg.Crop = *crop
		case "pano":
			cfg.Pano = *pano
		case "trans":
			cfg.Trans = *trans
		case "ref":
			cfg.Reference = *ref
		case "seed":
			cfg.Seed = *seed
		case "debug":
			cfg.Debug = *debug
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config: %v", err)
	}

	inputs := flag.Args()
	if len(inputs) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	imgs := make([]*pimage.Image, len(inputs))
	sizes := make([][2]int, len(inputs))
	for i, path := range inputs {
		img, err := pimage.LoadMax(path, cfg.MaxInputDim)
		if err != nil {
			log.Fatalf("Load: %v", err)
		}
		imgs[i] = img
		sizes[i] = [2]int{img.Width, img.Height}
		if cfg.Debug {
			log.Printf("Loaded %s (%dx%d)", path, img.Width, img.Height)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, err := panorama.NewStitcher(cfg).Stitch(ctx, imgs)
	if err != nil {
		log.Fatalf("Stitch: %v", err)
	}
	log.Printf("Stitched %d of %d images into %dx%d in %s",
		len(imgs)-len(res.Disconnected), len(imgs), res.Image.Width, res.Image.Height,
		time.Since(start).Round(time.Millisecond))

	if err := pimage.Save(res.Image.ToGo(res.Coverage), *output); err != nil {
		log.Fatalf("Save: %v", err)
	}
	log.Printf("Wrote %s", *output)

	if *reportPath != "" {
		f := report.New(*reportPath, inputs, sizes, *output, cfg.EffectiveModel(), cfg.Seed, res)
		if err := f.Save(*reportPath); err != nil {
			log.Fatalf("Report: %v", err)
		}
		log.Printf("Wrote %s", *reportPath)
	}
}
