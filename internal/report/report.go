// Package report writes a JSON summary of a stitching run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"panostitch/internal/panorama"
	"panostitch/internal/version"
	"panostitch/pkg/geometry"
)

// File is the on-disk report.
type File struct {
	Version   int       `json:"version"`
	Tool      string    `json:"tool"`
	Created   time.Time `json:"created"`
	Output    string    `json:"output,omitempty"`
	Model     string    `json:"model"`
	Seed      int64     `json:"seed"`
	Reference int       `json:"reference"`

	Inputs []Input `json:"inputs"`
	Edges  []Edge  `json:"edges"`

	Width  int              `json:"width"`
	Height int              `json:"height"`
	Offset geometry.Point2D `json:"offset"`
}

// Input describes one input image and where it ended up.
type Input struct {
	Path      string               `json:"path"`
	Width     int                  `json:"width"`
	Height    int                  `json:"height"`
	Features  int                  `json:"features"`
	Connected bool                 `json:"connected"`
	Transform *geometry.Homography `json:"transform,omitempty"`
}

// Edge is an accepted pairwise transform.
type Edge struct {
	I       int                 `json:"i"`
	J       int                 `json:"j"`
	Inliers int                 `json:"inliers"`
	Error   float64             `json:"error"`
	H       geometry.Homography `json:"h"`
}

// New summarises res. Paths are stored relative to the directory of
// reportPath where possible.
func New(reportPath string, inputs []string, sizes [][2]int, output, model string, seed int64, res *panorama.Result) *File {
	f := &File{
		Version:   1,
		Tool:      version.Version,
		Created:   time.Now(),
		Output:    relative(reportPath, output),
		Model:     model,
		Seed:      seed,
		Reference: res.Reference,
		Offset:    res.Offset,
	}
	if res.Image != nil {
		f.Width, f.Height = res.Image.Width, res.Image.Height
	}

	for i, path := range inputs {
		in := Input{
			Path:      relative(reportPath, path),
			Connected: res.Connected(i),
		}
		if i < len(sizes) {
			in.Width, in.Height = sizes[i][0], sizes[i][1]
		}
		if i < len(res.Features) {
			in.Features = len(res.Features[i])
		}
		if in.Connected && i < len(res.Transforms) {
			h := res.Transforms[i]
			in.Transform = &h
		}
		f.Inputs = append(f.Inputs, in)
	}
	for _, e := range res.Edges {
		f.Edges = append(f.Edges, Edge{I: e.I, J: e.J, Inliers: e.Inliers, Error: e.Error, H: e.H})
	}
	return f
}

// Load reads a report.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the report as indented JSON.
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// InputPath returns the absolute path of input i.
func (f *File) InputPath(reportPath string, i int) string {
	return absolute(reportPath, f.Inputs[i].Path)
}

// OutputPath returns the absolute path of the stitched image.
func (f *File) OutputPath(reportPath string) string {
	return absolute(reportPath, f.Output)
}

func relative(reportPath, path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(filepath.Dir(reportPath), path)
	if err != nil {
		return path
	}
	return rel
}

func absolute(reportPath, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(reportPath), path)
}

// Outline returns the corners of input i in output image coordinates, or
// false if the input was not placed.
func (f *File) Outline(i int) ([]geometry.Point2D, bool) {
	in := f.Inputs[i]
	if !in.Connected || in.Transform == nil {
		return nil, false
	}
	corners, ok := in.Transform.Corners(in.Width, in.Height)
	if !ok {
		return nil, false
	}
	for k := range corners {
		corners[k] = corners[k].Add(f.Offset)
	}
	return corners, true
}

// Covering lists the inputs whose footprint contains p, given in output
// image coordinates, with p mapped into each input's own frame.
func (f *File) Covering(p geometry.Point2D) ([]int, []geometry.Point2D) {
	var idx []int
	var local []geometry.Point2D
	q := p.Sub(f.Offset)
	for i, in := range f.Inputs {
		if !in.Connected || in.Transform == nil {
			continue
		}
		inv, ok := in.Transform.Inverse()
		if !ok {
			continue
		}
		s, ok := inv.Apply(q)
		if !ok || s.X < 0 || s.Y < 0 || s.X > float64(in.Width-1) || s.Y > float64(in.Height-1) {
			continue
		}
		idx = append(idx, i)
		local = append(local, s)
	}
	return idx, local
}
