// Package config holds the tuning parameters shared by every pipeline stage.
//
// A Config is built once (defaults, then an optional file, then command line
// overrides), validated, and passed by pointer into each stage. Nothing in the
// pipeline reads process-wide state, so stitchers with different tuning can
// run side by side.
package config

import (
	"errors"
	"fmt"
)

// Transform model names accepted by TransformModel.
const (
	ModelTranslation = "translation"
	ModelRigid       = "rigid"
	ModelSimilarity  = "similarity"
	ModelAffine      = "affine"
	ModelHomography  = "homography"
)

// Nearest-neighbour search strategies accepted by MatchIndex.
const (
	IndexExhaustive = "exhaustive"
	IndexKDTree     = "kdtree"
)

var (
	// ErrConflictingModes is returned when mutually exclusive composition
	// modes are requested together.
	ErrConflictingModes = errors.New("conflicting composition modes")

	// ErrInvalidValue is returned when a parameter is outside its domain.
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Config is the flat set of tunables. Field tags give the key names used in
// configuration files.
type Config struct {
	// Composition modes. Pano assumes the inputs form an ordered sequence and
	// only matches neighbours; Trans searches all pairs with a translation-only
	// model (flat scans). They are mutually exclusive.
	Pano  bool `toml:"pano" yaml:"pano"`
	Trans bool `toml:"trans" yaml:"trans"`
	Crop  bool `toml:"crop" yaml:"crop"`

	// Scale space
	NumOctave         int     `toml:"num_octave" yaml:"num_octave"`
	NumScale          int     `toml:"num_scale" yaml:"num_scale"`
	ScaleFactor       float64 `toml:"scale_factor" yaml:"scale_factor"`
	GaussSigma        float64 `toml:"gauss_sigma" yaml:"gauss_sigma"`
	GaussWindowFactor float64 `toml:"gauss_window_factor" yaml:"gauss_window_factor"`

	// Extremum detection and rejection
	JudgeExtremaDiffThres float64 `toml:"judge_extrema_diff_thres" yaml:"judge_extrema_diff_thres"`
	ContrastThres         float64 `toml:"contrast_thres" yaml:"contrast_thres"`
	PreColorThres         float64 `toml:"pre_color_thres" yaml:"pre_color_thres"`
	EdgeRatio             float64 `toml:"edge_ratio" yaml:"edge_ratio"`
	CalcOffsetDepth       int     `toml:"calc_offset_depth" yaml:"calc_offset_depth"`
	OffsetThres           float64 `toml:"offset_thres" yaml:"offset_thres"`
	ImageBorder           int     `toml:"image_border" yaml:"image_border"`

	// Orientation
	OriRadius          float64 `toml:"ori_radius" yaml:"ori_radius"`
	OriWindowFactor    float64 `toml:"ori_window_factor" yaml:"ori_window_factor"`
	OriHistSmoothCount int     `toml:"ori_hist_smooth_count" yaml:"ori_hist_smooth_count"`
	OriHistPeakRatio   float64 `toml:"ori_hist_peak_ratio" yaml:"ori_hist_peak_ratio"`

	// Descriptor
	DescHistRealWidth float64 `toml:"desc_hist_real_width" yaml:"desc_hist_real_width"`
	DescNormThresh    float64 `toml:"desc_norm_thresh" yaml:"desc_norm_thresh"`
	DescIntFactor     float64 `toml:"desc_int_factor" yaml:"desc_int_factor"`

	// Matching
	MatchRejectNextRatio float64 `toml:"match_reject_next_ratio" yaml:"match_reject_next_ratio"`
	MatchMinSize         int     `toml:"match_min_size" yaml:"match_min_size"`
	MatchIndex           string  `toml:"match_index" yaml:"match_index"`

	// Transform estimation and connectivity
	ConnectedThres          int     `toml:"connected_thres" yaml:"connected_thres"`
	RansacIterations        int     `toml:"ransac_iterations" yaml:"ransac_iterations"`
	RansacInlierThres       float64 `toml:"ransac_inlier_thres" yaml:"ransac_inlier_thres"`
	RansacMinInlierFraction float64 `toml:"ransac_min_inlier_fraction" yaml:"ransac_min_inlier_fraction"`
	RansacRefine            bool    `toml:"ransac_refine" yaml:"ransac_refine"`
	TransformModel          string  `toml:"transform_model" yaml:"transform_model"`
	Seed                    int64   `toml:"seed" yaml:"seed"`

	// Output
	OutputSizeFactor float64 `toml:"output_size_factor" yaml:"output_size_factor"`
	Reference        int     `toml:"reference" yaml:"reference"` // -1 selects the most connected image
	MaxInputDim      int     `toml:"max_input_dim" yaml:"max_input_dim"`

	Debug bool `toml:"debug" yaml:"debug"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		NumOctave:         3,
		NumScale:          3,
		ScaleFactor:       1.2599210498948732, // 2^(1/3)
		GaussSigma:        1.6,
		GaussWindowFactor: 3,

		JudgeExtremaDiffThres: 0,
		ContrastThres:         0.03,
		PreColorThres:         0.005,
		EdgeRatio:             10,
		CalcOffsetDepth:       5,
		OffsetThres:           0.5,
		ImageBorder:           1,

		OriRadius:          4.5,
		OriWindowFactor:    1.5,
		OriHistSmoothCount: 2,
		OriHistPeakRatio:   0.8,

		DescHistRealWidth: 3,
		DescNormThresh:    0.2,
		DescIntFactor:     512,

		MatchRejectNextRatio: 0.8,
		MatchMinSize:         6,
		MatchIndex:           IndexExhaustive,

		ConnectedThres:          10,
		RansacIterations:        1500,
		RansacInlierThres:       3.0,
		RansacMinInlierFraction: 0.1,
		RansacRefine:            true,
		TransformModel:          ModelHomography,
		Seed:                    1,

		OutputSizeFactor: 4,
		Reference:        -1,
	}
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// EffectiveModel returns the transform model after composition modes are
// taken into account.
func (c *Config) EffectiveModel() string {
	if c.Trans {
		return ModelTranslation
	}
	return c.TransformModel
}

// Validate checks for contradictions and out-of-domain values. It must be
// called before any image is processed.
func (c *Config) Validate() error {
	if c.Pano && c.Trans {
		return fmt.Errorf("%w: pano and trans are both set", ErrConflictingModes)
	}

	positiveInts := []struct {
		name string
		v    int
	}{
		{"num_octave", c.NumOctave},
		{"num_scale", c.NumScale},
		{"calc_offset_depth", c.CalcOffsetDepth},
		{"ransac_iterations", c.RansacIterations},
		{"connected_thres", c.ConnectedThres},
		{"match_min_size", c.MatchMinSize},
	}
	for _, p := range positiveInts {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidValue, p.name, p.v)
		}
	}

	positiveFloats := []struct {
		name string
		v    float64
	}{
		{"gauss_sigma", c.GaussSigma},
		{"gauss_window_factor", c.GaussWindowFactor},
		{"edge_ratio", c.EdgeRatio},
		{"offset_thres", c.OffsetThres},
		{"ori_radius", c.OriRadius},
		{"ori_window_factor", c.OriWindowFactor},
		{"desc_hist_real_width", c.DescHistRealWidth},
		{"desc_norm_thresh", c.DescNormThresh},
		{"ransac_inlier_thres", c.RansacInlierThres},
		{"output_size_factor", c.OutputSizeFactor},
	}
	for _, p := range positiveFloats {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidValue, p.name, p.v)
		}
	}

	if c.ScaleFactor <= 1 {
		return fmt.Errorf("%w: scale_factor must exceed 1, got %g", ErrInvalidValue, c.ScaleFactor)
	}
	if c.MatchRejectNextRatio <= 0 || c.MatchRejectNextRatio > 1 {
		return fmt.Errorf("%w: match_reject_next_ratio must be in (0, 1], got %g", ErrInvalidValue, c.MatchRejectNextRatio)
	}
	if c.OriHistPeakRatio <= 0 || c.OriHistPeakRatio > 1 {
		return fmt.Errorf("%w: ori_hist_peak_ratio must be in (0, 1], got %g", ErrInvalidValue, c.OriHistPeakRatio)
	}
	if c.RansacMinInlierFraction < 0 || c.RansacMinInlierFraction > 1 {
		return fmt.Errorf("%w: ransac_min_inlier_fraction must be in [0, 1], got %g", ErrInvalidValue, c.RansacMinInlierFraction)
	}
	if c.OriHistSmoothCount < 0 || c.ImageBorder < 1 || c.MaxInputDim < 0 {
		return fmt.Errorf("%w: ori_hist_smooth_count, image_border and max_input_dim must not be negative (image_border >= 1)", ErrInvalidValue)
	}

	switch c.TransformModel {
	case ModelTranslation, ModelRigid, ModelSimilarity, ModelAffine, ModelHomography:
	default:
		return fmt.Errorf("%w: unknown transform_model %q", ErrInvalidValue, c.TransformModel)
	}
	switch c.MatchIndex {
	case IndexExhaustive, IndexKDTree:
	default:
		return fmt.Errorf("%w: unknown match_index %q", ErrInvalidValue, c.MatchIndex)
	}
	return nil
}
