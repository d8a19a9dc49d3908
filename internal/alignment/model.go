package alignment

import (
	"fmt"

	"panostitch/internal/config"
	"panostitch/pkg/geometry"
)

// Model selects the family of transforms RANSAC fits.
type Model int

const (
	Translation Model = iota
	Rigid
	Similarity
	Affine
	Homography
)

func (m Model) String() string {
	switch m {
	case Translation:
		return config.ModelTranslation
	case Rigid:
		return config.ModelRigid
	case Similarity:
		return config.ModelSimilarity
	case Affine:
		return config.ModelAffine
	case Homography:
		return config.ModelHomography
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// MinSamples returns the number of correspondences of a minimal fit.
func (m Model) MinSamples() int {
	switch m {
	case Translation:
		return 1
	case Rigid, Similarity:
		return 2
	case Affine:
		return 3
	default:
		return 4
	}
}

// ParseModel maps a configuration name to a Model.
func ParseModel(name string) (Model, error) {
	for m := Translation; m <= Homography; m++ {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown transform model %q", name)
}

// fitMinimal computes the model from exactly MinSamples pairs.
func (m Model) fitMinimal(src, dst []geometry.Point2D) (geometry.Homography, error) {
	switch m {
	case Translation:
		return computeTranslation(src, dst).Homography(), nil
	case Rigid:
		t, err := computeRigidFrom2(src[0], src[1], dst[0], dst[1])
		return t.Homography(), err
	case Similarity:
		t, err := computeSimilarityFrom2(src[0], src[1], dst[0], dst[1])
		return t.Homography(), err
	case Affine:
		t, err := computeAffineFromPoints(src, dst)
		return t.Homography(), err
	default:
		return computeHomographyFrom4(src, dst)
	}
}

// fitAll computes the least-squares model over every pair.
func (m Model) fitAll(src, dst []geometry.Point2D) (geometry.Homography, error) {
	switch m {
	case Translation:
		return computeTranslation(src, dst).Homography(), nil
	case Rigid:
		return computeRigidLeastSquares(src, dst).Homography(), nil
	case Similarity:
		t, err := computeSimilarityLeastSquares(src, dst)
		return t.Homography(), err
	case Affine:
		t, err := computeAffineLeastSquares(src, dst)
		return t.Homography(), err
	default:
		return computeHomographyDLT(src, dst)
	}
}
