package alignment

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panostitch/internal/config"
	"panostitch/pkg/geometry"
)

// correspondences maps random points through h and appends gross outliers.
func correspondences(rng *rand.Rand, h geometry.Homography, inliers, outliers int) ([]geometry.Point2D, []geometry.Point2D) {
	var src, dst []geometry.Point2D
	for len(src) < inliers {
		p := geometry.Point2D{X: rng.Float64() * 400, Y: rng.Float64() * 300}
		q, ok := h.Apply(p)
		if !ok {
			continue
		}
		src = append(src, p)
		dst = append(dst, q)
	}
	for i := 0; i < outliers; i++ {
		src = append(src, geometry.Point2D{X: rng.Float64() * 400, Y: rng.Float64() * 300})
		dst = append(dst, geometry.Point2D{X: rng.Float64()*400 + 500, Y: rng.Float64() * 300})
	}
	return src, dst
}

func assertHomographyNear(t *testing.T, want, got geometry.Homography, tol float64) {
	t.Helper()
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 400, Y: 0}, {X: 400, Y: 300}, {X: 0, Y: 300}, {X: 200, Y: 150}} {
		a, ok := want.Apply(p)
		require.True(t, ok)
		b, ok := got.Apply(p)
		require.True(t, ok)
		assert.Less(t, a.Distance(b), tol, "point %+v", p)
	}
}

func testEstimator(model Model, seed int64) *Estimator {
	return &Estimator{
		Model:             model,
		Iterations:        500,
		Threshold:         1.0,
		MinInliers:        model.MinSamples(),
		MinInlierFraction: 0.1,
		Refine:            true,
		Rand:              rand.New(rand.NewSource(seed)),
	}
}

func TestEstimate_RecoversModels(t *testing.T) {
	tests := []struct {
		model Model
		h     geometry.Homography
	}{
		{Translation, geometry.TranslationHomography(-120.5, 7.25)},
		{Rigid, geometry.AffineTransform{A: math.Cos(0.1), B: -math.Sin(0.1), TX: 30, C: math.Sin(0.1), D: math.Cos(0.1), TY: -12}.Homography()},
		{Similarity, geometry.AffineTransform{A: 1.1, B: -0.2, TX: 5, C: 0.2, D: 1.1, TY: 9}.Homography()},
		{Affine, geometry.AffineTransform{A: 1.05, B: 0.1, TX: -40, C: -0.05, D: 0.95, TY: 20}.Homography()},
		{Homography, geometry.Homography{{1.02, 0.03, -80}, {-0.01, 0.98, 12}, {1e-4, -5e-5, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.model.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			src, dst := correspondences(rng, tt.h, 60, 30)

			res, err := testEstimator(tt.model, 1).Estimate(src, dst)
			require.NoError(t, err)
			assert.Len(t, res.Inliers, 60)
			for i, idx := range res.Inliers {
				assert.Equal(t, i, idx)
			}
			assertHomographyNear(t, tt.h, res.H, 1e-3)
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	h := geometry.Homography{{0.97, -0.02, 40}, {0.03, 1.01, -8}, {-2e-5, 1e-4, 1}}
	src, dst := correspondences(rng, h, 40, 40)

	// Noise so that different samples give different models.
	for i := range dst[:40] {
		dst[i].X += rng.Float64() - 0.5
		dst[i].Y += rng.Float64() - 0.5
	}

	a, err := testEstimator(Homography, 9).Estimate(src, dst)
	require.NoError(t, err)
	b, err := testEstimator(Homography, 9).Estimate(src, dst)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEstimate_Failures(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := testEstimator(Homography, 1).Estimate(make([]geometry.Point2D, 3), make([]geometry.Point2D, 3))
	assert.True(t, errors.Is(err, ErrInsufficientCorrespondences))

	// Pure noise: no model explains a meaningful fraction.
	src := make([]geometry.Point2D, 50)
	dst := make([]geometry.Point2D, 50)
	for i := range src {
		src[i] = geometry.Point2D{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
		dst[i] = geometry.Point2D{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
	}
	e := testEstimator(Affine, 1)
	e.MinInlierFraction = 0.5
	_, err = e.Estimate(src, dst)
	assert.True(t, errors.Is(err, ErrRansacFailure))

	_, err = e.Estimate(src, dst[:10])
	assert.Error(t, err)
}

func TestEstimate_StopsWhenSubsetsExhausted(t *testing.T) {
	src := []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	h := geometry.TranslationHomography(3, 4)
	dst := make([]geometry.Point2D, len(src))
	for i, p := range src {
		dst[i], _ = h.Apply(p)
	}

	e := testEstimator(Rigid, 3)
	e.Iterations = 1000
	res, err := e.Estimate(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Iterations, "only three distinct pairs exist")
	assertHomographyNear(t, h, res.H, 1e-9)
}

func TestNewEstimator_TransForcesTranslation(t *testing.T) {
	cfg := config.Default()
	cfg.Trans = true
	e, err := NewEstimator(cfg, 1)
	require.NoError(t, err)
	assert.Equal(t, Translation, e.Model)
	assert.Equal(t, 1, e.MinInliers)

	cfg = config.Default()
	cfg.TransformModel = "bogus"
	_, err = NewEstimator(cfg, 1)
	assert.Error(t, err)
}

func TestParseModel(t *testing.T) {
	for m := Translation; m <= Homography; m++ {
		got, err := ParseModel(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestComputeHomographyDLT_Exact(t *testing.T) {
	h := geometry.Homography{{1.2, 0.1, 5}, {-0.05, 0.9, -3}, {2e-4, 1e-4, 1}}
	var src, dst []geometry.Point2D
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 80}, {X: 0, Y: 80}, {X: 50, Y: 30}, {X: 20, Y: 70}} {
		q, ok := h.Apply(p)
		require.True(t, ok)
		src = append(src, p)
		dst = append(dst, q)
	}

	got, err := computeHomographyDLT(src, dst)
	require.NoError(t, err)
	assertHomographyNear(t, h, got, 1e-6)
	assert.InDelta(t, 0, MeanError(src, dst, got), 1e-6)

	got4, err := computeHomographyFrom4(src[:4], dst[:4])
	require.NoError(t, err)
	assertHomographyNear(t, h, got4, 1e-6)
}

func TestComputeHomographyFrom4_Degenerate(t *testing.T) {
	collinear := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	_, err := computeHomographyFrom4(collinear, collinear)
	assert.Error(t, err)
}

func TestMeanError(t *testing.T) {
	src := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}}
	dst := []geometry.Point2D{{X: 3, Y: 4}, {X: 1, Y: 0}}
	assert.InDelta(t, 2.5, MeanError(src, dst, geometry.IdentityHomography()), 1e-12)
	assert.True(t, math.IsInf(MeanError(nil, nil, geometry.IdentityHomography()), 1))
}

// nearMissScene is a 10x10 grid shifted by (100, 0) plus one centre
// correspondence 3.5 px off the shift, just outside a 3 px threshold.
func nearMissScene() (src, dst []geometry.Point2D, outlier int) {
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			p := geometry.Point2D{X: float64(x) * 40, Y: float64(y) * 30}
			src = append(src, p)
			dst = append(dst, p.Add(geometry.Point2D{X: 100}))
		}
	}
	outlier = len(src)
	src = append(src, geometry.Point2D{X: 185, Y: 140})
	dst = append(dst, geometry.Point2D{X: 288.5, Y: 140})
	return src, dst, outlier
}

func TestRefine_DropsNearMissAndRecoversShift(t *testing.T) {
	src, dst, outlier := nearMissScene()

	// A minimal fit through the near miss is bent towards it.
	pick := []int{0, 9, 90, outlier}
	bent, err := computeHomographyFrom4(subset(src, pick), subset(dst, pick))
	require.NoError(t, err)
	all := make([]int, len(src))
	for i := range all {
		all[i] = i
	}

	e := testEstimator(Homography, 1)
	e.Threshold = 3
	H, inliers := e.refine(bent, all, src, dst)

	assertHomographyNear(t, geometry.TranslationHomography(100, 0), H, 0.5)
	assert.Len(t, inliers, 100)
	assert.NotContains(t, inliers, outlier)
}

func TestEstimate_NearMissDoesNotSkewModel(t *testing.T) {
	src, dst, outlier := nearMissScene()

	e := testEstimator(Homography, 6)
	e.Threshold = 3
	e.Iterations = 2000
	res, err := e.Estimate(src, dst)
	require.NoError(t, err)

	assertHomographyNear(t, geometry.TranslationHomography(100, 0), res.H, 0.5)
	assert.NotContains(t, res.Inliers, outlier)
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, []int{2, 5}, intersect([]int{1, 2, 5, 7}, []int{2, 3, 5}))
	assert.Empty(t, intersect([]int{1}, []int{2}))
	assert.True(t, equalIndices([]int{1, 2}, []int{1, 2}))
	assert.False(t, equalIndices([]int{1, 2}, []int{1}))
}
