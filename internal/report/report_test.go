package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pimage "panostitch/internal/image"
	"panostitch/internal/keypoint"
	"panostitch/internal/panorama"
	"panostitch/pkg/geometry"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "run.json")

	res := &panorama.Result{
		Image:        pimage.New(400, 200, 3),
		Offset:       geometry.Point2D{X: 3, Y: 1},
		Reference:    0,
		Transforms:   []geometry.Homography{geometry.IdentityHomography(), geometry.TranslationHomography(100, 0), {}},
		Edges:        []panorama.Edge{{I: 0, J: 1, Inliers: 42, Error: 0.3, H: geometry.TranslationHomography(100, 0)}},
		Disconnected: []int{2},
		Features:     [][]keypoint.Feature{make([]keypoint.Feature, 5), make([]keypoint.Feature, 7), nil},
	}
	inputs := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "sub", "c.png"),
	}
	sizes := [][2]int{{300, 200}, {300, 200}, {300, 200}}

	f := New(reportPath, inputs, sizes, filepath.Join(dir, "pano.png"), "homography", 1, res)
	require.NoError(t, f.Save(reportPath))

	got, err := Load(reportPath)
	require.NoError(t, err)

	assert.Equal(t, 400, got.Width)
	assert.Equal(t, "pano.png", got.Output)
	assert.Equal(t, filepath.Join(dir, "pano.png"), got.OutputPath(reportPath))
	require.Len(t, got.Inputs, 3)
	assert.Equal(t, filepath.Join("sub", "c.png"), got.Inputs[2].Path)
	assert.Equal(t, inputs[2], got.InputPath(reportPath, 2))
	assert.Equal(t, 7, got.Inputs[1].Features)
	assert.True(t, got.Inputs[1].Connected)
	assert.False(t, got.Inputs[2].Connected)
	assert.Nil(t, got.Inputs[2].Transform)
	require.NotNil(t, got.Inputs[1].Transform)
	assert.Equal(t, 100.0, got.Inputs[1].Transform[0][2])
	require.Len(t, got.Edges, 1)
	assert.Equal(t, 42, got.Edges[0].Inliers)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOutlineAndCovering(t *testing.T) {
	id := geometry.IdentityHomography()
	shift := geometry.TranslationHomography(100, 0)
	f := &File{
		Offset: geometry.Point2D{X: 5, Y: 2},
		Inputs: []Input{
			{Width: 200, Height: 100, Connected: true, Transform: &id},
			{Width: 200, Height: 100, Connected: true, Transform: &shift},
			{Width: 200, Height: 100},
		},
	}

	outline, ok := f.Outline(1)
	require.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 105, Y: 2}, outline[0])
	assert.Equal(t, geometry.Point2D{X: 304, Y: 101}, outline[2])
	_, ok = f.Outline(2)
	assert.False(t, ok)

	idx, local := f.Covering(geometry.Point2D{X: 155, Y: 12})
	assert.Equal(t, []int{0, 1}, idx)
	assert.Equal(t, geometry.Point2D{X: 150, Y: 10}, local[0])
	assert.Equal(t, geometry.Point2D{X: 50, Y: 10}, local[1])

	idx, _ = f.Covering(geometry.Point2D{X: 2, Y: 2})
	assert.Empty(t, idx)
}
