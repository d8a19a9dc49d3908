package prefs

import (
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestViewer_Defaults(t *testing.T) {
	v := New(test.NewApp().Preferences())
	assert.Equal(t, 1.0, v.Zoom())
	assert.True(t, v.Fit())
	assert.Equal(t, "", v.LastPath())
}

func TestViewer_RoundTrip(t *testing.T) {
	store := test.NewApp().Preferences()
	v := New(store)
	v.SetZoom(0.25)
	v.SetFit(false)
	v.SetLastPath(filepath.Join("runs", "pano.json"))

	w := New(store)
	assert.Equal(t, 0.25, w.Zoom())
	assert.False(t, w.Fit())
	assert.True(t, filepath.IsAbs(w.LastPath()))
	assert.Equal(t, "pano.json", filepath.Base(w.LastPath()))
}

func TestViewer_InvalidZoom(t *testing.T) {
	store := test.NewApp().Preferences()
	store.SetFloat(keyZoom, -3)
	assert.Equal(t, 1.0, New(store).Zoom())
}
