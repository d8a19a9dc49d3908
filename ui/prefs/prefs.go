// Package prefs keeps panoview's settings in the fyne preference store.
package prefs

import (
	"path/filepath"

	"fyne.io/fyne/v2"
)

const (
	keyZoom     = "viewer.zoom"
	keyFit      = "viewer.fit"
	keyLastPath = "viewer.last_path"
)

// Viewer is a typed view over the application preferences. The store
// persists changes itself.
type Viewer struct {
	store fyne.Preferences
}

// New wraps store, usually fyne.App.Preferences().
func New(store fyne.Preferences) *Viewer {
	return &Viewer{store: store}
}

// Zoom returns the last zoom level, 1 if unset or invalid.
func (v *Viewer) Zoom() float64 {
	z := v.store.FloatWithFallback(keyZoom, 1)
	if z <= 0 {
		return 1
	}
	return z
}

func (v *Viewer) SetZoom(z float64) { v.store.SetFloat(keyZoom, z) }

// Fit reports whether the image is scaled to the window. Defaults to true.
func (v *Viewer) Fit() bool { return v.store.BoolWithFallback(keyFit, true) }

func (v *Viewer) SetFit(fit bool) { v.store.SetBool(keyFit, fit) }

// LastPath is the report or image opened most recently.
func (v *Viewer) LastPath() string { return v.store.StringWithFallback(keyLastPath, "") }

// SetLastPath stores path in absolute form so it survives a change of
// working directory.
func (v *Viewer) SetLastPath(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	v.store.SetString(keyLastPath, path)
}
