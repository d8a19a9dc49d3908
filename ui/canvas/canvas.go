// Package canvas provides an image canvas with pan, zoom and overlays.
package canvas

import (
	"image"
	"image/color"
	"sort"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	minZoom  = 0.05
	maxZoom  = 10.0
	zoomStep = 1.25
)

// ImageCanvas displays one image with zoom, scroll and named overlays.
type ImageCanvas struct {
	widget.BaseWidget

	img      image.Image
	overlays map[string]*Overlay

	raster *fynecanvas.Raster
	zoom   float64

	scroll  *zoomScroll
	content *clickableContent
	imgSize fyne.Size

	fitToWindow    bool
	lastScrollSize fyne.Size

	onZoomChange func(zoom float64)
	onLeftClick  func(x, y float64) // image coordinates
}

// zoomScroll wraps a scroll container but uses the wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *ImageCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *ImageCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

func (zs *zoomScroll) Offset() fyne.Position { return zs.scroll.Offset }

func (zs *zoomScroll) Size() fyne.Size { return zs.scroll.Size() }

func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// clickableContent wraps the raster to receive taps.
type clickableContent struct {
	widget.BaseWidget
	canvas *ImageCanvas
	raster *fynecanvas.Raster
}

func newClickableContent(ic *ImageCanvas, raster *fynecanvas.Raster) *clickableContent {
	cc := &clickableContent{canvas: ic, raster: raster}
	cc.ExtendBaseWidget(cc)
	return cc
}

func (cc *clickableContent) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(cc.raster)
}

func (cc *clickableContent) MinSize() fyne.Size { return cc.raster.MinSize() }

func (cc *clickableContent) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		cc.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		cc.canvas.ZoomOut()
	}
}

// Tapped reports left clicks in image coordinates.
func (cc *clickableContent) Tapped(ev *fyne.PointEvent) {
	if cc.canvas.onLeftClick == nil {
		return
	}
	// Fyne can deliver taps outside the widget.
	size := cc.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	cc.canvas.onLeftClick(float64(ev.Position.X)/cc.canvas.zoom, float64(ev.Position.Y)/cc.canvas.zoom)
}

// NewImageCanvas creates an empty canvas.
func NewImageCanvas() *ImageCanvas {
	ic := &ImageCanvas{
		zoom:     1.0,
		imgSize:  fyne.NewSize(400, 300),
		overlays: make(map[string]*Overlay),
	}
	ic.raster = fynecanvas.NewRaster(ic.draw)
	ic.raster.ScaleMode = fynecanvas.ImageScalePixels
	ic.raster.SetMinSize(ic.imgSize)
	ic.content = newClickableContent(ic, ic.raster)
	ic.scroll = newZoomScroll(ic.content, ic)
	ic.ExtendBaseWidget(ic)
	return ic
}

func (ic *ImageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ic.scroll)
}

// Container returns the scrollable object to place in a layout.
func (ic *ImageCanvas) Container() fyne.CanvasObject { return ic }

// SetImage replaces the displayed image.
func (ic *ImageCanvas) SetImage(img image.Image) {
	ic.img = img
	ic.updateContentSize()
}

// Image returns the displayed image.
func (ic *ImageCanvas) Image() image.Image { return ic.img }

// SetOverlay adds or replaces a named overlay.
func (ic *ImageCanvas) SetOverlay(name string, overlay *Overlay) {
	ic.overlays[name] = overlay
	ic.Refresh()
}

// SetZoom sets the zoom level, clamped to the supported range.
func (ic *ImageCanvas) SetZoom(zoom float64) {
	ic.zoom = clampZoom(zoom)
	ic.updateContentSize()
	if ic.onZoomChange != nil {
		ic.onZoomChange(ic.zoom)
	}
}

func (ic *ImageCanvas) ZoomIn()  { ic.SetZoom(ic.zoom * zoomStep) }
func (ic *ImageCanvas) ZoomOut() { ic.SetZoom(ic.zoom / zoomStep) }

// FitToWindow adjusts zoom so the whole image is visible.
func (ic *ImageCanvas) FitToWindow() {
	if ic.img == nil {
		return
	}
	view := ic.scroll.Size()
	if z, ok := fitZoom(ic.img.Bounds(), float64(view.Width), float64(view.Height)); ok {
		ic.SetZoom(z)
	}
}

// SetFitToWindow enables or disables auto-fit on resize.
func (ic *ImageCanvas) SetFitToWindow(fit bool) {
	ic.fitToWindow = fit
	if fit {
		ic.FitToWindow()
	}
}

// OnZoomChange sets a callback for zoom changes.
func (ic *ImageCanvas) OnZoomChange(callback func(zoom float64)) { ic.onZoomChange = callback }

// OnLeftClick sets a callback for clicks, in image coordinates.
func (ic *ImageCanvas) OnLeftClick(callback func(x, y float64)) { ic.onLeftClick = callback }

func (ic *ImageCanvas) Refresh() {
	ic.raster.Refresh()
}

func (ic *ImageCanvas) updateContentSize() {
	if ic.img == nil || ic.img.Bounds().Empty() {
		ic.imgSize = fyne.NewSize(400, 300)
	} else {
		b := ic.img.Bounds()
		ic.imgSize = fyne.NewSize(float32(float64(b.Dx())*ic.zoom), float32(float64(b.Dy())*ic.zoom))
	}
	ic.raster.SetMinSize(ic.imgSize)
	ic.raster.Resize(ic.imgSize)
	ic.content.Resize(ic.imgSize)
	ic.content.Refresh()
	ic.raster.Refresh()
	ic.scroll.Refresh()
}

// draw is the raster callback.
func (ic *ImageCanvas) draw(w, h int) image.Image {
	size := fyne.NewSize(float32(w), float32(h))
	if ic.fitToWindow && size != ic.lastScrollSize && w > 0 && h > 0 {
		ic.lastScrollSize = size
		go ic.FitToWindow()
	}

	out := renderView(ic.img, ic.zoom, w, h)
	names := make([]string, 0, len(ic.overlays))
	for name := range ic.overlays {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		drawOverlay(out, ic.overlays[name], ic.zoom)
	}
	return out
}

// renderView samples src at the given zoom into a w x h RGBA image using
// nearest-neighbour lookup. Pixels outside src are dark grey.
func renderView(src image.Image, zoom float64, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	var b image.Rectangle
	if src != nil {
		b = src.Bounds()
	}
	for y := 0; y < h; y++ {
		sy := b.Min.Y + int(float64(y)/zoom)
		for x := 0; x < w; x++ {
			sx := b.Min.X + int(float64(x)/zoom)
			if src == nil || !(image.Point{X: sx, Y: sy}).In(b) {
				out.SetRGBA(x, y, bg)
				continue
			}
			out.Set(x, y, src.At(sx, sy))
		}
	}
	return out
}

func fitZoom(b image.Rectangle, viewW, viewH float64) (float64, bool) {
	if b.Dx() == 0 || b.Dy() == 0 || viewW <= 0 || viewH <= 0 {
		return 0, false
	}
	z := min(viewW/float64(b.Dx()), viewH/float64(b.Dy()))
	return clampZoom(z * 0.95), true
}

func clampZoom(z float64) float64 {
	return max(minZoom, min(maxZoom, z))
}
