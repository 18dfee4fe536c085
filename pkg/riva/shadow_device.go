package riva

import (
	"image"
	"image/color"
	"sync"

	"github.com/cqc-go/webcore/pkg/renderengine"
)

// ShadowDevice is the in-process memory surface every graphics primitive is
// recorded against, so local queries (string extents, current position,
// colors) are answered without a client round-trip. Every method takes the
// mutex, so the session thread can read the canvas for image
// materialisation while the faux-GUI thread draws.
type ShadowDevice struct {
	mu sync.Mutex
	canvas *image.RGBA
	pos renderengine.Point

	beginDepth int
}

// NewShadowDevice allocates a canvas matching the virtual display size.
func NewShadowDevice(size renderengine.Size) *ShadowDevice {
	return &ShadowDevice{
		canvas: image.NewRGBA(image.Rect(0, 0, size.X, size.Y)),
	}
}

// Resize reallocates the canvas, discarding prior pixel content.
func (d *ShadowDevice) Resize(size renderengine.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.canvas = image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
}

// BeginDraw/EndDraw refcount nested widget redraws so they bracket with a
// single outer begin/end.
func (d *ShadowDevice) BeginDraw()(outermost bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.beginDepth++
	return d.beginDepth == 1
}

func (d *ShadowDevice) EndDraw()(outermost bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.beginDepth > 0 {
		d.beginDepth--
	}
	return d.beginDepth == 0
}

// FillRect records a filled rectangle and returns the same area so the
// caller can use it to build a protocol message.
func (d *ShadowDevice) FillRect(area image.Rectangle, c color.Color) image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	for y:= area.Min.Y; y < area.Max.Y; y++ {
		for x:= area.Min.X; x < area.Max.X; x++ {
			d.canvas.Set(x, y, c)
		}
	}
	return area
}

// MoveTo updates the device's current position, answered locally by
// CurrentPos without a client round-trip.
func (d *ShadowDevice) MoveTo(pt renderengine.Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = pt
}

// CurrentPos returns the device's last MoveTo position.
func (d *ShadowDevice) CurrentPos()renderengine.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

// Snapshot returns the canvas region backing an image materialisation.
func (d *ShadowDevice) Snapshot(area image.Rectangle) *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub:= image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	for y:= 0; y < area.Dy(); y++ {
		for x:= 0; x < area.Dx(); x++ {
			sub.Set(x, y, d.canvas.At(area.Min.X+x, area.Min.Y+y))
		}
	}
	return sub
}
