// Package viewport holds the zoom/pan transform of a drawing surface.
//
// The transform scales about the centre of the surface and then translates by
// the pan offset:
//
//	screen = centre + zoom*(world - centre) + pan
//
// so zooming about the surface centre from an unpanned state leaves the pan
// untouched.
package viewport

import (
	"math"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
)

const (
	DefaultMinZoom  = 0.1
	DefaultMaxZoom  = 5.0
	DefaultZoomStep = 0.1
)

type Limits struct {
	Min float64
	Max float64
}

func DefaultLimits() Limits {
	return Limits{Min: DefaultMinZoom, Max: DefaultMaxZoom}
}

// Viewport is owned by the scene model and mutated only through its methods.
type Viewport struct {
	zoom   float64
	panX   float64
	panY   float64
	width  float64
	height float64
	limits Limits
}

// New returns an identity viewport over a width x height surface. Invalid
// limits fall back to the defaults.
func New(width, height float64, limits Limits) *Viewport {
	if limits.Min <= 0 || limits.Max < limits.Min {
		limits = DefaultLimits()
	}
	return &Viewport{zoom: 1, width: width, height: height, limits: limits}
}

func (v *Viewport) Zoom() float64  { return v.zoom }
func (v *Viewport) PanX() float64  { return v.panX }
func (v *Viewport) PanY() float64  { return v.panY }
func (v *Viewport) Limits() Limits { return v.limits }

func (v *Viewport) Size() (float64, float64) { return v.width, v.height }

// SetSize updates the surface dimensions (e.g. on container resize).
func (v *Viewport) SetSize(width, height float64) {
	v.width, v.height = width, height
}

func (v *Viewport) center() (float64, float64) {
	return v.width / 2, v.height / 2
}

// Clamp restricts z to the configured zoom range.
func (v *Viewport) Clamp(z float64) float64 {
	if math.IsNaN(z) {
		return v.zoom
	}
	return math.Max(v.limits.Min, math.Min(v.limits.Max, z))
}

// ZoomAt zooms to target (clamped) keeping the world point under the screen
// point (sx, sy) fixed. It reports whether the viewport changed.
func (v *Viewport) ZoomAt(target, sx, sy float64) bool {
	next := v.Clamp(target)
	if next == v.zoom {
		return false
	}
	cx, cy := v.center()
	factor := next / v.zoom
	// pan' = (p - c) - factor*(p - c - pan)
	v.panX = (sx - cx) - factor*(sx-cx-v.panX)
	v.panY = (sy - cy) - factor*(sy-cy-v.panY)
	v.zoom = next
	return true
}

// ZoomIn steps the zoom up about the surface centre.
func (v *Viewport) ZoomIn(step float64) bool {
	cx, cy := v.center()
	return v.ZoomAt(v.zoom+step, cx, cy)
}

func (v *Viewport) ZoomOut(step float64) bool {
	cx, cy := v.center()
	return v.ZoomAt(v.zoom-step, cx, cy)
}

// Reset restores zoom 1 and zero pan.
func (v *Viewport) Reset() bool {
	changed := v.zoom != 1 || v.panX != 0 || v.panY != 0
	v.zoom, v.panX, v.panY = 1, 0, 0
	return changed
}

// Pan translates by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.panX += dx
	v.panY += dy
}

// Matrix maps world coordinates to screen coordinates.
func (v *Viewport) Matrix() geom.Matrix2D {
	cx, cy := v.center()
	return geom.Matrix2D{
		v.zoom, 0, 0, v.zoom,
		cx*(1-v.zoom) + v.panX,
		cy*(1-v.zoom) + v.panY,
	}
}

func (v *Viewport) ScreenToWorld(x, y float64) (float64, float64) {
	return v.Matrix().Invert().TransformPoint(x, y)
}

func (v *Viewport) WorldToScreen(x, y float64) (float64, float64) {
	return v.Matrix().TransformPoint(x, y)
}

// State returns the persisted form.
func (v *Viewport) State() document.Viewport {
	return document.Viewport{Zoom: v.zoom, PanX: v.panX, PanY: v.panY}
}

// Apply loads a persisted viewport, clamping its zoom. It reports whether
// anything changed.
func (v *Viewport) Apply(s document.Viewport) bool {
	z := s.Zoom
	if z == 0 {
		z = 1
	}
	z = v.Clamp(z)
	changed := z != v.zoom || s.PanX != v.panX || s.PanY != v.panY
	v.zoom, v.panX, v.panY = z, s.PanX, s.PanY
	return changed
}
