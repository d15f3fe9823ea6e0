// Package region manages nested drawing regions: scene objects that host an
// independently persisted stroke document and accept strokes while open.
package region

import (
	"fmt"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/stroke"
)

type State int

const (
	Collapsed State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "collapsed"
}

// Controller drives one region. Pointer coordinates passed in are world
// coordinates; the controller translates them into region-local space.
type Controller struct {
	obj      *scene.Object
	pipeline *stroke.Pipeline
	state    State
}

func NewController(obj *scene.Object, settings stroke.Settings, gen stroke.OutlineGenerator) *Controller {
	return &Controller{obj: obj, pipeline: stroke.NewPipeline(settings, gen)}
}

func (c *Controller) ID() string { return c.obj.ID }

func (c *Controller) DocumentID() string { return c.obj.Region.ExternalDocumentID }

func (c *Controller) State() State { return c.state }

func (c *Controller) Bounds() geom.Rect { return c.obj.Bounds }

// Open decodes the region's stroke document and opens the region. On
// failure the region stays collapsed and nothing is modified.
func (c *Controller) Open(data []byte) error {
	doc, err := document.DecodeRegion(data)
	if err != nil {
		return fmt.Errorf("open region %s: %w", c.DocumentID(), err)
	}
	c.pipeline.SetStrokes(doc.Strokes)
	c.state = Editing
	c.obj.Region.Editing = true
	return nil
}

// Exit collapses the region, dropping any stroke in progress.
func (c *Controller) Exit() {
	c.pipeline.Cancel()
	c.state = Collapsed
	c.obj.Region.Editing = false
}

// Local maps a world point into region space. Points outside the region
// bounds are rejected.
func (c *Controller) Local(wx, wy float64) (float64, float64, bool) {
	if !c.obj.Bounds.Contains(wx, wy) {
		return 0, 0, false
	}
	return wx - c.obj.Bounds.X, wy - c.obj.Bounds.Y, true
}

// PointerDown starts a stroke when the region is open and the point lies
// inside it.
func (c *Controller) PointerDown(s stroke.Sample, tool document.Tool, style stroke.Style) bool {
	if c.state != Editing {
		return false
	}
	x, y, ok := c.Local(s.X, s.Y)
	if !ok {
		return false
	}
	s.X, s.Y = x, y
	c.pipeline.Begin(s, tool, style)
	return true
}

// PointerMove extends the stroke in progress and reports whether to repaint.
// Samples outside the region are dropped.
func (c *Controller) PointerMove(s stroke.Sample) bool {
	if !c.pipeline.Active() {
		return false
	}
	x, y, ok := c.Local(s.X, s.Y)
	if !ok {
		return false
	}
	s.X, s.Y = x, y
	return c.pipeline.Extend(s)
}

// PointerUp records the final sample, if inside, and finishes the stroke.
func (c *Controller) PointerUp(s stroke.Sample) stroke.Result {
	if !c.pipeline.Active() {
		return stroke.Result{}
	}
	if x, y, ok := c.Local(s.X, s.Y); ok {
		s.X, s.Y = x, y
		if last, _ := c.pipeline.Current(); !samePoint(last, x, y) {
			c.pipeline.Extend(s)
		}
	}
	return c.pipeline.Finish()
}

func samePoint(s document.Stroke, x, y float64) bool {
	p := s.Points[len(s.Points)-1]
	return p.X == x && p.Y == y
}

func (c *Controller) Cancel() {
	c.pipeline.Cancel()
}

func (c *Controller) Drawing() bool {
	return c.pipeline.Active()
}

func (c *Controller) Strokes() []document.Stroke {
	return c.pipeline.Strokes()
}

func (c *Controller) Outlines() []stroke.Outline {
	return c.pipeline.Outlines()
}

// Encode serialises the region's stroke document.
func (c *Controller) Encode() ([]byte, error) {
	return document.EncodeRegion(&document.RegionDocument{Strokes: c.pipeline.Strokes()})
}
