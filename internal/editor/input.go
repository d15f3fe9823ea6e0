package editor

import (
	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/persist"
	"github.com/inkboard/inkboard/internal/region"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/stroke"
	"github.com/inkboard/inkboard/internal/tool"
)

// dragPreviewer is implemented by renderers that can show a region drag.
type dragPreviewer interface {
	SetDragPreview(b geom.Rect, show bool)
}

func sample(wx, wy float64, ev tool.PointerEvent) stroke.Sample {
	return stroke.Sample{X: wx, Y: wy, Pressure: ev.Pressure, HasPressure: ev.HasPressure, Time: ev.Time}
}

// regionTarget returns the open region when ev should draw into it: the draw
// and eraser tools inside its bounds.
func (e *Editor) regionTarget(ev tool.PointerEvent) (*region.Controller, float64, float64, bool) {
	c, ok := e.regions.Active()
	if !ok {
		return nil, 0, 0, false
	}
	if t := e.machine.Tool(); t != tool.Draw && t != tool.Eraser {
		return nil, 0, 0, false
	}
	wx, wy := e.scene.Viewport().ScreenToWorld(ev.X, ev.Y)
	if _, _, inside := c.Local(wx, wy); !inside {
		return nil, 0, 0, false
	}
	return c, wx, wy, true
}

func (e *Editor) PointerDown(ev tool.PointerEvent) {
	e.do(func(o *outbox) {
		if !e.beginDrawing() {
			return
		}
		if c, wx, wy, ok := e.regionTarget(ev); ok {
			pen := e.pen
			if e.machine.Tool() == tool.Eraser {
				pen = document.ToolEraser
			}
			c.PointerDown(sample(wx, wy, ev), pen, e.brush)
			e.showOutlines(c)
			return
		}
		e.apply(e.machine.PointerDown(ev), o)
	})
}

func (e *Editor) PointerMove(ev tool.PointerEvent) {
	e.do(func(o *outbox) {
		if c, ok := e.regions.Active(); ok && c.Drawing() {
			wx, wy := e.scene.Viewport().ScreenToWorld(ev.X, ev.Y)
			if c.PointerMove(sample(wx, wy, ev)) {
				e.showOutlines(c)
			}
			return
		}
		e.apply(e.machine.PointerMove(ev), o)
	})
}

func (e *Editor) PointerUp(ev tool.PointerEvent) {
	e.do(func(o *outbox) {
		defer e.endDrawing()
		if c, ok := e.regions.Active(); ok && c.Drawing() {
			wx, wy := e.scene.Viewport().ScreenToWorld(ev.X, ev.Y)
			res := c.PointerUp(sample(wx, wy, ev))
			e.showOutlines(c)
			if res.Changed() {
				e.regionDocs[c.DocumentID()] = &document.RegionDocument{Strokes: c.Strokes()}
				o.add(e.regionScheduler(c.ID()).Schedule)
			}
			return
		}
		e.apply(e.machine.PointerUp(ev), o)
	})
}

// PointerCancel abandons the gesture in progress, e.g. when the pointer
// leaves the surface. Nothing is persisted.
func (e *Editor) PointerCancel() {
	e.do(func(o *outbox) {
		defer e.endDrawing()
		if c, ok := e.regions.Active(); ok && c.Drawing() {
			c.Cancel()
			e.showOutlines(c)
			return
		}
		e.apply(e.machine.Cancel(), o)
	})
}

// beginDrawing opens the drawing session for a gesture, or extends the one
// still cooling down from the previous gesture.
func (e *Editor) beginDrawing() bool {
	if e.cooldown != nil {
		e.cooldown.Stop()
		e.cooldown = nil
	}
	if e.drawingOpen {
		return true
	}
	tok, ok := e.gate.Begin(persist.SessionLocal, persist.ReasonDrawing)
	if !ok {
		e.log.Debug("reject pointer input", "session", e.gate.Session())
		return false
	}
	e.drawing, e.drawingOpen = tok, true
	return true
}

// endDrawing closes the drawing session after the cooldown.
func (e *Editor) endDrawing() {
	if !e.drawingOpen {
		return
	}
	if e.opts.DrawCooldown <= 0 {
		e.endDrawingNow()
		return
	}
	if e.cooldown != nil {
		e.cooldown.Stop()
	}
	e.cooldownGen++
	gen := e.cooldownGen
	e.cooldown = e.clock.AfterFunc(e.opts.DrawCooldown, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen == e.cooldownGen {
			e.endDrawingNow()
		}
	})
}

func (e *Editor) endDrawingNow() {
	if e.cooldown != nil {
		e.cooldown.Stop()
		e.cooldown = nil
	}
	if e.drawingOpen {
		e.gate.End(e.drawing)
		e.drawingOpen = false
	}
}

// apply carries out an effect reported by the tool machine.
func (e *Editor) apply(eff tool.Effect, o *outbox) {
	vp := e.scene.Viewport()
	redraw := eff.Redraw

	if eff.PanDX != 0 || eff.PanDY != 0 {
		vp.Pan(eff.PanDX, eff.PanDY)
		e.renderer.SetViewportTransform(vp.Matrix())
		redraw = true
	}
	if eff.PanEnded {
		state := vp.State()
		o.add(func() { e.saves.ScheduleViewport(state) })
	}
	if eff.Removed != "" {
		e.forgetRegion(eff.Removed, o)
	}
	if eff.Changed {
		o.add(e.saves.Schedule)
	}
	if eff.ToolChanged && e.cb.OnToolChanged != nil {
		t := e.machine.Tool()
		o.add(func() { e.cb.OnToolChanged(t) })
	}
	if eff.SelectionChanged && e.cb.OnSelectionChanged != nil {
		sel := e.machine.Selection()
		o.add(func() { e.cb.OnSelectionChanged(sel) })
	}
	if eff.EditText != "" && e.cb.OnEditText != nil {
		id := eff.EditText
		o.add(func() { e.cb.OnEditText(id) })
	}
	if eff.CreateRegion != nil {
		bounds := *eff.CreateRegion
		o.add(func() { e.spawn(func() { e.createRegion(bounds) }) })
	}
	if eff.EnterRegion != "" {
		id := eff.EnterRegion
		o.add(func() { e.spawn(func() { e.enterRegion(id) }) })
	}

	if p, ok := e.renderer.(dragPreviewer); ok {
		b, dragging := e.machine.RegionDrag()
		p.SetDragPreview(b, dragging)
	}
	if redraw {
		e.renderer.Render()
	}
}

func (e *Editor) showOutlines(c *region.Controller) {
	e.renderer.SetOutlines(c.ID(), c.Outlines())
	e.renderer.Render()
}

func (e *Editor) SetTool(t tool.Tool) {
	e.do(func(o *outbox) {
		e.apply(e.machine.SetTool(t), o)
	})
}

// SetBrush sets the paint and stroke tool used inside drawing regions.
// Tools other than pen, highlighter and eraser are ignored.
func (e *Editor) SetBrush(style stroke.Style, pen document.Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.brush = style
	switch pen {
	case document.ToolPen, document.ToolHighlighter, document.ToolEraser:
		e.pen = pen
	}
}

func (e *Editor) Select(objectID string) {
	e.do(func(o *outbox) {
		e.apply(e.machine.Select(objectID), o)
	})
}

func (e *Editor) ClearSelection() {
	e.do(func(o *outbox) {
		e.apply(e.machine.ClearSelection(), o)
	})
}

// DeleteSelected removes the selected object. A deleted region's own
// document stays in storage.
func (e *Editor) DeleteSelected() {
	e.do(func(o *outbox) {
		sel := e.machine.Selection()
		if sel.Empty() {
			return
		}
		e.apply(e.machine.RemoveObject(sel.ObjectID), o)
	})
}

// SetText replaces the content of a text object after inline editing.
func (e *Editor) SetText(objectID, text string) {
	e.do(func(o *outbox) {
		obj, ok := e.scene.Get(objectID)
		if !ok || obj.Kind != scene.KindText || obj.Text == text {
			return
		}
		obj.Text = text
		e.renderer.UpdateObject(obj)
		e.renderer.Render()
		o.add(e.saves.Schedule)
	})
}

func (e *Editor) ZoomAt(target, sx, sy float64) {
	e.zoom(func() bool { return e.scene.Viewport().ZoomAt(target, sx, sy) })
}

func (e *Editor) ZoomIn() {
	e.zoom(func() bool { return e.scene.Viewport().ZoomIn(e.opts.ZoomStep) })
}

func (e *Editor) ZoomOut() {
	e.zoom(func() bool { return e.scene.Viewport().ZoomOut(e.opts.ZoomStep) })
}

func (e *Editor) ResetView() {
	e.zoom(func() bool { return e.scene.Viewport().Reset() })
}

func (e *Editor) zoom(change func() bool) {
	e.do(func(o *outbox) {
		if !change() {
			return
		}
		e.viewportChanged(o)
	})
}

// Pan translates the view by a screen delta. Only the final delta of a drag
// schedules a save.
func (e *Editor) Pan(dx, dy float64, final bool) {
	e.do(func(o *outbox) {
		vp := e.scene.Viewport()
		vp.Pan(dx, dy)
		if final {
			e.viewportChanged(o)
			return
		}
		e.renderer.SetViewportTransform(vp.Matrix())
		e.renderer.Render()
	})
}

func (e *Editor) viewportChanged(o *outbox) {
	vp := e.scene.Viewport()
	e.renderer.SetViewportTransform(vp.Matrix())
	e.renderer.Render()
	state := vp.State()
	o.add(func() { e.saves.ScheduleViewport(state) })
}

// Resize follows the host surface. It is not persisted.
func (e *Editor) Resize(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	vp := e.scene.Viewport()
	vp.SetSize(width, height)
	e.renderer.SetViewportTransform(vp.Matrix())
	e.renderer.Render()
}
