package tool

import (
	"math"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/typeid"
)

type gestureKind int

const (
	gestureNone gestureKind = iota
	gesturePan
	gestureRegionDrag
	gestureMove
)

type gesture struct {
	kind           gestureKind
	startX, startY float64 // screen
	lastX, lastY   float64 // screen
	objectID       string
	moved          bool
}

// Machine is the tool state machine. Exactly one tool is active. It mutates
// the scene and mirrors each mutation into the renderer. Not safe for
// concurrent use.
type Machine struct {
	cfg      Config
	scene    *scene.Scene
	renderer scene.Renderer

	tool          Tool
	selection     Selection
	regionEditing bool
	g             gesture
}

func New(s *scene.Scene, r scene.Renderer, cfg Config) *Machine {
	if cfg.MinRegionSize <= 0 {
		cfg.MinRegionSize = DefaultMinRegionSize
	}
	return &Machine{cfg: cfg, scene: s, renderer: r, tool: Select}
}

func (m *Machine) Tool() Tool { return m.tool }

func (m *Machine) Selection() Selection { return m.selection }

// SetRegionEditing tells the machine whether a drawing region is open, which
// suppresses new region drags.
func (m *Machine) SetRegionEditing(editing bool) {
	m.regionEditing = editing
}

// RegionDrag returns the in-progress region candidate in world coordinates.
func (m *Machine) RegionDrag() (geom.Rect, bool) {
	if m.g.kind != gestureRegionDrag {
		return geom.Rect{}, false
	}
	return m.dragWorldRect(), true
}

// SetTool switches tools. Any gesture in progress is abandoned. An open
// drawing region is left open.
func (m *Machine) SetTool(t Tool) Effect {
	if t == m.tool {
		return Effect{}
	}
	var eff Effect
	if m.g.kind != gestureNone {
		eff.Redraw = true
	}
	m.g = gesture{}
	m.tool = t
	eff.ToolChanged = true
	if !t.keepsSelection() && !m.selection.Empty() {
		m.selection = Selection{}
		m.renderer.SetActiveObject("")
		eff.SelectionChanged = true
	}
	return eff
}

func (m *Machine) world(ev PointerEvent) (float64, float64) {
	return m.scene.Viewport().ScreenToWorld(ev.X, ev.Y)
}

func (m *Machine) PointerDown(ev PointerEvent) Effect {
	wx, wy := m.world(ev)
	target, hit := m.scene.HitTest(wx, wy, true)

	switch m.tool {
	case Select:
		if !hit {
			return m.ClearSelection()
		}
		eff := m.selectObject(target)
		m.g = gesture{kind: gestureMove, startX: ev.X, startY: ev.Y, lastX: ev.X, lastY: ev.Y, objectID: target.ID}
		return eff

	case Pan:
		m.g = gesture{kind: gesturePan, startX: ev.X, startY: ev.Y, lastX: ev.X, lastY: ev.Y}
		return Effect{}

	case Shape:
		if hit {
			eff := m.selectObject(target)
			eff.merge(m.SetTool(Select))
			return eff
		}
		obj := scene.NewShape(typeid.NewObjectID(), document.ShapeRect,
			geom.Rect{X: wx, Y: wy, Width: m.cfg.ShapeWidth, Height: m.cfg.ShapeHeight}, m.cfg.ShapeStyle)
		eff := m.addObject(obj)
		eff.merge(m.SetTool(Select))
		return eff

	case Text:
		if hit {
			eff := m.selectObject(target)
			eff.merge(m.SetTool(Select))
			return eff
		}
		size := m.cfg.TextFontSize
		obj := scene.NewText(typeid.NewObjectID(), m.cfg.TextPlaceholder, size,
			geom.Rect{X: wx, Y: wy, Width: size * 0.6 * float64(len(m.cfg.TextPlaceholder)), Height: size * 1.2}, m.cfg.TextStyle)
		eff := m.addObject(obj)
		eff.EditText = obj.ID
		eff.merge(m.SetTool(Select))
		return eff

	case Draw:
		if hit && target.Kind == scene.KindDrawingRegion {
			return Effect{EnterRegion: target.ID}
		}
		if hit || m.regionEditing {
			return Effect{}
		}
		m.g = gesture{kind: gestureRegionDrag, startX: ev.X, startY: ev.Y, lastX: ev.X, lastY: ev.Y}
		return Effect{Redraw: true}

	case Eraser:
		if !hit {
			return Effect{}
		}
		return m.RemoveObject(target.ID)
	}
	return Effect{}
}

func (m *Machine) PointerMove(ev PointerEvent) Effect {
	switch m.g.kind {
	case gesturePan:
		dx, dy := ev.X-m.g.lastX, ev.Y-m.g.lastY
		m.g.lastX, m.g.lastY = ev.X, ev.Y
		return Effect{PanDX: dx, PanDY: dy}

	case gestureRegionDrag:
		m.g.lastX, m.g.lastY = ev.X, ev.Y
		return Effect{Redraw: true}

	case gestureMove:
		obj, ok := m.scene.Get(m.g.objectID)
		if !ok {
			m.g = gesture{}
			return Effect{}
		}
		zoom := m.scene.Viewport().Zoom()
		dx, dy := (ev.X-m.g.lastX)/zoom, (ev.Y-m.g.lastY)/zoom
		m.g.lastX, m.g.lastY = ev.X, ev.Y
		if dx == 0 && dy == 0 {
			return Effect{}
		}
		obj.Translate(dx, dy)
		m.g.moved = true
		m.renderer.UpdateObject(obj)
		return Effect{Redraw: true}
	}
	return Effect{}
}

// PointerUp finishes the gesture and then verifies the local selection
// against the renderer.
func (m *Machine) PointerUp(ev PointerEvent) Effect {
	var eff Effect
	g := m.g
	m.g = gesture{}

	switch g.kind {
	case gesturePan:
		dx, dy := ev.X-g.lastX, ev.Y-g.lastY
		eff = Effect{PanDX: dx, PanDY: dy, PanEnded: true}

	case gestureRegionDrag:
		g.lastX, g.lastY = ev.X, ev.Y
		eff.Redraw = true
		if math.Abs(g.lastX-g.startX) >= m.cfg.MinRegionSize && math.Abs(g.lastY-g.startY) >= m.cfg.MinRegionSize {
			r := m.worldRect(g)
			eff.CreateRegion = &r
		}

	case gestureMove:
		eff.Changed = g.moved
	}

	eff.merge(m.VerifySelection())
	return eff
}

// Cancel abandons the current gesture with no persisted effect.
func (m *Machine) Cancel() Effect {
	if m.g.kind == gestureNone {
		return Effect{}
	}
	m.g = gesture{}
	return Effect{Redraw: true}
}

// Select makes id the selection, as if it had been clicked.
func (m *Machine) Select(id string) Effect {
	obj, ok := m.scene.Get(id)
	if !ok {
		return Effect{}
	}
	return m.selectObject(obj)
}

// ClearSelection empties the selection. Under any tool other than select,
// shape or text the machine falls back to select.
func (m *Machine) ClearSelection() Effect {
	var eff Effect
	if !m.selection.Empty() {
		m.selection = Selection{}
		eff.SelectionChanged = true
	}
	if m.renderer.ActiveObject() != "" {
		m.renderer.SetActiveObject("")
	}
	if !m.tool.keepsSelection() {
		m.g = gesture{}
		m.tool = Select
		eff.ToolChanged = true
	}
	return eff
}

// RemoveObject deletes an object from the scene and the renderer.
func (m *Machine) RemoveObject(id string) Effect {
	if _, ok := m.scene.Remove(id); !ok {
		return Effect{}
	}
	m.renderer.RemoveObject(id)
	eff := Effect{Changed: true, Redraw: true, Removed: id}
	if m.selection.ObjectID == id {
		m.selection = Selection{}
		m.renderer.SetActiveObject("")
		eff.SelectionChanged = true
	}
	return eff
}

// VerifySelection re-derives the local selection from the renderer's active
// object whenever the two disagree.
func (m *Machine) VerifySelection() Effect {
	active := m.renderer.ActiveObject()
	if active == m.selection.ObjectID {
		return Effect{}
	}
	if active == "" {
		return m.ClearSelection()
	}
	obj, ok := m.scene.Get(active)
	if !ok {
		m.renderer.SetActiveObject("")
		return m.ClearSelection()
	}
	m.selection = m.selectionFor(obj)
	return Effect{SelectionChanged: true}
}

func (m *Machine) selectObject(obj *scene.Object) Effect {
	m.renderer.SetActiveObject(obj.ID)
	if m.selection.ObjectID == obj.ID {
		return Effect{}
	}
	m.selection = m.selectionFor(obj)
	return Effect{SelectionChanged: true, Redraw: true}
}

func (m *Machine) selectionFor(obj *scene.Object) Selection {
	w, _ := m.scene.Viewport().Size()
	return Selection{
		ObjectID: obj.ID,
		Type:     obj.Kind,
		ToolbarX: w / 2,
		ToolbarY: m.cfg.ToolbarOffset,
	}
}

func (m *Machine) addObject(obj *scene.Object) Effect {
	if err := m.scene.Add(obj); err != nil {
		return Effect{}
	}
	m.renderer.AddObject(obj)
	eff := m.selectObject(obj)
	eff.Changed = true
	eff.Redraw = true
	return eff
}

func (m *Machine) dragWorldRect() geom.Rect {
	return m.worldRect(m.g)
}

func (m *Machine) worldRect(g gesture) geom.Rect {
	vp := m.scene.Viewport()
	x0, y0 := vp.ScreenToWorld(g.startX, g.startY)
	x1, y1 := vp.ScreenToWorld(g.lastX, g.lastY)
	return geom.RectFromCorners(x0, y0, x1, y1)
}
