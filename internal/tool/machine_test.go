package tool

import (
	"testing"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/stroke"
	"github.com/inkboard/inkboard/internal/viewport"
)

type fakeRenderer struct {
	ids    []string
	active string
}

func (f *fakeRenderer) AddObject(obj *scene.Object) { f.ids = append(f.ids, obj.ID) }
func (f *fakeRenderer) RemoveObject(id string) {
	for i, v := range f.ids {
		if v == id {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			return
		}
	}
}
func (f *fakeRenderer) UpdateObject(*scene.Object)           {}
func (f *fakeRenderer) Clear()                               { f.ids = nil; f.active = "" }
func (f *fakeRenderer) ObjectIDs() []string                  { return f.ids }
func (f *fakeRenderer) SetViewportTransform(geom.Matrix2D)   {}
func (f *fakeRenderer) ActiveObject() string                 { return f.active }
func (f *fakeRenderer) SetActiveObject(id string)            { f.active = id }
func (f *fakeRenderer) SetOutlines(string, []stroke.Outline) {}
func (f *fakeRenderer) Render()                              {}

func setup(t *testing.T) (*Machine, *scene.Scene, *fakeRenderer) {
	t.Helper()
	s := scene.New(viewport.New(800, 600, viewport.DefaultLimits()))
	r := &fakeRenderer{}
	return New(s, r, DefaultConfig()), s, r
}

func addShape(t *testing.T, s *scene.Scene, r *fakeRenderer, id string, b geom.Rect) {
	t.Helper()
	obj := scene.NewShape(id, document.ShapeRect, b, document.Style{})
	if err := s.Add(obj); err != nil {
		t.Fatal(err)
	}
	r.AddObject(obj)
}

func at(x, y float64) PointerEvent { return PointerEvent{X: x, Y: y} }

func TestShapeCreatesThenSelects(t *testing.T) {
	m, s, r := setup(t)
	m.SetTool(Shape)
	eff := m.PointerDown(at(100, 100))

	if !eff.Changed || !eff.ToolChanged || !eff.SelectionChanged {
		t.Errorf("effect = %+v", eff)
	}
	if m.Tool() != Select {
		t.Errorf("tool = %s, want select", m.Tool())
	}
	if s.Len() != 1 {
		t.Fatalf("objects = %d, want 1", s.Len())
	}
	obj := s.Objects()[0]
	if obj.Kind != scene.KindShape || obj.Bounds.X != 100 || obj.Bounds.Y != 100 {
		t.Errorf("shape = %+v", obj)
	}
	if m.Selection().ObjectID != obj.ID || r.active != obj.ID {
		t.Errorf("selection = %q, renderer = %q", m.Selection().ObjectID, r.active)
	}
}

func TestShapeOnExistingObjectSelects(t *testing.T) {
	m, s, r := setup(t)
	addShape(t, s, r, "a", geom.Rect{X: 90, Y: 90, Width: 50, Height: 50})
	m.SetTool(Shape)
	eff := m.PointerDown(at(100, 100))
	if eff.Changed || s.Len() != 1 {
		t.Error("shape tool created an object over an existing one")
	}
	if m.Tool() != Select || m.Selection().ObjectID != "a" {
		t.Errorf("tool = %s, selection = %q", m.Tool(), m.Selection().ObjectID)
	}
}

func TestTextCreatesAndRequestsEdit(t *testing.T) {
	m, s, _ := setup(t)
	m.SetTool(Text)
	eff := m.PointerDown(at(50, 60))
	if eff.EditText == "" {
		t.Fatal("no inline edit requested")
	}
	obj, ok := s.Get(eff.EditText)
	if !ok || obj.Kind != scene.KindText {
		t.Fatalf("text object = %+v", obj)
	}
	if m.Tool() != Select {
		t.Errorf("tool = %s, want select", m.Tool())
	}
}

func TestRegionDrag(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		create bool
	}{
		{"too small", 30, 30, false},
		{"narrow", 200, 30, false},
		{"exact minimum", 50, 50, true},
		{"large", 200, 120, true},
		{"dragged up-left", -80, -60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, s, _ := setup(t)
			m.SetTool(Draw)
			m.PointerDown(at(300, 300))
			m.PointerMove(at(300+tt.dx/2, 300+tt.dy/2))
			eff := m.PointerUp(at(300+tt.dx, 300+tt.dy))

			if got := eff.CreateRegion != nil; got != tt.create {
				t.Errorf("CreateRegion = %v, want %v", got, tt.create)
			}
			if s.Len() != 0 {
				t.Error("machine added an object itself")
			}
			if tt.create && (eff.CreateRegion.Width != abs(tt.dx) || eff.CreateRegion.Height != abs(tt.dy)) {
				t.Errorf("bounds = %+v", *eff.CreateRegion)
			}
		})
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestRegionDragUsesScreenSize(t *testing.T) {
	m, s, _ := setup(t)
	s.Viewport().ZoomAt(2, 400, 300)
	m.SetTool(Draw)
	m.PointerDown(at(300, 300))
	eff := m.PointerUp(at(360, 360))
	if eff.CreateRegion == nil {
		t.Fatal("60px screen drag rejected")
	}
	if eff.CreateRegion.Width != 30 {
		t.Errorf("world width = %v, want 30", eff.CreateRegion.Width)
	}
}

func TestDrawOnRegionEnters(t *testing.T) {
	m, s, r := setup(t)
	reg := scene.NewRegion("r", "doc_1", geom.Rect{X: 100, Y: 100, Width: 200, Height: 200})
	s.Add(reg)
	r.AddObject(reg)
	m.SetTool(Draw)
	eff := m.PointerDown(at(150, 150))
	if eff.EnterRegion != "r" {
		t.Errorf("EnterRegion = %q", eff.EnterRegion)
	}
	if _, ok := m.RegionDrag(); ok {
		t.Error("region drag started on an existing region")
	}
}

func TestNoRegionDragWhileEditing(t *testing.T) {
	m, _, _ := setup(t)
	m.SetTool(Draw)
	m.SetRegionEditing(true)
	m.PointerDown(at(10, 10))
	if eff := m.PointerUp(at(200, 200)); eff.CreateRegion != nil {
		t.Error("region created while another is being edited")
	}
}

func TestEraserRemovesObject(t *testing.T) {
	m, s, r := setup(t)
	addShape(t, s, r, "a", geom.Rect{X: 0, Y: 0, Width: 50, Height: 50})
	m.SetTool(Eraser)

	eff := m.PointerDown(at(10, 10))
	if eff.Removed != "a" || !eff.Changed {
		t.Errorf("effect = %+v", eff)
	}
	if s.Len() != 0 || len(r.ids) != 0 {
		t.Errorf("scene %d, renderer %v", s.Len(), r.ids)
	}
	if m.Tool() != Eraser {
		t.Errorf("tool = %s, want eraser", m.Tool())
	}
}

func TestPanOnlyEndSaves(t *testing.T) {
	m, _, _ := setup(t)
	m.SetTool(Pan)
	m.PointerDown(at(10, 10))
	mid := m.PointerMove(at(25, 5))
	if mid.PanDX != 15 || mid.PanDY != -5 || mid.PanEnded || mid.Changed {
		t.Errorf("move effect = %+v", mid)
	}
	end := m.PointerUp(at(30, 5))
	if end.PanDX != 5 || !end.PanEnded {
		t.Errorf("up effect = %+v", end)
	}
}

func TestSelectMoveMarksChanged(t *testing.T) {
	m, s, r := setup(t)
	addShape(t, s, r, "a", geom.Rect{X: 0, Y: 0, Width: 50, Height: 50})
	m.PointerDown(at(10, 10))
	m.PointerMove(at(30, 40))
	eff := m.PointerUp(at(30, 40))
	if !eff.Changed {
		t.Error("move not reported as change")
	}
	obj, _ := s.Get("a")
	if obj.Bounds.X != 20 || obj.Bounds.Y != 30 {
		t.Errorf("bounds = %+v", obj.Bounds)
	}

	m.PointerDown(at(25, 35))
	if eff := m.PointerUp(at(25, 35)); eff.Changed {
		t.Error("click without movement reported as change")
	}
}

func TestClearSelectionForcesSelect(t *testing.T) {
	tests := []struct {
		tool Tool
		want Tool
	}{
		{Select, Select},
		{Shape, Shape},
		{Text, Text},
		{Draw, Select},
		{Pan, Select},
		{Eraser, Select},
	}
	for _, tt := range tests {
		t.Run(string(tt.tool), func(t *testing.T) {
			m, _, _ := setup(t)
			m.SetTool(tt.tool)
			m.ClearSelection()
			if m.Tool() != tt.want {
				t.Errorf("tool = %s, want %s", m.Tool(), tt.want)
			}
		})
	}
}

func TestVerifySelectionFollowsRenderer(t *testing.T) {
	m, s, r := setup(t)
	addShape(t, s, r, "a", geom.Rect{Width: 10, Height: 10})
	addShape(t, s, r, "b", geom.Rect{X: 100, Width: 10, Height: 10})
	m.Select("a")

	r.active = "b"
	eff := m.VerifySelection()
	if !eff.SelectionChanged || m.Selection().ObjectID != "b" {
		t.Errorf("selection = %q", m.Selection().ObjectID)
	}
	if m.Selection().Type != scene.KindShape || m.Selection().ToolbarX != 400 {
		t.Errorf("selection = %+v", m.Selection())
	}

	r.active = "gone"
	m.VerifySelection()
	if !m.Selection().Empty() || r.active != "" {
		t.Errorf("stale renderer selection kept: %q / %q", m.Selection().ObjectID, r.active)
	}
}

func TestSetToolClearsSelection(t *testing.T) {
	m, s, r := setup(t)
	addShape(t, s, r, "a", geom.Rect{Width: 10, Height: 10})
	m.Select("a")
	eff := m.SetTool(Draw)
	if !eff.ToolChanged || !eff.SelectionChanged || !m.Selection().Empty() {
		t.Errorf("effect = %+v selection = %+v", eff, m.Selection())
	}
	if m.Tool() != Draw {
		t.Errorf("tool = %s, want draw", m.Tool())
	}
}

func TestCancelDiscardsRegionDrag(t *testing.T) {
	m, _, _ := setup(t)
	m.SetTool(Draw)
	m.PointerDown(at(0, 0))
	m.PointerMove(at(300, 300))
	m.Cancel()
	if eff := m.PointerUp(at(300, 300)); eff.CreateRegion != nil {
		t.Error("cancelled drag committed a region")
	}
}

func TestParse(t *testing.T) {
	if got, ok := Parse("eraser"); !ok || got != Eraser {
		t.Errorf("Parse(eraser) = %v, %v", got, ok)
	}
	if _, ok := Parse("lasso"); ok {
		t.Error("Parse accepted unknown tool")
	}
}
