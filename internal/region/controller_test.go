package region

import (
	"testing"
	"time"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/stroke"
)

func newController() *Controller {
	obj := scene.NewRegion("r1", "doc_1", geom.Rect{X: 100, Y: 50, Width: 200, Height: 100})
	return NewController(obj, stroke.DefaultSettings(), nil)
}

func sample(x, y float64, ms int) stroke.Sample {
	return stroke.Sample{X: x, Y: y, Time: time.Unix(0, 0).Add(time.Duration(ms) * time.Millisecond)}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		strokes int
	}{
		{"existing document", `{"strokes":[{"points":[{"x":1,"y":1,"pressure":0.5},{"x":2,"y":2,"pressure":0.5}],"size":3,"tool":"pen"}]}`, false, 1},
		{"no strokes", `{}`, false, 0},
		{"invalid document", `{"strokes":`, true, 0},
		{"empty document", ``, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController()
			err := c.Open([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open err = %v, wantErr %v", err, tt.wantErr)
			}
			wantState := Editing
			if tt.wantErr {
				wantState = Collapsed
			}
			if c.State() != wantState {
				t.Errorf("state = %s, want %s", c.State(), wantState)
			}
			if c.obj.Region.Editing != (wantState == Editing) {
				t.Error("object editing flag out of sync")
			}
			if n := len(c.Strokes()); n != tt.strokes {
				t.Errorf("strokes = %d, want %d", n, tt.strokes)
			}
		})
	}
}

func TestLocalCoordinates(t *testing.T) {
	c := newController()
	tests := []struct {
		name   string
		wx, wy float64
		x, y   float64
		ok     bool
	}{
		{"origin", 100, 50, 0, 0, true},
		{"inside", 150, 75, 50, 25, true},
		{"far corner", 300, 150, 200, 100, true},
		{"left of region", 99, 75, 0, 0, false},
		{"below region", 150, 151, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := c.Local(tt.wx, tt.wy)
			if ok != tt.ok || x != tt.x || y != tt.y {
				t.Errorf("Local(%v,%v) = %v,%v,%v", tt.wx, tt.wy, x, y, ok)
			}
		})
	}
}

func TestStrokeInsideRegion(t *testing.T) {
	c := newController()
	if err := c.Open([]byte(`{"strokes":[]}`)); err != nil {
		t.Fatal(err)
	}
	style := stroke.Style{Color: "#000", Size: 3, Opacity: 1}

	if c.PointerDown(sample(10, 10, 0), document.ToolPen, style) {
		t.Fatal("stroke started outside the region")
	}
	if !c.PointerDown(sample(110, 60, 0), document.ToolPen, style) {
		t.Fatal("stroke not started inside the region")
	}
	c.PointerMove(sample(500, 500, 10))
	c.PointerMove(sample(130, 70, 20))
	res := c.PointerUp(sample(140, 80, 30))
	if !res.Committed {
		t.Fatal("stroke not committed")
	}

	got := c.Strokes()[0].Points
	want := []document.Point{{X: 10, Y: 10}, {X: 30, Y: 20}, {X: 40, Y: 30}}
	if len(got) != len(want) {
		t.Fatalf("points = %+v", got)
	}
	for i := range want {
		if got[i].X != want[i].X || got[i].Y != want[i].Y {
			t.Errorf("point %d = (%v,%v), want (%v,%v)", i, got[i].X, got[i].Y, want[i].X, want[i].Y)
		}
	}

	data, err := c.Encode()
	if err != nil {
		t.Fatal(err)
	}
	doc, err := document.DecodeRegion(data)
	if err != nil || len(doc.Strokes) != 1 {
		t.Errorf("encoded document = %s, %v", data, err)
	}
}

func TestCollapsedRegionIgnoresInput(t *testing.T) {
	c := newController()
	if c.PointerDown(sample(150, 75, 0), document.ToolPen, stroke.Style{Size: 2}) {
		t.Error("collapsed region accepted a stroke")
	}
}

func TestExitDropsLiveStroke(t *testing.T) {
	c := newController()
	c.Open([]byte(`{}`))
	c.PointerDown(sample(150, 75, 0), document.ToolPen, stroke.Style{Size: 2})
	c.PointerMove(sample(160, 80, 20))
	c.Exit()
	if c.Drawing() || len(c.Strokes()) != 0 {
		t.Error("stroke survived Exit")
	}
	if c.State() != Collapsed {
		t.Errorf("state = %s", c.State())
	}
}

func TestSetAttach(t *testing.T) {
	sc := scene.New(nil)
	sc.Add(scene.NewRegion("a", "doc_a", geom.Rect{Width: 60, Height: 60}))
	sc.Add(scene.NewShape("s", document.ShapeRect, geom.Rect{Width: 10, Height: 10}, document.Style{}))
	sc.Add(scene.NewRegion("b", "doc_b", geom.Rect{X: 100, Width: 60, Height: 60}))

	set := NewSet(stroke.DefaultSettings(), nil)
	set.Attach(sc)
	if set.Len() != 2 {
		t.Fatalf("controllers = %d, want 2", set.Len())
	}
	c, _ := set.Get("a")
	c.Open([]byte(`{}`))
	set.Activate(c)

	set.Remove("a")
	if _, ok := set.Active(); ok {
		t.Error("removed region still active")
	}
	if c.State() != Collapsed {
		t.Error("removed region left open")
	}
}
