package stroke

import (
	"math"
	"testing"
	"time"

	"github.com/inkboard/inkboard/internal/document"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func penStyle() Style {
	return Style{Color: "#000000", Size: 3, Opacity: 1}
}

func TestFinishDiscardsShortStrokes(t *testing.T) {
	tests := []struct {
		name    string
		extends int
		want    bool
	}{
		{"single point", 0, false},
		{"two points", 1, true},
		{"many points", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(DefaultSettings(), nil)
			p.Begin(Sample{X: 1, Y: 1, Time: at(0)}, document.ToolPen, penStyle())
			for i := 0; i < tt.extends; i++ {
				p.Extend(Sample{X: float64(2 + i), Y: 1, Time: at(10 * (i + 1))})
			}
			res := p.Finish()
			if res.Committed != tt.want {
				t.Errorf("Committed = %v, want %v", res.Committed, tt.want)
			}
			if got := len(p.Strokes()) == 1; got != tt.want {
				t.Errorf("stroke stored = %v, want %v", got, tt.want)
			}
			if p.Active() {
				t.Error("pipeline still active after Finish")
			}
		})
	}
}

func TestFinishWithoutBeginIsNoop(t *testing.T) {
	p := NewPipeline(DefaultSettings(), nil)
	if res := p.Finish(); res.Changed() {
		t.Errorf("Finish on idle pipeline = %+v", res)
	}
	if p.Extend(Sample{X: 1, Y: 1, Time: at(5)}) {
		t.Error("Extend on idle pipeline asked for a repaint")
	}
}

func TestCancelDropsStroke(t *testing.T) {
	p := NewPipeline(DefaultSettings(), nil)
	p.Begin(Sample{X: 0, Y: 0, Time: at(0)}, document.ToolPen, penStyle())
	p.Extend(Sample{X: 10, Y: 0, Time: at(20)})
	p.Cancel()
	if res := p.Finish(); res.Changed() {
		t.Errorf("Finish after Cancel = %+v", res)
	}
	if n := len(p.Strokes()); n != 0 {
		t.Errorf("strokes = %d, want 0", n)
	}
}

func TestVelocityPressure(t *testing.T) {
	tests := []struct {
		name string
		dx   float64
		dtMs int
		want float64
	}{
		{"still", 0, 10, 1.0},
		{"half max velocity", 10, 10, 0.5},
		{"at max velocity clamps low", 20, 10, 0.1},
		{"beyond max velocity", 100, 10, 0.1},
		{"slow", 2, 10, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(DefaultSettings(), nil)
			p.Begin(Sample{X: 0, Y: 0, Time: at(0)}, document.ToolPen, penStyle())
			p.Extend(Sample{X: tt.dx, Y: 0, Time: at(tt.dtMs)})
			s, _ := p.Current()
			got := s.Points[1].Pressure
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("pressure = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDevicePressureWins(t *testing.T) {
	p := NewPipeline(DefaultSettings(), nil)
	p.Begin(Sample{X: 0, Y: 0, Pressure: 0.7, HasPressure: true, Time: at(0)}, document.ToolPen, penStyle())
	p.Extend(Sample{X: 100, Y: 0, Pressure: 0.3, HasPressure: true, Time: at(1)})
	s, _ := p.Current()
	if s.Points[0].Pressure != 0.7 || s.Points[1].Pressure != 0.3 {
		t.Errorf("pressures = %v, %v", s.Points[0].Pressure, s.Points[1].Pressure)
	}
}

func TestExtendRateLimitsRenderButKeepsSamples(t *testing.T) {
	p := NewPipeline(DefaultSettings(), nil)
	p.Begin(Sample{X: 0, Y: 0, Time: at(0)}, document.ToolPen, penStyle())

	repaints := 0
	for i := 1; i <= 40; i++ {
		if p.Extend(Sample{X: float64(i), Y: 0, Time: at(i * 2)}) {
			repaints++
		}
	}
	s, _ := p.Current()
	if len(s.Points) != 41 {
		t.Errorf("points = %d, want 41", len(s.Points))
	}
	// 80ms of samples at a 16ms interval.
	if repaints != 5 {
		t.Errorf("repaints = %d, want 5", repaints)
	}
}

func TestEraserStrokeRemovesAndIsNotStored(t *testing.T) {
	p := NewPipeline(DefaultSettings(), nil)
	p.SetStrokes([]document.Stroke{
		{ID: "a", Points: []document.Point{{X: 12, Y: 12}, {X: 100, Y: 100}}, Size: 3, Tool: document.ToolPen},
		{ID: "b", Points: []document.Point{{X: 300, Y: 300}, {X: 310, Y: 310}}, Size: 3, Tool: document.ToolPen},
	})
	p.Begin(Sample{X: 10, Y: 10, Time: at(0)}, document.ToolEraser, Style{Size: 20})
	p.Extend(Sample{X: 50, Y: 50, Time: at(30)})
	res := p.Finish()

	if res.Committed {
		t.Error("eraser stroke was committed")
	}
	if res.Erased != 1 {
		t.Errorf("Erased = %d, want 1", res.Erased)
	}
	got := p.Strokes()
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("remaining strokes = %+v", got)
	}
}

func TestOutlinesOrder(t *testing.T) {
	p := NewPipeline(DefaultSettings(), nil)
	p.SetStrokes([]document.Stroke{
		{ID: "old", Points: []document.Point{{X: 0, Y: 0, Pressure: 0.5}, {X: 20, Y: 0, Pressure: 0.5}}, Size: 4, Tool: document.ToolPen},
		{ID: "new", Points: []document.Point{{X: 0, Y: 10, Pressure: 0.5}, {X: 20, Y: 10, Pressure: 0.5}}, Size: 4, Tool: document.ToolHighlighter},
	})
	p.Begin(Sample{X: 5, Y: 5, Time: at(0)}, document.ToolPen, penStyle())
	p.Extend(Sample{X: 25, Y: 5, Time: at(20)})

	out := p.Outlines()
	if len(out) != 3 {
		t.Fatalf("outlines = %d, want 3", len(out))
	}
	if out[0].StrokeID != "old" || out[1].StrokeID != "new" {
		t.Errorf("persisted order = %s, %s", out[0].StrokeID, out[1].StrokeID)
	}
	if !out[2].Live {
		t.Error("in-progress stroke not rendered last")
	}
}

type emptyGenerator struct{}

func (emptyGenerator) Outline([]document.Point, OutlineOptions) []Vec { return nil }

func TestOutlinesSkipsUnusableOutline(t *testing.T) {
	p := NewPipeline(DefaultSettings(), emptyGenerator{})
	p.SetStrokes([]document.Stroke{{ID: "x", Points: []document.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, Size: 2}})
	if out := p.Outlines(); len(out) != 0 {
		t.Errorf("outlines = %d, want 0", len(out))
	}
}
