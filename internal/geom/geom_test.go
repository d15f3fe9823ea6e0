package geom

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMultiplyAppliesArgumentFirst(t *testing.T) {
	// Scale then translate: (1,1) -> (2,2) -> (12,2).
	m := Translate(10, 0).Multiply(Scale(2, 2))
	x, y := m.TransformPoint(1, 1)
	if !near(x, 12) || !near(y, 2) {
		t.Fatalf("got (%v, %v), want (12, 2)", x, y)
	}
}

func TestInvert(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix2D
	}{
		{"identity", Identity()},
		{"translate", Translate(-4, 7)},
		{"scale and translate", Translate(3, 5).Multiply(Scale(0.5, 4))},
		{"rotate", RotateDegrees(30).Multiply(Translate(1, 2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.m.TransformPoint(13, -6)
			bx, by := tt.m.Invert().TransformPoint(x, y)
			if !near(bx, 13) || !near(by, -6) {
				t.Fatalf("round trip gave (%v, %v)", bx, by)
			}
		})
	}

	if got := (Matrix2D{}).Invert(); got != Identity() {
		t.Errorf("singular invert = %v, want identity", got)
	}
}

func TestTransformRect(t *testing.T) {
	r := RotateDegrees(90).TransformRect(Rect{X: 0, Y: 0, Width: 10, Height: 4})
	want := Rect{X: -4, Y: 0, Width: 4, Height: 10}
	if !near(r.X, want.X) || !near(r.Y, want.Y) || !near(r.Width, want.Width) || !near(r.Height, want.Height) {
		t.Fatalf("got %+v, want %+v", r, want)
	}
}

func TestRect(t *testing.T) {
	r := RectFromCorners(30, 40, 10, 0)
	if r != (Rect{X: 10, Y: 0, Width: 20, Height: 40}) {
		t.Fatalf("RectFromCorners = %+v", r)
	}

	tests := []struct {
		x, y float64
		want bool
	}{
		{10, 0, true},
		{30, 40, true},
		{20, 20, true},
		{9.9, 20, false},
		{20, 40.1, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}

	if in := r.Inset(5); in != (Rect{X: 15, Y: 5, Width: 10, Height: 30}) {
		t.Errorf("Inset = %+v", in)
	}
	if !r.Inset(10).IsEmpty() {
		t.Error("inset past the width should be empty")
	}
	if cx, cy := r.Center(); cx != 20 || cy != 20 {
		t.Errorf("Center = (%v, %v)", cx, cy)
	}
}
