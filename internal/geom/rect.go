package geom

import "math"

// Rect is an axis-aligned box.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectFromCorners builds a normalised rect from two arbitrary corners, as
// produced by a drag in any direction.
func RectFromCorners(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X:      math.Min(x0, x1),
		Y:      math.Min(y0, y1),
		Width:  math.Abs(x1 - x0),
		Height: math.Abs(y1 - y0),
	}
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Inset shrinks r by d on every side; a negative d grows it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
}

// Distance is the Euclidean distance between two points.
func Distance(x0, y0, x1, y1 float64) float64 {
	return math.Hypot(x1-x0, y1-y0)
}
