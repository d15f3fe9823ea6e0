package geom

import "math"

// Matrix2D is a 2D affine transform in canvas order [a, b, c, d, e, f]:
//
//	| a  c  e |
//	| b  d  f |
//	| 0  0  1 |
type Matrix2D [6]float64

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// RotateDegrees returns a rotation about the origin.
func RotateDegrees(degrees float64) Matrix2D {
	rad := degrees * math.Pi / 180.0
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// Multiply returns m * other, i.e. other is applied first.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformRect returns the axis-aligned bounds of r after transformation.
func (m Matrix2D) TransformRect(r Rect) Rect {
	x0, y0 := m.TransformPoint(r.X, r.Y)
	x1, y1 := m.TransformPoint(r.X+r.Width, r.Y)
	x2, y2 := m.TransformPoint(r.X+r.Width, r.Y+r.Height)
	x3, y3 := m.TransformPoint(r.X, r.Y+r.Height)

	minX := min(x0, x1, x2, x3)
	minY := min(y0, y1, y2, y3)
	maxX := max(x0, x1, x2, x3)
	maxY := max(y0, y1, y2, y3)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse, or Identity when m is singular.
func (m Matrix2D) Invert() Matrix2D {
	det := m.Determinant()
	if det == 0 {
		return Identity()
	}
	inv := 1.0 / det
	return Matrix2D{
		m[3] * inv,
		-m[1] * inv,
		-m[2] * inv,
		m[0] * inv,
		(m[2]*m[5] - m[3]*m[4]) * inv,
		(m[1]*m[4] - m[0]*m[5]) * inv,
	}
}

// ToSlice is the form handed to the renderer's setViewportTransform.
func (m Matrix2D) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}
