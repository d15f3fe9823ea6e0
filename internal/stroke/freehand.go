package stroke

import (
	"math"

	"github.com/inkboard/inkboard/internal/document"
)

const capSegments = 8

// Freehand is the default outline generator. It streamlines the input,
// derives a radius per sample from pressure and thinning, offsets both sides
// along the local normal and closes the ends with round or flat caps.
type Freehand struct{}

func (Freehand) Outline(points []document.Point, o OutlineOptions) []Vec {
	if len(points) == 0 || o.Size <= 0 {
		return nil
	}

	pts := streamline(points, o.Streamline, o.Last)
	n := len(pts)

	lengths := make([]float64, n)
	for i := 1; i < n; i++ {
		lengths[i] = lengths[i-1] + math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	total := lengths[n-1]

	radii := make([]float64, n)
	prev := pts[0].Pressure
	for i, p := range pts {
		pressure := p.Pressure
		if o.SimulatePressure && i > 0 {
			// Faster movement between samples reads as lighter pressure.
			speed := math.Min(1, (lengths[i]-lengths[i-1])/o.Size)
			pressure = math.Min(1, prev+((1-speed)-prev)*speed*0.275)
		}
		if pressure <= 0 {
			pressure = 0.5
		}
		prev = pressure

		r := o.Size * (0.5 - o.Thinning*(0.5-pressure))
		if o.TaperStart > 0 && lengths[i] < o.TaperStart {
			r *= easeOutQuad(lengths[i] / o.TaperStart)
		}
		if o.TaperEnd > 0 && total-lengths[i] < o.TaperEnd {
			r *= easeOutQuad((total - lengths[i]) / o.TaperEnd)
		}
		if i > 0 && o.Smoothing > 0 {
			k := o.Smoothing * 0.5
			r = radii[i-1]*k + r*(1-k)
		}
		radii[i] = math.Max(r, 0)
	}

	if total == 0 {
		if radii[0] <= 0 {
			return nil
		}
		return circle(pts[0].X, pts[0].Y, radii[0], capSegments*2)
	}

	left := make([]Vec, 0, n)
	right := make([]Vec, 0, n)
	var nx, ny float64
	for i := range pts {
		a := pts[max(i-1, 0)]
		b := pts[min(i+1, n-1)]
		dx, dy := b.X-a.X, b.Y-a.Y
		if l := math.Hypot(dx, dy); l > 0 {
			nx, ny = -dy/l, dx/l
		}
		left = append(left, Vec{pts[i].X + nx*radii[i], pts[i].Y + ny*radii[i]})
		right = append(right, Vec{pts[i].X - nx*radii[i], pts[i].Y - ny*radii[i]})
	}

	poly := make([]Vec, 0, 2*n+2*capSegments)
	poly = append(poly, left...)

	last := pts[n-1]
	endNormal := math.Atan2(left[n-1].Y-last.Y, left[n-1].X-last.X)
	if o.CapEnd && radii[n-1] > 0 {
		poly = append(poly, arc(last.X, last.Y, radii[n-1], endNormal, -1)...)
	}
	for i := n - 1; i >= 0; i-- {
		poly = append(poly, right[i])
	}

	first := pts[0]
	startNormal := math.Atan2(left[0].Y-first.Y, left[0].X-first.X)
	if o.CapStart && radii[0] > 0 {
		poly = append(poly, arc(first.X, first.Y, radii[0], startNormal+math.Pi, -1)...)
	}

	for _, v := range poly {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return nil
		}
	}
	return poly
}

// streamline pulls each sample toward its predecessor; higher streamline
// values follow the pointer more loosely.
func streamline(points []document.Point, amount float64, last bool) []document.Point {
	t := 0.15 + (1-clamp(amount, 0, 1))*0.85
	out := make([]document.Point, 0, len(points)+1)
	out = append(out, points[0])
	for _, p := range points[1:] {
		prev := out[len(out)-1]
		out = append(out, document.Point{
			X:        prev.X + (p.X-prev.X)*t,
			Y:        prev.Y + (p.Y-prev.Y)*t,
			Pressure: p.Pressure,
		})
	}
	if last && len(points) > 1 {
		end := points[len(points)-1]
		if tail := out[len(out)-1]; tail.X != end.X || tail.Y != end.Y {
			out = append(out, end)
		}
	}
	return out
}

// arc returns the interior points of a half circle starting at angle from and
// sweeping pi radians in direction dir (+1 counter-clockwise, -1 clockwise).
func arc(cx, cy, r, from float64, dir float64) []Vec {
	pts := make([]Vec, 0, capSegments-1)
	for k := 1; k < capSegments; k++ {
		a := from + dir*math.Pi*float64(k)/capSegments
		pts = append(pts, Vec{cx + r*math.Cos(a), cy + r*math.Sin(a)})
	}
	return pts
}

func circle(cx, cy, r float64, segments int) []Vec {
	pts := make([]Vec, segments)
	for k := range pts {
		a := 2 * math.Pi * float64(k) / float64(segments)
		pts[k] = Vec{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	return pts
}

func easeOutQuad(t float64) float64 {
	t = clamp(t, 0, 1)
	return t * (2 - t)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
