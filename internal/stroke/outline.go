package stroke

import (
	"github.com/inkboard/inkboard/internal/document"
)

// Vec is a point of an outline polygon.
type Vec struct {
	X, Y float64
}

// OutlineOptions are forwarded to the outline generator for one stroke.
type OutlineOptions struct {
	Size             float64
	Thinning         float64
	Smoothing        float64
	Streamline       float64
	SimulatePressure bool
	TaperStart       float64
	TaperEnd         float64
	CapStart         bool
	CapEnd           bool
	// Last is set once the stroke is finished so the generator may close it off.
	Last bool
}

// OutlineGenerator turns a pressure-weighted polyline into a filled polygon.
// An empty result means no usable outline and the stroke is skipped for that
// render pass.
type OutlineGenerator interface {
	Outline(points []document.Point, opts OutlineOptions) []Vec
}

// HighlighterThinning is negative so highlighters widen where pens narrow,
// giving a flat marker shape.
const HighlighterThinning = -0.5

// Brush holds the configured pen feel.
type Brush struct {
	Thinning         float64
	Smoothing        float64
	Streamline       float64
	SimulatePressure bool
	TaperStart       float64
	TaperEnd         float64
	CapStart         bool
	CapEnd           bool
}

func DefaultBrush() Brush {
	return Brush{
		Thinning:   0.5,
		Smoothing:  0.5,
		Streamline: 0.5,
		CapStart:   true,
		CapEnd:     true,
	}
}

// OptionsFor derives generator options for s from the brush.
func (b Brush) OptionsFor(s document.Stroke, last bool) OutlineOptions {
	thinning := b.Thinning
	if s.Tool == document.ToolHighlighter {
		thinning = HighlighterThinning
	}
	return OutlineOptions{
		Size:             s.Size,
		Thinning:         thinning,
		Smoothing:        b.Smoothing,
		Streamline:       b.Streamline,
		SimulatePressure: b.SimulatePressure,
		TaperStart:       b.TaperStart,
		TaperEnd:         b.TaperEnd,
		CapStart:         b.CapStart,
		CapEnd:           b.CapEnd,
		Last:             last,
	}
}

// Outline is a renderable stroke: the polygon plus the paint to fill it with.
type Outline struct {
	StrokeID string
	Polygon  []Vec
	Color    string
	Opacity  float64
	Tool     document.Tool
	Live     bool
}
