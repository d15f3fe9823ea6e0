// Package stroke turns pointer samples into freehand strokes, renders them
// through an outline generator and erases them by proximity.
package stroke

import (
	"math"
	"time"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/typeid"
)

const (
	// DefaultMaxVelocity is in px/ms.
	DefaultMaxVelocity    = 2.0
	DefaultRenderInterval = 16 * time.Millisecond

	minPressure = 0.1
	maxPressure = 1.0
	// Pressure recorded for the first sample when the device reports none.
	defaultPressure = 0.5
)

// Sample is one pointer event in the owning region's coordinate space.
type Sample struct {
	X, Y        float64
	Pressure    float64
	HasPressure bool
	Time        time.Time
}

// Style is the paint a new stroke is started with.
type Style struct {
	Color   string
	Size    float64
	Opacity float64
}

type Settings struct {
	MaxVelocity    float64
	RenderInterval time.Duration
	Brush          Brush
}

func DefaultSettings() Settings {
	return Settings{
		MaxVelocity:    DefaultMaxVelocity,
		RenderInterval: DefaultRenderInterval,
		Brush:          DefaultBrush(),
	}
}

// Result describes what Finish did.
type Result struct {
	// Committed is true when a pen or highlighter stroke was appended.
	Committed bool
	// Erased counts strokes removed by an eraser stroke.
	Erased int
}

// Changed reports whether the persisted stroke list was modified.
func (r Result) Changed() bool {
	return r.Committed || r.Erased > 0
}

type live struct {
	stroke     document.Stroke
	lastTime   time.Time
	lastRender time.Time
}

// Pipeline owns the persisted stroke list of one region and at most one
// in-progress stroke. It is not safe for concurrent use.
type Pipeline struct {
	settings  Settings
	generator OutlineGenerator
	strokes   []document.Stroke
	current   *live
}

// NewPipeline returns an empty pipeline. A nil generator selects Freehand.
func NewPipeline(settings Settings, generator OutlineGenerator) *Pipeline {
	if settings.MaxVelocity <= 0 {
		settings.MaxVelocity = DefaultMaxVelocity
	}
	if generator == nil {
		generator = Freehand{}
	}
	return &Pipeline{settings: settings, generator: generator, strokes: []document.Stroke{}}
}

// SetStrokes replaces the persisted list, e.g. after loading a region document.
func (p *Pipeline) SetStrokes(strokes []document.Stroke) {
	p.strokes = append([]document.Stroke(nil), strokes...)
}

// Strokes returns a copy of the persisted list, oldest first.
func (p *Pipeline) Strokes() []document.Stroke {
	return append([]document.Stroke(nil), p.strokes...)
}

func (p *Pipeline) Active() bool {
	return p.current != nil
}

// Current returns the in-progress stroke, if any.
func (p *Pipeline) Current() (document.Stroke, bool) {
	if p.current == nil {
		return document.Stroke{}, false
	}
	return p.current.stroke, true
}

// Begin starts a stroke with one point. Any stroke already in progress is
// discarded.
func (p *Pipeline) Begin(s Sample, tool document.Tool, style Style) {
	pressure := defaultPressure
	if s.HasPressure {
		pressure = clamp(s.Pressure, minPressure, maxPressure)
	}
	p.current = &live{
		stroke: document.Stroke{
			ID:      typeid.NewStrokeID(),
			Points:  []document.Point{{X: s.X, Y: s.Y, Pressure: pressure}},
			Color:   style.Color,
			Size:    style.Size,
			Opacity: style.Opacity,
			Tool:    tool,
		},
		lastTime:   s.Time,
		lastRender: s.Time,
	}
}

// Extend appends a sample to the in-progress stroke. Every sample is recorded;
// the return value only says whether enough time has passed since the last
// paint to repaint now.
func (p *Pipeline) Extend(s Sample) bool {
	if p.current == nil {
		return false
	}
	c := p.current
	prev := c.stroke.Points[len(c.stroke.Points)-1]

	var pressure float64
	if s.HasPressure {
		pressure = clamp(s.Pressure, minPressure, maxPressure)
	} else {
		pressure = p.velocityPressure(prev, s, c.lastTime)
	}
	c.stroke.Points = append(c.stroke.Points, document.Point{X: s.X, Y: s.Y, Pressure: pressure})
	c.lastTime = s.Time

	if s.Time.Sub(c.lastRender) < p.settings.RenderInterval {
		return false
	}
	c.lastRender = s.Time
	return true
}

// velocityPressure simulates pressure from pointer speed relative to the
// immediately preceding sample. Samples with no elapsed time keep the
// previous pressure.
func (p *Pipeline) velocityPressure(prev document.Point, s Sample, prevTime time.Time) float64 {
	dt := float64(s.Time.Sub(prevTime)) / float64(time.Millisecond)
	if dt <= 0 {
		return prev.Pressure
	}
	velocity := math.Hypot(s.X-prev.X, s.Y-prev.Y) / dt
	return clamp(1-velocity/p.settings.MaxVelocity, minPressure, maxPressure)
}

// Finish ends the in-progress stroke. Strokes with fewer than two points are
// dropped. Eraser strokes remove every intersecting stroke and are never
// stored.
func (p *Pipeline) Finish() Result {
	if p.current == nil {
		return Result{}
	}
	s := p.current.stroke
	p.current = nil

	if len(s.Points) < 2 {
		return Result{}
	}
	if s.Tool == document.ToolEraser {
		kept, removed := EraseIntersecting(s, p.strokes)
		p.strokes = kept
		return Result{Erased: removed}
	}
	p.strokes = append(p.strokes, s)
	return Result{Committed: true}
}

// Cancel abandons the in-progress stroke with no persisted effect.
func (p *Pipeline) Cancel() {
	p.current = nil
}

// Outlines renders persisted strokes oldest first, then the in-progress
// stroke on top. Strokes without a usable outline are skipped.
func (p *Pipeline) Outlines() []Outline {
	out := make([]Outline, 0, len(p.strokes)+1)
	for _, s := range p.strokes {
		if o, ok := p.outline(s, true); ok {
			out = append(out, o)
		}
	}
	if p.current != nil {
		if o, ok := p.outline(p.current.stroke, false); ok {
			o.Live = true
			out = append(out, o)
		}
	}
	return out
}

func (p *Pipeline) outline(s document.Stroke, last bool) (Outline, bool) {
	poly := p.generator.Outline(s.Points, p.settings.Brush.OptionsFor(s, last))
	if len(poly) < 3 {
		return Outline{}, false
	}
	return Outline{
		StrokeID: s.ID,
		Polygon:  poly,
		Color:    s.Color,
		Opacity:  s.Opacity,
		Tool:     s.Tool,
	}, true
}
