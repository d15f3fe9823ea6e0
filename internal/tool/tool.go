// Package tool interprets pointer input according to the active tool and
// applies the resulting scene mutations.
package tool

import (
	"time"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/scene"
)

type Tool string

const (
	Select Tool = "select"
	Pan    Tool = "pan"
	Draw   Tool = "draw"
	Text   Tool = "text"
	Shape  Tool = "shape"
	Eraser Tool = "eraser"
)

var all = []Tool{Select, Pan, Draw, Text, Shape, Eraser}

// Parse maps a tool name from the host to a Tool.
func Parse(name string) (Tool, bool) {
	for _, t := range all {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// keepsSelection lists the tools under which an existing selection survives.
func (t Tool) keepsSelection() bool {
	return t == Select || t == Shape || t == Text
}

// PointerEvent is a pointer sample in screen coordinates.
type PointerEvent struct {
	X, Y        float64
	Pressure    float64
	HasPressure bool
	Time        time.Time
}

// Selection is the locally tracked selection plus where the host should
// place the contextual toolbar.
type Selection struct {
	ObjectID string
	Type     scene.Kind
	ToolbarX float64
	ToolbarY float64
}

func (s Selection) Empty() bool {
	return s.ObjectID == ""
}

// Effect reports what a handler did so the caller can schedule saves,
// notify the host and drive the region controller.
type Effect struct {
	Changed          bool
	ToolChanged      bool
	SelectionChanged bool
	Redraw           bool

	// PanDX/PanDY is a screen delta to apply to the viewport. It is not a
	// save trigger; PanEnded is.
	PanDX, PanDY float64
	PanEnded     bool

	// CreateRegion is set when a region drag was committed. Bounds are world
	// coordinates.
	CreateRegion *geom.Rect
	// EnterRegion names a region object to open for editing.
	EnterRegion string
	// EditText names a freshly created text object awaiting inline editing.
	EditText string
	// Removed names an object removed by the eraser.
	Removed string
}

func (e *Effect) merge(o Effect) {
	e.Changed = e.Changed || o.Changed
	e.ToolChanged = e.ToolChanged || o.ToolChanged
	e.SelectionChanged = e.SelectionChanged || o.SelectionChanged
	e.Redraw = e.Redraw || o.Redraw
}

const (
	DefaultMinRegionSize = 50.0
	DefaultToolbarOffset = 16.0
)

type Config struct {
	// MinRegionSize is the smallest committed region drag, per side, in
	// screen pixels.
	MinRegionSize float64
	// ToolbarOffset is the toolbar distance from the renderer's top edge.
	ToolbarOffset float64

	ShapeWidth, ShapeHeight float64
	ShapeStyle              document.Style
	TextFontSize            float64
	TextStyle               document.Style
	TextPlaceholder         string
}

func DefaultConfig() Config {
	return Config{
		MinRegionSize:   DefaultMinRegionSize,
		ToolbarOffset:   DefaultToolbarOffset,
		ShapeWidth:      120,
		ShapeHeight:     80,
		ShapeStyle:      document.Style{Fill: "#bfdbfe", Stroke: "#1d4ed8", StrokeWidth: 2, Opacity: 1},
		TextFontSize:    20,
		TextStyle:       document.Style{Fill: "#111827", Opacity: 1},
		TextPlaceholder: "Text",
	}
}
