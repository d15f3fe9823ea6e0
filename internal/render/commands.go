package render

import (
	"encoding/json"

	"github.com/inkboard/inkboard/internal/geom"
)

// DrawCommand is a single drawing operation for the browser host. The host
// receives the list in painter's order (back to front) and replays it on a
// Canvas2D context.
type DrawCommand struct {
	Op        string    `json:"op"`                  // "rect", "ellipse", "text", "path", "region", "outline", "selection", "preview"
	ObjectID  string    `json:"objectId,omitempty"`  // For hit correlation
	Transform []float64 `json:"transform,omitempty"` // [a, b, c, d, e, f] world or region-local to screen

	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	// Rotation is in degrees about the centre of X/Y/Width/Height.
	Rotation float64 `json:"rotation,omitempty"`

	Points [][2]float64 `json:"points,omitempty"` // Polyline for "path", polygon for "outline"

	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`

	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`

	// Editing marks a region showing its exit affordance rather than the
	// open placeholder.
	Editing bool `json:"editing,omitempty"`
	// Live marks the outline of a stroke still being drawn.
	Live bool `json:"live,omitempty"`
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r geom.Rect) string {
	data, _ := json.Marshal(map[string]float64{
		"x":      r.X,
		"y":      r.Y,
		"width":  r.Width,
		"height": r.Height,
	})
	return string(data)
}
