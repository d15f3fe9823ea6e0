// Package render provides the built-in retained scene renderer and the draw
// command buffer it compiles for the browser host.
package render

import (
	"sync"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/stroke"
)

const (
	selectionStroke = "#2563eb"
	previewStroke   = "#6b7280"
)

// Retained keeps its own copies of the displayed objects and recompiles the
// command buffer on Render. It is safe for concurrent use.
type Retained struct {
	mu        sync.Mutex
	objects   []*scene.Object
	transform geom.Matrix2D
	active    string
	outlines  map[string][]stroke.Outline
	preview   *geom.Rect
	commands  []DrawCommand
	onFrame   func([]DrawCommand)
}

// NewRetained returns an empty renderer. onFrame, if set, receives every
// compiled frame.
func NewRetained(onFrame func([]DrawCommand)) *Retained {
	return &Retained{
		transform: geom.Identity(),
		outlines:  make(map[string][]stroke.Outline),
		onFrame:   onFrame,
	}
}

func (r *Retained) indexOf(id string) int {
	for i, o := range r.objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (r *Retained) AddObject(obj *scene.Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(obj.ID); i >= 0 {
		r.objects[i] = obj.Clone()
		return
	}
	r.objects = append(r.objects, obj.Clone())
}

func (r *Retained) UpdateObject(obj *scene.Object) {
	r.AddObject(obj)
}

func (r *Retained) RemoveObject(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		r.objects = append(r.objects[:i], r.objects[i+1:]...)
	}
	delete(r.outlines, id)
	if r.active == id {
		r.active = ""
	}
}

func (r *Retained) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects = nil
	r.outlines = make(map[string][]stroke.Outline)
	r.active = ""
	r.preview = nil
}

func (r *Retained) ObjectIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.objects))
	for i, o := range r.objects {
		ids[i] = o.ID
	}
	return ids
}

func (r *Retained) SetViewportTransform(m geom.Matrix2D) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transform = m
}

func (r *Retained) ActiveObject() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SetActiveObject selects id. Unknown ids clear the selection.
func (r *Retained) SetActiveObject(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" && r.indexOf(id) < 0 {
		id = ""
	}
	r.active = id
}

func (r *Retained) SetOutlines(regionID string, outlines []stroke.Outline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(outlines) == 0 {
		delete(r.outlines, regionID)
		return
	}
	r.outlines[regionID] = outlines
}

// SetDragPreview shows or hides the dashed candidate of a region drag.
func (r *Retained) SetDragPreview(b geom.Rect, show bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !show {
		r.preview = nil
		return
	}
	r.preview = &b
}

// Render compiles the current frame and hands it to onFrame.
func (r *Retained) Render() {
	r.mu.Lock()
	r.commands = r.compile()
	frame := r.commands
	onFrame := r.onFrame
	r.mu.Unlock()
	if onFrame != nil {
		onFrame(frame)
	}
}

// Commands returns the last compiled frame.
func (r *Retained) Commands() []DrawCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DrawCommand(nil), r.commands...)
}

// JSON returns the last compiled frame as JSON.
func (r *Retained) JSON() string {
	s, _ := DrawCommandsToJSON(r.Commands())
	return s
}

func (r *Retained) compile() []DrawCommand {
	commands := make([]DrawCommand, 0, len(r.objects)+2)
	world := r.transform.ToSlice()
	for _, o := range r.objects {
		commands = append(commands, objectCommand(o, world))
		if o.Kind == scene.KindDrawingRegion && o.Region.Editing {
			local := r.transform.Multiply(geom.Translate(o.Bounds.X, o.Bounds.Y)).ToSlice()
			for _, out := range r.outlines[o.ID] {
				commands = append(commands, outlineCommand(o.ID, out, local))
			}
		}
	}
	if r.active != "" {
		if i := r.indexOf(r.active); i >= 0 {
			o := r.objects[i]
			commands = append(commands, DrawCommand{
				Op: "selection", ObjectID: o.ID, Transform: world,
				X: o.Bounds.X, Y: o.Bounds.Y, Width: o.Bounds.Width, Height: o.Bounds.Height,
				Rotation: o.Rotation, Stroke: selectionStroke, StrokeWidth: 1,
			})
		}
	}
	if r.preview != nil {
		p := r.preview
		commands = append(commands, DrawCommand{
			Op: "preview", Transform: world,
			X: p.X, Y: p.Y, Width: p.Width, Height: p.Height,
			Stroke: previewStroke, StrokeWidth: 1,
		})
	}
	return commands
}

func objectCommand(o *scene.Object, world []float64) DrawCommand {
	cmd := DrawCommand{
		ObjectID:    o.ID,
		Transform:   world,
		X:           o.Bounds.X,
		Y:           o.Bounds.Y,
		Width:       o.Bounds.Width,
		Height:      o.Bounds.Height,
		Rotation:    o.Rotation,
		Fill:        o.Style.Fill,
		Stroke:      o.Style.Stroke,
		StrokeWidth: o.Style.StrokeWidth,
		Opacity:     o.Style.Opacity,
	}
	switch o.Kind {
	case scene.KindShape:
		cmd.Op = "rect"
		if o.Shape == document.ShapeEllipse {
			cmd.Op = "ellipse"
		}
	case scene.KindText:
		cmd.Op = "text"
		cmd.Text = o.Text
		cmd.FontSize = o.FontSize
	case scene.KindPath:
		cmd.Op = "path"
		cmd.Points = make([][2]float64, len(o.Points))
		for i, p := range o.Points {
			cmd.Points[i] = [2]float64{p.X, p.Y}
		}
	case scene.KindDrawingRegion:
		cmd.Op = "region"
		cmd.Editing = o.Region.Editing
	}
	return cmd
}

func outlineCommand(regionID string, o stroke.Outline, local []float64) DrawCommand {
	pts := make([][2]float64, len(o.Polygon))
	for i, v := range o.Polygon {
		pts[i] = [2]float64{v.X, v.Y}
	}
	return DrawCommand{
		Op:        "outline",
		ObjectID:  regionID,
		Transform: local,
		Points:    pts,
		Fill:      o.Color,
		Opacity:   o.Opacity,
		Live:      o.Live,
	}
}
