package scene

import (
	"fmt"
	"math"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
)

// Kind discriminates scene objects. Every document kind maps to exactly one
// Kind in fromDocument; anything else is rejected at load time.
type Kind uint8

const (
	KindShape Kind = iota + 1
	KindText
	KindPath
	KindDrawingRegion
)

func (k Kind) String() string {
	switch k {
	case KindShape:
		return "shape"
	case KindText:
		return "text"
	case KindPath:
		return "path"
	case KindDrawingRegion:
		return "drawingRegion"
	default:
		return "unknown"
	}
}

func kindFromDocument(k document.ObjectKind) (Kind, error) {
	switch k {
	case document.KindShape:
		return KindShape, nil
	case document.KindText:
		return KindText, nil
	case document.KindPath:
		return KindPath, nil
	case document.KindDrawingRegion:
		return KindDrawingRegion, nil
	default:
		return 0, fmt.Errorf("%w: %q", document.ErrUnknownKind, k)
	}
}

func (k Kind) document() document.ObjectKind {
	switch k {
	case KindShape:
		return document.KindShape
	case KindText:
		return document.KindText
	case KindPath:
		return document.KindPath
	case KindDrawingRegion:
		return document.KindDrawingRegion
	default:
		return ""
	}
}

// Region is the payload of a KindDrawingRegion object.
type Region struct {
	ExternalDocumentID string
	Editing            bool
}

// Object is a drawable entity in world coordinates. Only the payload fields
// matching Kind are meaningful.
type Object struct {
	ID       string
	Kind     Kind
	Bounds   geom.Rect
	Rotation float64
	Style    document.Style

	Shape    document.ShapeType
	Text     string
	FontSize float64
	Points   []document.Point
	Region   *Region

	// Selectable is runtime state and is not persisted.
	Selectable bool

	owner *Scene
}

// NewShape returns a selectable shape object.
func NewShape(id string, shape document.ShapeType, bounds geom.Rect, style document.Style) *Object {
	return &Object{ID: id, Kind: KindShape, Shape: shape, Bounds: bounds, Style: style, Selectable: true}
}

func NewText(id, text string, fontSize float64, bounds geom.Rect, style document.Style) *Object {
	return &Object{ID: id, Kind: KindText, Text: text, FontSize: fontSize, Bounds: bounds, Style: style, Selectable: true}
}

func NewRegion(id, externalDocumentID string, bounds geom.Rect) *Object {
	return &Object{
		ID:         id,
		Kind:       KindDrawingRegion,
		Bounds:     bounds,
		Region:     &Region{ExternalDocumentID: externalDocumentID},
		Style:      document.Style{Fill: "#ffffff", Stroke: "#9ca3af", StrokeWidth: 1, Opacity: 1},
		Selectable: true,
	}
}

// Contains reports whether the world point lies on the object, taking its
// rotation about the bounds centre into account.
func (o *Object) Contains(x, y float64) bool {
	b := o.Bounds
	if o.Kind == KindPath {
		b = b.Inset(-o.Style.StrokeWidth / 2)
	}
	if o.Rotation != 0 {
		cx, cy := o.Bounds.Center()
		m := geom.Translate(cx, cy).Multiply(geom.RotateDegrees(-o.Rotation)).Multiply(geom.Translate(-cx, -cy))
		x, y = m.TransformPoint(x, y)
	}
	return b.Contains(x, y)
}

// Translate moves the object by a world-space delta.
func (o *Object) Translate(dx, dy float64) {
	o.Bounds.X += dx
	o.Bounds.Y += dy
	for i := range o.Points {
		o.Points[i].X += dx
		o.Points[i].Y += dy
	}
}

// Clone returns a deep copy that belongs to no scene.
func (o *Object) Clone() *Object {
	c := *o
	c.owner = nil
	c.Points = append([]document.Point(nil), o.Points...)
	if o.Region != nil {
		r := *o.Region
		c.Region = &r
	}
	return &c
}

func fromDocument(d document.Object) (*Object, error) {
	kind, err := kindFromDocument(d.Kind)
	if err != nil {
		return nil, err
	}
	o := &Object{
		ID:   d.ID,
		Kind: kind,
		Bounds: geom.Rect{
			X: d.Geometry.X, Y: d.Geometry.Y,
			Width: d.Geometry.Width, Height: d.Geometry.Height,
		},
		Rotation:   d.Geometry.Rotation,
		Style:      d.Style,
		Selectable: true,
	}
	switch kind {
	case KindShape:
		o.Shape = d.Shape
		if o.Shape == "" {
			o.Shape = document.ShapeRect
		}
	case KindText:
		o.Text = d.Text
		o.FontSize = d.FontSize
	case KindPath:
		o.Points = append([]document.Point(nil), d.Points...)
		if o.Bounds.IsEmpty() {
			o.Bounds = pointBounds(o.Points)
		}
	case KindDrawingRegion:
		if d.ExternalDocumentID == "" {
			return nil, fmt.Errorf("%w: %s", document.ErrInvalidRegion, d.ID)
		}
		o.Region = &Region{ExternalDocumentID: d.ExternalDocumentID}
	}
	return o, nil
}

func (o *Object) toDocument() document.Object {
	d := document.Object{
		ID:   o.ID,
		Kind: o.Kind.document(),
		Geometry: document.Geometry{
			X: o.Bounds.X, Y: o.Bounds.Y,
			Width: o.Bounds.Width, Height: o.Bounds.Height,
			Rotation: o.Rotation,
		},
		Style: o.Style,
	}
	switch o.Kind {
	case KindShape:
		d.Shape = o.Shape
	case KindText:
		d.Text = o.Text
		d.FontSize = o.FontSize
	case KindPath:
		d.Points = append([]document.Point(nil), o.Points...)
	case KindDrawingRegion:
		d.ExternalDocumentID = o.Region.ExternalDocumentID
	}
	return d
}

func pointBounds(points []document.Point) geom.Rect {
	if len(points) == 0 {
		return geom.Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return geom.RectFromCorners(minX, minY, maxX, maxY)
}

func boundsRect(b document.Bounds) geom.Rect {
	return geom.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}
