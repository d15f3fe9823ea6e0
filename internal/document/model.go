package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmpty         = errors.New("document is empty")
	ErrDuplicateID   = errors.New("duplicate object id")
	ErrUnknownKind   = errors.New("unknown object kind")
	ErrInvalidRegion = errors.New("drawing region without external document")
)

// Document is the persisted scene: ordered objects (index = z-order), the
// viewport, and the nested drawing regions hosted by the scene.
type Document struct {
	Objects  []Object  `json:"objects"`
	Viewport Viewport  `json:"viewport"`
	Drawings []Drawing `json:"drawings,omitempty"`
}

type Viewport struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

type ObjectKind string

const (
	KindShape         ObjectKind = "shape"
	KindText          ObjectKind = "text"
	KindPath          ObjectKind = "path"
	KindDrawingRegion ObjectKind = "drawingRegion"
)

type ShapeType string

const (
	ShapeRect    ShapeType = "rect"
	ShapeEllipse ShapeType = "ellipse"
)

// Geometry is expressed in world coordinates.
type Geometry struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

// Object is the flat wire form of a scene object. Only the fields relevant to
// Kind are populated.
type Object struct {
	ID       string     `json:"id"`
	Kind     ObjectKind `json:"kind"`
	Geometry Geometry   `json:"geometry"`
	Style    Style      `json:"style"`

	Shape    ShapeType `json:"shape,omitempty"`
	Text     string    `json:"text,omitempty"`
	FontSize float64   `json:"fontSize,omitempty"`
	Points   []Point   `json:"points,omitempty"`

	ExternalDocumentID string `json:"externalDocumentId,omitempty"`
}

// Bounds is a region position in world coordinates.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Drawing struct {
	ID                 string `json:"id"`
	ExternalDocumentID string `json:"externalDocumentId"`
	Position           Bounds `json:"position"`
	IsEditing          bool   `json:"isEditing"`
}

// RegionDocument is the independently persisted content of a drawing region.
type RegionDocument struct {
	Strokes []Stroke `json:"strokes"`
}

type Tool string

const (
	ToolPen         Tool = "pen"
	ToolHighlighter Tool = "highlighter"
	ToolEraser      Tool = "eraser"
)

type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
}

type Stroke struct {
	ID      string  `json:"id,omitempty"`
	Points  []Point `json:"points"`
	Color   string  `json:"color"`
	Size    float64 `json:"size"`
	Opacity float64 `json:"opacity"`
	Tool    Tool    `json:"tool"`
}

// NewEmptyDocument returns a scene with no objects and an identity viewport.
func NewEmptyDocument() *Document {
	return &Document{
		Objects:  []Object{},
		Viewport: Viewport{Zoom: 1},
	}
}

func NewEmptyRegionDocument() *RegionDocument {
	return &RegionDocument{Strokes: []Stroke{}}
}

// Validate checks the structural invariants a loaded document must satisfy.
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Objects))
	for _, obj := range d.Objects {
		if _, dup := seen[obj.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, obj.ID)
		}
		seen[obj.ID] = struct{}{}

		switch obj.Kind {
		case KindShape, KindText, KindPath:
		case KindDrawingRegion:
			if obj.ExternalDocumentID == "" {
				return fmt.Errorf("%w: %s", ErrInvalidRegion, obj.ID)
			}
		default:
			return fmt.Errorf("%w: %q on %s", ErrUnknownKind, obj.Kind, obj.ID)
		}
	}
	return nil
}

// Decode parses a scene document. A zero zoom (missing viewport) is normalised
// to 1 so older documents without a viewport still load.
func Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Objects == nil {
		doc.Objects = []Object{}
	}
	if doc.Viewport.Zoom == 0 {
		doc.Viewport.Zoom = 1
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func Encode(doc *Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func DecodeRegion(data []byte) (*RegionDocument, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	var doc RegionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode region document: %w", err)
	}
	if doc.Strokes == nil {
		doc.Strokes = []Stroke{}
	}
	return &doc, nil
}

func EncodeRegion(doc *RegionDocument) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode region document: %w", err)
	}
	return data, nil
}

// Canonical re-encodes data through Document so that two payloads differing
// only in whitespace or key order compare equal.
func Canonical(data []byte) ([]byte, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Encode(doc)
}

// ContentBounds is the union of every object's unrotated geometry. ok is false
// when no object has a positive area.
func (d *Document) ContentBounds() (b Bounds, ok bool) {
	var x1, y1 float64
	for _, o := range d.Objects {
		g := o.Geometry
		if g.Width <= 0 || g.Height <= 0 {
			continue
		}
		if !ok {
			b, x1, y1, ok = Bounds{X: g.X, Y: g.Y}, g.X+g.Width, g.Y+g.Height, true
		}
		b.X, b.Y = min(b.X, g.X), min(b.Y, g.Y)
		x1, y1 = max(x1, g.X+g.Width), max(y1, g.Y+g.Height)
	}
	b.Width, b.Height = x1-b.X, y1-b.Y
	return b, ok
}
