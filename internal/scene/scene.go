// Package scene is the in-memory object graph of a board: ordered objects
// (index is z-order), the viewport that views them, and conversion to and
// from the persisted document.
package scene

import (
	"errors"
	"fmt"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/typeid"
	"github.com/inkboard/inkboard/internal/viewport"
)

var (
	ErrDuplicateID = errors.New("object id already in scene")
	ErrOwned       = errors.New("object belongs to another scene")
	ErrNotFound    = errors.New("object not found")
)

// Scene is not safe for concurrent use; the editor serialises access.
type Scene struct {
	objects  []*Object
	byID     map[string]*Object
	viewport *viewport.Viewport
}

func New(vp *viewport.Viewport) *Scene {
	if vp == nil {
		vp = viewport.New(0, 0, viewport.DefaultLimits())
	}
	return &Scene{byID: make(map[string]*Object), viewport: vp}
}

func (s *Scene) Viewport() *viewport.Viewport {
	return s.viewport
}

// Add appends obj on top of the z-order. An empty ID is filled in.
func (s *Scene) Add(obj *Object) error {
	if obj.owner != nil && obj.owner != s {
		return fmt.Errorf("%w: %s", ErrOwned, obj.ID)
	}
	if obj.ID == "" {
		obj.ID = typeid.NewObjectID()
	}
	if _, dup := s.byID[obj.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateID, obj.ID)
	}
	obj.owner = s
	s.objects = append(s.objects, obj)
	s.byID[obj.ID] = obj
	return nil
}

// Remove deletes the object and releases it from this scene.
func (s *Scene) Remove(id string) (*Object, bool) {
	obj, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	delete(s.byID, id)
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}
	obj.owner = nil
	return obj, true
}

func (s *Scene) Get(id string) (*Object, bool) {
	obj, ok := s.byID[id]
	return obj, ok
}

// Objects returns the objects bottom to top. The slice is a copy; the
// objects are not.
func (s *Scene) Objects() []*Object {
	return append([]*Object(nil), s.objects...)
}

func (s *Scene) Len() int {
	return len(s.objects)
}

// Regions returns the drawing-region objects bottom to top.
func (s *Scene) Regions() []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Kind == KindDrawingRegion {
			out = append(out, o)
		}
	}
	return out
}

func (s *Scene) Clear() {
	for _, o := range s.objects {
		o.owner = nil
	}
	s.objects = nil
	s.byID = make(map[string]*Object)
}

// HitTest returns the topmost object containing the world point. With
// selectableOnly, objects that currently refuse selection are skipped.
func (s *Scene) HitTest(x, y float64, selectableOnly bool) (*Object, bool) {
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if selectableOnly && !o.Selectable {
			continue
		}
		if o.Contains(x, y) {
			return o, true
		}
	}
	return nil, false
}

// SetSelectable toggles selection on every object except the one named.
func (s *Scene) SetSelectable(selectable bool, except string) {
	for _, o := range s.objects {
		if o.ID == except {
			continue
		}
		o.Selectable = selectable
	}
}

// ToDocument serialises the scene. The viewport is read at call time.
// Drawing regions appear both as objects and in the drawings list.
func (s *Scene) ToDocument() *document.Document {
	doc := document.NewEmptyDocument()
	doc.Viewport = s.viewport.State()
	for _, o := range s.objects {
		doc.Objects = append(doc.Objects, o.toDocument())
		if o.Kind == KindDrawingRegion {
			doc.Drawings = append(doc.Drawings, document.Drawing{
				ID:                 o.ID,
				ExternalDocumentID: o.Region.ExternalDocumentID,
				Position: document.Bounds{
					X: o.Bounds.X, Y: o.Bounds.Y,
					Width: o.Bounds.Width, Height: o.Bounds.Height,
				},
				IsEditing: o.Region.Editing,
			})
		}
	}
	return doc
}

// Load replaces the scene contents with doc. On error the scene is left
// untouched. Drawings without a matching object are added as regions, and
// editing flags are not restored: every region loads collapsed.
func (s *Scene) Load(doc *document.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	objects := make([]*Object, 0, len(doc.Objects)+len(doc.Drawings))
	seen := make(map[string]struct{}, len(doc.Objects))
	for _, d := range doc.Objects {
		o, err := fromDocument(d)
		if err != nil {
			return err
		}
		objects = append(objects, o)
		seen[o.ID] = struct{}{}
	}
	for _, d := range doc.Drawings {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		if d.ExternalDocumentID == "" {
			return fmt.Errorf("%w: %s", document.ErrInvalidRegion, d.ID)
		}
		r := NewRegion(d.ID, d.ExternalDocumentID, boundsRect(d.Position))
		objects = append(objects, r)
		seen[d.ID] = struct{}{}
	}

	s.Clear()
	for _, o := range objects {
		o.owner = s
		s.objects = append(s.objects, o)
		s.byID[o.ID] = o
	}
	s.viewport.Apply(doc.Viewport)
	return nil
}

// Snapshot returns deep copies of all objects, e.g. for rendering off the
// editor's lock.
func (s *Scene) Snapshot() []*Object {
	out := make([]*Object, len(s.objects))
	for i, o := range s.objects {
		out[i] = o.Clone()
	}
	return out
}
