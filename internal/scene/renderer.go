package scene

import (
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/stroke"
)

// Renderer is the retained display the scene is mirrored into. It owns the
// notion of the active (selected) object; the tool machine reconciles its own
// selection against ActiveObject after every gesture.
type Renderer interface {
	AddObject(obj *Object)
	RemoveObject(id string)
	// UpdateObject refreshes an object already added, e.g. after a move.
	UpdateObject(obj *Object)
	Clear()
	ObjectIDs() []string
	SetViewportTransform(m geom.Matrix2D)
	ActiveObject() string
	SetActiveObject(id string)
	// SetOutlines replaces the stroke outlines shown inside a drawing region.
	// Outline coordinates are local to the region.
	SetOutlines(regionID string, outlines []stroke.Outline)
	Render()
}

// Mirror clears r and re-adds every object of s with the current viewport
// transform. It is the renderer-side half of loading a document.
func Mirror(r Renderer, s *Scene) {
	r.Clear()
	for _, o := range s.objects {
		r.AddObject(o)
	}
	r.SetViewportTransform(s.viewport.Matrix())
	r.Render()
}
