package region

import (
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/stroke"
)

// Set keeps one controller per region object of a scene. At most one region
// is open at a time.
type Set struct {
	settings    stroke.Settings
	generator   stroke.OutlineGenerator
	controllers map[string]*Controller
	active      *Controller
}

func NewSet(settings stroke.Settings, gen stroke.OutlineGenerator) *Set {
	return &Set{settings: settings, generator: gen, controllers: make(map[string]*Controller)}
}

// Attach rebuilds the controllers from the scene's region objects. Every
// region comes back collapsed.
func (s *Set) Attach(sc *scene.Scene) {
	if s.active != nil {
		s.active.Exit()
		s.active = nil
	}
	s.controllers = make(map[string]*Controller)
	for _, obj := range sc.Regions() {
		s.Add(obj)
	}
}

// Add registers a controller for a new region object.
func (s *Set) Add(obj *scene.Object) *Controller {
	c := NewController(obj, s.settings, s.generator)
	s.controllers[obj.ID] = c
	return c
}

func (s *Set) Get(id string) (*Controller, bool) {
	c, ok := s.controllers[id]
	return c, ok
}

// Remove drops the controller, collapsing it first if it was open.
func (s *Set) Remove(id string) {
	c, ok := s.controllers[id]
	if !ok {
		return
	}
	if s.active == c {
		c.Exit()
		s.active = nil
	}
	delete(s.controllers, id)
}

// Active returns the open region, if any.
func (s *Set) Active() (*Controller, bool) {
	return s.active, s.active != nil
}

// Activate records c as the open region. c must already be editing.
func (s *Set) Activate(c *Controller) {
	s.active = c
}

// Deactivate collapses the open region and returns it.
func (s *Set) Deactivate() (*Controller, bool) {
	c := s.active
	if c == nil {
		return nil, false
	}
	c.Exit()
	s.active = nil
	return c, true
}

func (s *Set) Len() int {
	return len(s.controllers)
}
