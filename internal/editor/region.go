package editor

import (
	"context"
	"fmt"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/geom"
	"github.com/inkboard/inkboard/internal/persist"
	"github.com/inkboard/inkboard/internal/region"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/storage"
	"github.com/inkboard/inkboard/internal/typeid"
)

// createRegion creates the backing document for a committed region drag,
// adds the region to the scene and opens it.
func (e *Editor) createRegion(bounds geom.Rect) {
	if e.store == nil {
		e.log.Error("create region", "error", ErrNoStore)
		return
	}
	initial, err := document.EncodeRegion(document.NewEmptyRegionDocument())
	if err != nil {
		e.log.Error("create region", "error", err)
		return
	}
	d, err := e.store.CreateDocument(e.ctx, e.opts.OwnerID, storage.KindDrawing, e.opts.RegionTitle, initial)
	if err != nil {
		e.log.Error("create region document", "error", err)
		e.reportStatus(persist.StatusError)
		return
	}

	e.do(func(o *outbox) {
		obj := scene.NewRegion(typeid.NewObjectID(), d.ID, bounds)
		if err := e.scene.Add(obj); err != nil {
			e.log.Error("add region", "error", err)
			return
		}
		e.renderer.AddObject(obj)
		c := e.regions.Add(obj)
		if err := c.Open(initial); err != nil {
			e.log.Error("open region", "region", obj.ID, "error", err)
			return
		}
		e.log.Info("region created", "region", obj.ID, "external", d.ID)
		e.open(c, o)
		o.add(e.saves.Schedule)
	})
}

// enterRegion loads an existing region's document and opens it. A failed
// load leaves the region collapsed. A save of the region still in flight is
// waited for first; if it failed, the region reopens from the strokes held
// in memory so they are written by its next save.
func (e *Editor) enterRegion(regionID string) {
	var (
		c     *region.Controller
		saves *persist.Scheduler
		ok    bool
	)
	e.do(func(o *outbox) {
		c, ok = e.regions.Get(regionID)
		if !ok {
			return
		}
		if active, open := e.regions.Active(); open && active == c {
			ok = false
			return
		}
		e.close(o)
		saves = e.regionSaves[regionID]
	})
	if !ok {
		return
	}
	if e.store == nil {
		e.log.Error("enter region", "region", regionID, "error", ErrNoStore)
		return
	}

	var (
		data       []byte
		fromMemory bool
	)
	if saves != nil {
		if err := saves.Settle(e.ctx); err != nil {
			e.log.Warn("region has unsaved strokes", "region", regionID, "error", err)
			fromMemory = true
		}
	}
	if !fromMemory {
		var err error
		data, err = e.store.LoadContent(e.ctx, c.DocumentID())
		if err != nil {
			e.log.Error("enter region", "region", regionID, "error", err)
			return
		}
	}

	e.do(func(o *outbox) {
		// The scene may have been reloaded while the document was loading.
		if current, ok := e.regions.Get(regionID); !ok || current != c {
			return
		}
		if _, open := e.regions.Active(); open {
			return
		}
		if fromMemory {
			var err error
			if data, err = c.Encode(); err != nil {
				e.log.Error("enter region", "region", regionID, "error", err)
				return
			}
		}
		if err := c.Open(data); err != nil {
			e.log.Error("enter region", "region", regionID, "error", err)
			return
		}
		e.open(c, o)
	})
}

// EnterRegion opens regionID as if the draw tool had been pressed on it.
func (e *Editor) EnterRegion(regionID string) {
	e.enterRegion(regionID)
}

// ExitRegion collapses the open region, writes its pending strokes and
// schedules a scene save.
func (e *Editor) ExitRegion() {
	e.do(func(o *outbox) {
		e.close(o)
	})
}

// open must be called with c already editing.
func (e *Editor) open(c *region.Controller, o *outbox) {
	e.regions.Activate(c)
	e.regionDocs[c.DocumentID()] = &document.RegionDocument{Strokes: c.Strokes()}
	e.machine.SetRegionEditing(true)
	e.scene.SetSelectable(false, c.ID())
	if obj, ok := e.scene.Get(c.ID()); ok {
		e.renderer.UpdateObject(obj)
	}
	e.renderer.SetOutlines(c.ID(), c.Outlines())
	e.renderer.Render()
	if e.cb.OnRegionChanged != nil {
		id := c.ID()
		o.add(func() { e.cb.OnRegionChanged(id, true) })
	}
}

func (e *Editor) close(o *outbox) {
	c, ok := e.regions.Deactivate()
	if !ok {
		return
	}
	e.machine.SetRegionEditing(false)
	e.scene.SetSelectable(true, "")
	if obj, ok := e.scene.Get(c.ID()); ok {
		e.renderer.UpdateObject(obj)
	}
	e.renderer.SetOutlines(c.ID(), nil)
	e.renderer.Render()

	id := c.ID()
	if s, ok := e.regionSaves[id]; ok && s.Pending() {
		o.add(func() {
			e.spawn(func() {
				if err := s.Flush(e.ctx); err != nil {
					e.log.Error("flush region", "region", id, "error", err)
				}
			})
		})
	}
	o.add(e.saves.Schedule)
	if e.cb.OnRegionChanged != nil {
		o.add(func() { e.cb.OnRegionChanged(id, false) })
	}
}

// forgetRegion drops the controller of a removed region object. Strokes not
// yet written are flushed to the region's document from the detached
// controller.
func (e *Editor) forgetRegion(objectID string, o *outbox) {
	c, ok := e.regions.Get(objectID)
	if !ok {
		return
	}
	if active, open := e.regions.Active(); open && active == c {
		e.close(o)
	}
	e.regions.Remove(objectID)

	s, ok := e.regionSaves[objectID]
	if !ok || !s.Pending() {
		return
	}
	e.detached[objectID] = c
	o.add(func() {
		e.spawn(func() {
			if err := s.Flush(e.ctx); err != nil {
				e.log.Error("flush removed region", "region", objectID, "error", err)
			}
			e.mu.Lock()
			if e.detached[objectID] == c {
				delete(e.detached, objectID)
			}
			e.mu.Unlock()
		})
	})
}

// regionScheduler returns the debounced saver for one region, creating it
// on first use.
func (e *Editor) regionScheduler(regionID string) *persist.Scheduler {
	if s, ok := e.regionSaves[regionID]; ok {
		return s
	}
	s := persist.NewScheduler(persist.SchedulerConfig{
		Name:     "region " + regionID,
		Delay:    e.opts.SaveDebounce,
		Clock:    e.clock,
		Logger:   e.log,
		OnStatus: e.reportStatus,
	}, func(ctx context.Context) error { return e.saveRegion(ctx, regionID) })
	e.regionSaves[regionID] = s
	return s
}

func (e *Editor) regionPending() bool {
	if len(e.detached) > 0 {
		return true
	}
	for _, s := range e.regionSaves {
		if s.Pending() {
			return true
		}
	}
	return false
}

func (e *Editor) saveRegion(ctx context.Context, regionID string) error {
	e.mu.Lock()
	c, ok := e.regions.Get(regionID)
	if !ok {
		c, ok = e.detached[regionID]
	}
	if !ok {
		e.mu.Unlock()
		return nil
	}
	if c.Drawing() {
		e.mu.Unlock()
		return persist.ErrDeferred
	}
	data, err := c.Encode()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	tok, ok := e.gate.Begin(persist.SessionLocal, persist.ReasonSaving)
	e.mu.Unlock()
	if !ok {
		return persist.ErrDeferred
	}
	defer e.gate.End(tok)

	if e.store == nil {
		return ErrNoStore
	}
	e.reportSaving(true)
	defer e.reportSaving(false)
	if err := e.store.SaveContent(ctx, c.DocumentID(), data); err != nil {
		return fmt.Errorf("save region %s: %w", regionID, err)
	}
	return nil
}
