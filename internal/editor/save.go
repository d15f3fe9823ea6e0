package editor

import (
	"context"
	"fmt"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/persist"
	"github.com/inkboard/inkboard/internal/scene"
)

// saveScene writes the scene as it is when the debounce fires. The viewport
// is read at that moment, not taken from whatever triggered the save.
func (e *Editor) saveScene(ctx context.Context) error {
	e.mu.Lock()
	if e.drawingOpen {
		e.mu.Unlock()
		return persist.ErrDeferred
	}
	doc := e.scene.ToDocument()
	data, err := document.Encode(doc)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	tok, ok := e.gate.Begin(persist.SessionLocal, persist.ReasonSaving)
	regions := make(map[string]*document.RegionDocument, len(e.regionDocs))
	for id, r := range e.regionDocs {
		regions[id] = r
	}
	e.mu.Unlock()
	if !ok {
		return persist.ErrDeferred
	}

	err = e.writeScene(ctx, tok, data, doc.Viewport)
	if err != nil {
		return err
	}
	e.uploadThumbnail(ctx, doc, regions)
	return nil
}

func (e *Editor) writeScene(ctx context.Context, tok persist.Token, data []byte, vp document.Viewport) error {
	defer e.gate.End(tok)
	if e.store == nil {
		return ErrNoStore
	}
	e.reportSaving(true)
	defer e.reportSaving(false)

	if err := e.store.SaveContent(ctx, e.docID, data); err != nil {
		return fmt.Errorf("save scene: %w", err)
	}
	// The written content is what the store now holds; an update carrying
	// it is our own echo.
	e.baseline.Set(data)
	e.saves.ArmViewportSkip(vp)
	e.log.Debug("scene saved", "bytes", len(data))
	return nil
}

// uploadThumbnail renders and uploads a preview. Failures are only logged.
func (e *Editor) uploadThumbnail(ctx context.Context, doc *document.Document, regions map[string]*document.RegionDocument) {
	if e.thumbs == nil {
		return
	}
	for _, d := range doc.Drawings {
		if _, ok := regions[d.ExternalDocumentID]; ok {
			continue
		}
		data, err := e.store.LoadContent(ctx, d.ExternalDocumentID)
		if err != nil {
			e.log.Warn("load region for thumbnail", "external", d.ExternalDocumentID, "error", err)
			continue
		}
		r, err := document.DecodeRegion(data)
		if err != nil {
			continue
		}
		regions[d.ExternalDocumentID] = r
	}
	png, err := e.thumbs.Thumbnail(doc, regions)
	if err != nil {
		e.log.Warn("render thumbnail", "error", err)
		return
	}
	if len(png) == 0 {
		return
	}
	if err := e.store.UploadThumbnail(ctx, e.docID, png); err != nil {
		e.log.Warn("upload thumbnail", "error", err)
	}
}

// OnExternalContent reconciles content pushed from outside, e.g. a save by
// another editor. It is dropped while local work is in flight or unsaved,
// kept
// when nothing material changed, applied to the viewport only when the
// object count moved by at most one, and otherwise reloads the scene.
func (e *Editor) OnExternalContent(content []byte) (persist.Decision, error) {
	incoming, err := document.Canonical(content)
	if err != nil {
		e.log.Warn("ignore external content", "error", err)
		return persist.DecisionKeep, fmt.Errorf("external content: %w", err)
	}
	doc, err := document.Decode(incoming)
	if err != nil {
		return persist.DecisionKeep, fmt.Errorf("external content: %w", err)
	}

	var decision persist.Decision
	e.do(func(o *outbox) {
		local := e.scene.ToDocument()
		localData, err := document.Encode(local)
		if err != nil {
			decision = persist.DecisionKeep
			return
		}
		// Unsaved local changes win; they overwrite the store when their
		// save fires.
		busy := e.gate.Busy() || e.saves.Pending() || e.regionPending()
		decision = persist.Decide(busy, localData, e.baseline.Get(), incoming, len(local.Objects), len(doc.Objects))
		if decision == persist.DecisionDrop || decision == persist.DecisionKeep {
			e.log.Debug("external content", "decision", decision)
			return
		}

		tok, ok := e.gate.Begin(persist.SessionReconcile, persist.ReasonReconcile)
		if !ok {
			decision = persist.DecisionDrop
			return
		}
		defer e.gate.End(tok)

		switch decision {
		case persist.DecisionSoft:
			e.applyViewport(doc.Viewport)
		case persist.DecisionHard:
			if err := e.reload(doc, o); err != nil {
				e.log.Error("reload scene", "error", err)
				decision = persist.DecisionKeep
				return
			}
		}
		e.baseline.Set(incoming)
		e.saves.ArmViewportSkip(doc.Viewport)
		e.log.Info("external content applied", "decision", decision, "objects", len(doc.Objects))
	})
	return decision, nil
}

func (e *Editor) applyViewport(v document.Viewport) {
	vp := e.scene.Viewport()
	if !vp.Apply(v) {
		return
	}
	e.renderer.SetViewportTransform(vp.Matrix())
	e.renderer.Render()
}

// reload replaces the scene with doc. Selection and any open region are
// dropped; every region comes back collapsed.
func (e *Editor) reload(doc *document.Document, o *outbox) error {
	if err := e.scene.Load(doc); err != nil {
		return err
	}
	if c, open := e.regions.Active(); open && e.cb.OnRegionChanged != nil {
		id := c.ID()
		o.add(func() { e.cb.OnRegionChanged(id, false) })
	}
	e.regions.Attach(e.scene)
	e.machine.SetRegionEditing(false)
	scene.Mirror(e.renderer, e.scene)
	e.apply(e.machine.VerifySelection(), o)
	return nil
}
