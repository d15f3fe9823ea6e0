// Package editor composes the viewport, scene, tool machine, drawing regions
// and persistence into one controller owned by the host.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/persist"
	"github.com/inkboard/inkboard/internal/region"
	"github.com/inkboard/inkboard/internal/render"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/storage"
	"github.com/inkboard/inkboard/internal/stroke"
	"github.com/inkboard/inkboard/internal/tool"
	"github.com/inkboard/inkboard/internal/viewport"
)

var ErrNoStore = errors.New("editor: no store")

type State int

const (
	Ready State = iota
	// Failed editors are usable but started from an empty scene.
	Failed
)

func (s State) String() string {
	if s == Failed {
		return "failed"
	}
	return "ready"
}

type Result struct {
	State State
	Err   error
}

// Editor is the host-facing controller for one board document. All methods
// are safe for concurrent use.
type Editor struct {
	docID  string
	opts   Options
	cb     Callbacks
	store  storage.Store
	clock  persist.Clock
	log    *slog.Logger
	thumbs Thumbnailer
	spawn  func(func())

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	renderer scene.Renderer
	scene    *scene.Scene
	machine  *tool.Machine
	regions  *region.Set
	gate     *persist.Gate
	brush    stroke.Style
	pen      document.Tool

	drawing     persist.Token
	drawingOpen bool
	cooldown    persist.Timer
	cooldownGen uint64

	// regionDocs caches region content seen this session for thumbnails.
	regionDocs  map[string]*document.RegionDocument
	regionSaves map[string]*persist.Scheduler
	// detached holds controllers of removed regions until their pending
	// strokes are written.
	detached map[string]*region.Controller

	baseline persist.Baseline
	saves    *persist.Scheduler
}

// Initialize builds an editor and loads documentID. It always returns a
// usable editor: when the renderer or the load fails the result is Failed
// and the scene starts empty.
func Initialize(ctx context.Context, documentID string, opts Options, deps Deps, cb Callbacks) (*Editor, Result) {
	if deps.Clock == nil {
		deps.Clock = persist.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Spawn == nil {
		deps.Spawn = func(f func()) { go f() }
	}
	if opts.RegionTitle == "" {
		opts.RegionTitle = DefaultRegionTitle
	}

	e := &Editor{
		docID:       documentID,
		opts:        opts,
		cb:          cb,
		store:       deps.Store,
		clock:       deps.Clock,
		log:         deps.Logger.With("document", documentID),
		thumbs:      deps.Thumbnailer,
		spawn:       deps.Spawn,
		gate:        persist.NewGate(),
		brush:       opts.Brush,
		pen:         document.ToolPen,
		regionDocs:  make(map[string]*document.RegionDocument),
		regionSaves: make(map[string]*persist.Scheduler),
		detached:    make(map[string]*region.Controller),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	var failure error
	r, err := newRenderer(deps.NewRenderer)
	if err != nil {
		failure = fmt.Errorf("create renderer: %w", err)
		r = render.NewRetained(nil)
	}
	e.renderer = r

	vp := viewport.New(opts.Width, opts.Height, viewport.Limits{Min: opts.MinZoom, Max: opts.MaxZoom})
	e.scene = scene.New(vp)
	e.machine = tool.New(e.scene, e.renderer, opts.Tool)
	e.regions = region.NewSet(opts.Stroke, deps.Outline)
	e.saves = persist.NewScheduler(persist.SchedulerConfig{
		Name:     "scene",
		Delay:    opts.SaveDebounce,
		Clock:    e.clock,
		Logger:   e.log,
		OnStatus: e.reportStatus,
	}, e.saveScene)

	if failure == nil {
		failure = e.load(ctx)
	}
	scene.Mirror(e.renderer, e.scene)

	if failure != nil {
		e.log.Error("initialize editor", "error", failure)
		return e, Result{State: Failed, Err: failure}
	}
	e.log.Info("editor ready", "objects", e.scene.Len(), "regions", e.regions.Len())
	return e, Result{State: Ready}
}

func newRenderer(factory func() (scene.Renderer, error)) (scene.Renderer, error) {
	if factory == nil {
		return render.NewRetained(nil), nil
	}
	r, err := factory()
	if err == nil && r == nil {
		err = errors.New("renderer factory returned nil")
	}
	return r, err
}

// load fills the scene from the store. Empty content is a new board.
func (e *Editor) load(ctx context.Context) error {
	if e.store == nil {
		return ErrNoStore
	}
	data, err := e.store.LoadContent(ctx, e.docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	doc, err := document.Decode(data)
	if errors.Is(err, document.ErrEmpty) {
		doc, err = document.NewEmptyDocument(), nil
	}
	if err != nil {
		return err
	}
	if err := e.scene.Load(doc); err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	e.regions.Attach(e.scene)
	if canonical, err := document.Encode(e.scene.ToDocument()); err == nil {
		e.baseline.Set(canonical)
	}
	return nil
}

// outbox collects work that must run after the editor lock is released:
// host callbacks, scheduler calls and storage I/O.
type outbox struct {
	fns []func()
}

func (o *outbox) add(f func()) {
	o.fns = append(o.fns, f)
}

func (e *Editor) do(f func(o *outbox)) {
	var o outbox
	e.mu.Lock()
	f(&o)
	e.mu.Unlock()
	for _, fn := range o.fns {
		fn()
	}
}

func (e *Editor) reportStatus(st persist.Status) {
	if e.cb.OnSaveStatus != nil {
		e.cb.OnSaveStatus(st)
	}
}

func (e *Editor) reportSaving(saving bool) {
	if e.cb.OnSavingChanged != nil {
		e.cb.OnSavingChanged(saving)
	}
}

func (e *Editor) DocumentID() string { return e.docID }

// Renderer returns the renderer the scene is mirrored into.
func (e *Editor) Renderer() scene.Renderer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderer
}

func (e *Editor) Tool() tool.Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Tool()
}

func (e *Editor) Selection() tool.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Selection()
}

func (e *Editor) Viewport() document.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.Viewport().State()
}

// Document serialises the local working copy.
func (e *Editor) Document() *document.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.ToDocument()
}

// ActiveRegion returns the open drawing region's object id.
func (e *Editor) ActiveRegion() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.regions.Active(); ok {
		return c.ID(), true
	}
	return "", false
}

// RegionStrokes returns the strokes of a region opened this session.
func (e *Editor) RegionStrokes(regionID string) ([]document.Stroke, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.regions.Get(regionID)
	if !ok {
		return nil, false
	}
	return c.Strokes(), true
}

// Close abandons any gesture, writes pending region and scene saves and
// stops background work.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	if c, ok := e.regions.Active(); ok {
		c.Cancel()
	}
	e.machine.Cancel()
	e.endDrawingNow()
	schedulers := make([]*persist.Scheduler, 0, len(e.regionSaves))
	for _, s := range e.regionSaves {
		schedulers = append(schedulers, s)
	}
	e.mu.Unlock()

	var errs []error
	for _, s := range schedulers {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.saves.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	e.cancel()
	return errors.Join(errs...)
}
