package editor

import (
	"log/slog"
	"time"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/persist"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/storage"
	"github.com/inkboard/inkboard/internal/stroke"
	"github.com/inkboard/inkboard/internal/tool"
	"github.com/inkboard/inkboard/internal/viewport"
)

const (
	DefaultDrawCooldown = 300 * time.Millisecond
	DefaultRegionTitle  = "Drawing"
)

type Options struct {
	// Width and Height are the surface size in screen pixels.
	Width, Height float64

	SaveDebounce time.Duration
	// DrawCooldown keeps the drawing session open after pointer-up so a
	// content update racing the end of a gesture is still treated as stale.
	DrawCooldown time.Duration

	MinZoom, MaxZoom float64
	ZoomStep         float64

	Stroke stroke.Settings
	Tool   tool.Config
	// Brush is the paint new region strokes start with.
	Brush stroke.Style

	// OwnerID and RegionTitle are passed to CreateDocument for new regions.
	OwnerID     string
	RegionTitle string
}

func DefaultOptions() Options {
	return Options{
		Width:        800,
		Height:       600,
		SaveDebounce: persist.DefaultDebounce,
		DrawCooldown: DefaultDrawCooldown,
		MinZoom:      viewport.DefaultMinZoom,
		MaxZoom:      viewport.DefaultMaxZoom,
		ZoomStep:     viewport.DefaultZoomStep,
		Stroke:       stroke.DefaultSettings(),
		Tool:         tool.DefaultConfig(),
		Brush:        stroke.Style{Color: "#111827", Size: 4, Opacity: 1},
		RegionTitle:  DefaultRegionTitle,
	}
}

// Callbacks notify the host. They run on the goroutine that caused the
// event, never while the editor is locked, so they may call back in.
type Callbacks struct {
	OnSavingChanged    func(saving bool)
	OnSaveStatus       func(status persist.Status)
	OnToolChanged      func(t tool.Tool)
	OnSelectionChanged func(sel tool.Selection)
	// OnEditText asks the host to start inline editing of a new text object.
	OnEditText func(objectID string)
	// OnRegionChanged reports a drawing region opening or closing.
	OnRegionChanged func(regionID string, editing bool)
}

// Thumbnailer renders a preview of a saved scene. An empty result with a nil
// error means no preview is available and nothing is uploaded.
type Thumbnailer interface {
	Thumbnail(doc *document.Document, regions map[string]*document.RegionDocument) ([]byte, error)
}

type Deps struct {
	Store storage.Store
	// NewRenderer constructs the scene renderer. Nil selects the built-in
	// retained renderer.
	NewRenderer func() (scene.Renderer, error)
	Clock       persist.Clock
	Logger      *slog.Logger
	Outline     stroke.OutlineGenerator
	// Thumbnailer is optional; without it no thumbnails are uploaded.
	Thumbnailer Thumbnailer
	// Spawn runs storage work started by pointer input. Nil runs it on a new
	// goroutine.
	Spawn func(func())
}
