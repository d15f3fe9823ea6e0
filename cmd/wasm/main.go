//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"syscall/js"
	"time"

	"github.com/inkboard/inkboard/internal/collab"
	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/editor"
	"github.com/inkboard/inkboard/internal/persist"
	"github.com/inkboard/inkboard/internal/render"
	"github.com/inkboard/inkboard/internal/scene"
	"github.com/inkboard/inkboard/internal/storage"
	"github.com/inkboard/inkboard/internal/stroke"
	"github.com/inkboard/inkboard/internal/tool"
)

// initConfig is the JSON the host passes to init.
type initConfig struct {
	APIURL     string  `json:"apiUrl"`
	WSURL      string  `json:"wsUrl"`
	Token      string  `json:"token"`
	DocumentID string  `json:"documentId"`
	OwnerID    string  `json:"ownerId"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

var (
	mu       sync.Mutex
	ed       *editor.Editor
	retained *render.Retained
	sub      *collab.Subscriber
	stopSub  context.CancelFunc

	handlers   = map[string]js.Value{}
	handlersMu sync.Mutex
)

func main() {
	api := js.Global().Get("Object").New()

	// --- Lifecycle ---
	api.Set("init", js.FuncOf(initEditor))
	api.Set("close", js.FuncOf(closeEditor))
	api.Set("on", js.FuncOf(on))

	// --- Input (host → editor) ---
	api.Set("pointerDown", js.FuncOf(pointerHandler((*editor.Editor).PointerDown)))
	api.Set("pointerMove", js.FuncOf(pointerHandler((*editor.Editor).PointerMove)))
	api.Set("pointerUp", js.FuncOf(pointerHandler((*editor.Editor).PointerUp)))
	api.Set("pointerCancel", js.FuncOf(pointerCancel))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("setBrush", js.FuncOf(setBrush))
	api.Set("select", js.FuncOf(selectObject))
	api.Set("clearSelection", js.FuncOf(clearSelection))
	api.Set("deleteSelected", js.FuncOf(deleteSelected))
	api.Set("setText", js.FuncOf(setText))
	api.Set("zoomAt", js.FuncOf(zoomAt))
	api.Set("zoomIn", js.FuncOf(zoomIn))
	api.Set("zoomOut", js.FuncOf(zoomOut))
	api.Set("resetView", js.FuncOf(resetView))
	api.Set("pan", js.FuncOf(pan))
	api.Set("resize", js.FuncOf(resize))
	api.Set("enterRegion", js.FuncOf(enterRegion))
	api.Set("exitRegion", js.FuncOf(exitRegion))

	// --- Queries (host ← editor) ---
	api.Set("render", js.FuncOf(renderCommands))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getViewport", js.FuncOf(getViewport))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getTool", js.FuncOf(getTool))

	go deliverFrames()

	js.Global().Set("inkboard", api)
	js.Global().Set("inkboardWasmReady", js.ValueOf(true))

	select {}
}

func current() *editor.Editor {
	mu.Lock()
	defer mu.Unlock()
	return ed
}

func errorResult(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}

// emit calls the handler the host registered for name, if any.
func emit(name string, args ...interface{}) {
	handlersMu.Lock()
	fn, ok := handlers[name]
	handlersMu.Unlock()
	if ok {
		fn.Invoke(args...)
	}
}

func hasHandler(name string) bool {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	_, ok := handlers[name]
	return ok
}

// promise runs f off the JS event loop. Storage calls block on fetch, which
// deadlocks if awaited inside a js.FuncOf callback.
func promise(f func() (interface{}, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			v, err := f()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

// --- Lifecycle ---

func on(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || args[1].Type() != js.TypeFunction {
		return nil
	}
	handlersMu.Lock()
	handlers[args[0].String()] = args[1]
	handlersMu.Unlock()
	return nil
}

func initEditor(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(errorResult(errors.New("missing config JSON")))
	}
	raw := args[0].String()
	return promise(func() (interface{}, error) {
		var cfg initConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return nil, err
		}
		if cfg.DocumentID == "" {
			return nil, errors.New("documentId is required")
		}
		closeCurrent()

		client := storage.NewClient(cfg.APIURL, cfg.Token, nil)
		opts := editor.DefaultOptions()
		var settings editor.Settings
		if err := client.EditorSettings(context.Background(), &settings); err != nil {
			slog.Warn("load editor settings, using defaults", "error", err)
		} else {
			opts = settings.Apply(opts)
		}
		if cfg.Width > 0 && cfg.Height > 0 {
			opts.Width, opts.Height = cfg.Width, cfg.Height
		}
		opts.OwnerID = cfg.OwnerID

		var r *render.Retained
		deps := editor.Deps{
			Store:   client,
			Outline: stroke.Freehand{},
			NewRenderer: func() (scene.Renderer, error) {
				r = render.NewRetained(onFrame)
				return r, nil
			},
		}
		if hasHandler("thumbnail") {
			deps.Thumbnailer = hostThumbnailer{}
		}
		e, res := editor.Initialize(context.Background(), cfg.DocumentID, opts, deps, callbacks())
		if r == nil {
			r, _ = e.Renderer().(*render.Retained)
		}

		mu.Lock()
		ed, retained = e, r
		mu.Unlock()

		if cfg.WSURL != "" {
			go subscribe(cfg, client, e)
		}

		out := map[string]interface{}{"state": res.State.String()}
		if res.Err != nil {
			out["error"] = res.Err.Error()
		}
		return js.ValueOf(out), nil
	})
}

func callbacks() editor.Callbacks {
	return editor.Callbacks{
		OnSavingChanged: func(saving bool) { emit("saving", saving) },
		OnSaveStatus:    func(st persist.Status) { emit("saveStatus", string(st)) },
		OnToolChanged:   func(t tool.Tool) { emit("tool", string(t)) },
		OnSelectionChanged: func(sel tool.Selection) {
			emit("selection", selectionJSON(sel))
		},
		OnEditText:      func(id string) { emit("editText", id) },
		OnRegionChanged: func(id string, editing bool) { emit("region", id, editing) },
	}
}

// hostThumbnailer asks the page to rasterize a saved board. The host
// registers on("thumbnail", fn) before init; fn receives the document and region
// documents as JSON and returns a Promise of PNG bytes (a Uint8Array).
type hostThumbnailer struct{}

const thumbnailTimeout = 10 * time.Second

func (hostThumbnailer) Thumbnail(doc *document.Document, regions map[string]*document.RegionDocument) ([]byte, error) {
	handlersMu.Lock()
	fn, ok := handlers["thumbnail"]
	handlersMu.Unlock()
	if !ok {
		return nil, nil
	}
	docJSON, err := document.Encode(doc)
	if err != nil {
		return nil, err
	}
	regionsJSON, err := json.Marshal(regions)
	if err != nil {
		return nil, err
	}

	type result struct {
		png []byte
		err error
	}
	done := make(chan result, 1)
	onResolve := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) == 0 || args[0].IsUndefined() || args[0].IsNull() {
			done <- result{}
			return nil
		}
		png := make([]byte, args[0].Get("length").Int())
		js.CopyBytesToGo(png, args[0])
		done <- result{png: png}
		return nil
	})
	defer onResolve.Release()
	onReject := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		msg := "thumbnail handler failed"
		if len(args) > 0 {
			msg = args[0].Call("toString").String()
		}
		done <- result{err: errors.New(msg)}
		return nil
	})
	defer onReject.Release()

	p := fn.Invoke(string(docJSON), string(regionsJSON))
	js.Global().Get("Promise").Call("resolve", p).Call("then", onResolve, onReject)

	select {
	case r := <-done:
		return r.png, r.err
	case <-time.After(thumbnailTimeout):
		return nil, errors.New("thumbnail handler timed out")
	}
}

// frames holds the newest undelivered frame. The editor renders while locked,
// so frames reach the host from their own goroutine; a host handler that
// queries the editor would otherwise deadlock.
var frames = make(chan string, 1)

func onFrame(cmds []render.DrawCommand) {
	data, err := render.DrawCommandsToJSON(cmds)
	if err != nil {
		slog.Error("encode frame", "error", err)
		return
	}
	for {
		select {
		case frames <- data:
			return
		default:
		}
		// Drop the stale frame and retry.
		select {
		case <-frames:
		default:
		}
	}
}

func deliverFrames() {
	for data := range frames {
		emit("frame", data)
	}
}

// subscribe feeds saves by other writers into reconciliation. The client id
// from the welcome tags our own saves so the server does not echo them.
func subscribe(cfg initConfig, client *storage.Client, e *editor.Editor) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := collab.Dial(ctx, collab.SubscriberConfig{
		URL:       strings.TrimRight(cfg.WSURL, "/") + "/ws/documents/" + cfg.DocumentID,
		Token:     cfg.Token,
		OnWelcome: client.SetClientID,
		OnSaved: func(documentID string, revision int, content []byte) {
			if documentID != e.DocumentID() {
				return
			}
			decision, err := e.OnExternalContent(content)
			if err != nil {
				slog.Warn("apply external content", "revision", revision, "error", err)
				return
			}
			emit("external", decision.String(), revision)
		},
		OnPresence: func(viewers []collab.Viewer) {
			data, err := json.Marshal(viewers)
			if err != nil {
				return
			}
			emit("presence", string(data))
		},
	})
	if err != nil {
		cancel()
		slog.Warn("subscribe to saves", "error", err)
		return
	}

	mu.Lock()
	if ed != e {
		// Replaced while dialing.
		mu.Unlock()
		cancel()
		s.Close()
		return
	}
	sub, stopSub = s, cancel
	mu.Unlock()

	if err := s.Run(ctx); err != nil {
		slog.Warn("save subscription ended", "error", err)
	}
}

func closeCurrent() error {
	mu.Lock()
	e, s, stop := ed, sub, stopSub
	ed, retained, sub, stopSub = nil, nil, nil, nil
	mu.Unlock()

	if stop != nil {
		stop()
		s.Close()
	}
	if e == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Close(ctx)
}

func closeEditor(this js.Value, args []js.Value) interface{} {
	return promise(func() (interface{}, error) {
		return nil, closeCurrent()
	})
}

// --- Input ---

// pointerEvent reads (x, y[, pressure]) in screen pixels. A missing or
// non-positive pressure means the device reported none.
func pointerEvent(args []js.Value) (tool.PointerEvent, bool) {
	if len(args) < 2 {
		return tool.PointerEvent{}, false
	}
	ev := tool.PointerEvent{X: args[0].Float(), Y: args[1].Float(), Time: time.Now()}
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		if p := args[2].Float(); p > 0 {
			ev.Pressure, ev.HasPressure = p, true
		}
	}
	return ev, true
}

func pointerHandler(f func(*editor.Editor, tool.PointerEvent)) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		e := current()
		ev, ok := pointerEvent(args)
		if e == nil || !ok {
			return nil
		}
		f(e, ev)
		return nil
	}
}

func pointerCancel(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil {
		e.PointerCancel()
	}
	return nil
}

func setTool(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil && len(args) > 0 {
		e.SetTool(tool.Tool(args[0].String()))
	}
	return nil
}

// setBrush(color, size, opacity, pen)
func setBrush(this js.Value, args []js.Value) interface{} {
	e := current()
	if e == nil || len(args) < 4 {
		return nil
	}
	e.SetBrush(stroke.Style{
		Color:   args[0].String(),
		Size:    args[1].Float(),
		Opacity: args[2].Float(),
	}, document.Tool(args[3].String()))
	return nil
}

func selectObject(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil && len(args) > 0 {
		e.Select(args[0].String())
	}
	return nil
}

func clearSelection(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil {
		e.ClearSelection()
	}
	return nil
}

func deleteSelected(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil {
		e.DeleteSelected()
	}
	return nil
}

func setText(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil && len(args) > 1 {
		e.SetText(args[0].String(), args[1].String())
	}
	return nil
}

func zoomAt(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil && len(args) > 2 {
		e.ZoomAt(args[0].Float(), args[1].Float(), args[2].Float())
	}
	return nil
}

func zoomIn(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil {
		e.ZoomIn()
	}
	return nil
}

func zoomOut(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil {
		e.ZoomOut()
	}
	return nil
}

func resetView(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil {
		e.ResetView()
	}
	return nil
}

// pan(dx, dy, final)
func pan(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil && len(args) > 2 {
		e.Pan(args[0].Float(), args[1].Float(), args[2].Truthy())
	}
	return nil
}

func resize(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil && len(args) > 1 {
		e.Resize(args[0].Float(), args[1].Float())
	}
	return nil
}

func enterRegion(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil && len(args) > 0 {
		id := args[0].String()
		// Entering loads the region document.
		go e.EnterRegion(id)
	}
	return nil
}

func exitRegion(this js.Value, args []js.Value) interface{} {
	if e := current(); e != nil {
		e.ExitRegion()
	}
	return nil
}

// --- Queries ---

func renderCommands(this js.Value, args []js.Value) interface{} {
	mu.Lock()
	r := retained
	mu.Unlock()
	if r == nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(r.JSON())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	e := current()
	if e == nil {
		return js.ValueOf("")
	}
	data, err := document.Encode(e.Document())
	if err != nil {
		return js.ValueOf(errorResult(err))
	}
	return js.ValueOf(string(data))
}

func getViewport(this js.Value, args []js.Value) interface{} {
	e := current()
	if e == nil {
		return js.ValueOf(nil)
	}
	v := e.Viewport()
	return js.ValueOf(map[string]interface{}{"zoom": v.Zoom, "panX": v.PanX, "panY": v.PanY})
}

func selectionJSON(sel tool.Selection) string {
	data, err := json.Marshal(map[string]interface{}{
		"objectId": sel.ObjectID,
		"type":     sel.Type.String(),
		"toolbarX": sel.ToolbarX,
		"toolbarY": sel.ToolbarY,
	})
	if err != nil {
		return "{}"
	}
	return string(data)
}

func getSelection(this js.Value, args []js.Value) interface{} {
	e := current()
	if e == nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(selectionJSON(e.Selection()))
}

func getTool(this js.Value, args []js.Value) interface{} {
	e := current()
	if e == nil {
		return js.ValueOf("")
	}
	return js.ValueOf(string(e.Tool()))
}
