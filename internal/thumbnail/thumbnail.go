// Package thumbnail rasterizes a scene document into a small PNG preview.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/stroke"
)

const (
	DefaultWidth  = 320
	DefaultHeight = 200

	background   = "#f8fafc"
	regionBorder = "#9ca3af"
	textBar      = "#94a3b8"
)

// Options controls the output size and quality.
type Options struct {
	Width, Height int
	// Supersample renders at this multiple of the output size and scales
	// down, smoothing edges the rasterizer leaves hard.
	Supersample int
	Padding     float64
}

func DefaultOptions() Options {
	return Options{Width: DefaultWidth, Height: DefaultHeight, Supersample: 2, Padding: 12}
}

// Renderer draws documents with gg. Region content is outlined with the
// given generator and brush so thumbnails match what the editor shows.
type Renderer struct {
	opts      Options
	generator stroke.OutlineGenerator
	brush     stroke.Brush
}

func New(opts Options, gen stroke.OutlineGenerator, brush stroke.Brush) *Renderer {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultWidth, DefaultHeight
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	if gen == nil {
		gen = stroke.Freehand{}
	}
	return &Renderer{opts: opts, generator: gen, brush: brush}
}

// Thumbnail renders doc as PNG. regions maps external document ids to the
// loaded region content; missing entries draw as empty regions.
func (r *Renderer) Thumbnail(doc *document.Document, regions map[string]*document.RegionDocument) ([]byte, error) {
	ss := r.opts.Supersample
	w, h := r.opts.Width*ss, r.opts.Height*ss

	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.ClearWithColor(gg.Hex(background))

	if bounds, ok := doc.ContentBounds(); ok {
		pad := r.opts.Padding * float64(ss)
		scale := math.Min((float64(w)-2*pad)/bounds.Width, (float64(h)-2*pad)/bounds.Height)
		if scale > float64(ss) {
			scale = float64(ss)
		}
		cx, cy := bounds.X+bounds.Width/2, bounds.Y+bounds.Height/2
		dc.Translate(float64(w)/2, float64(h)/2)
		dc.Scale(scale, scale)
		dc.Translate(-cx, -cy)

		for i := range doc.Objects {
			if err := r.drawObject(dc, &doc.Objects[i], regions); err != nil {
				return nil, fmt.Errorf("draw %s: %w", doc.Objects[i].ID, err)
			}
		}
	}

	img := dc.Image()
	if ss > 1 {
		dst := image.NewRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawObject(dc *gg.Context, o *document.Object, regions map[string]*document.RegionDocument) error {
	g := o.Geometry
	dc.Push()
	defer dc.Pop()
	if g.Rotation != 0 {
		dc.RotateAbout(g.Rotation*math.Pi/180, g.X+g.Width/2, g.Y+g.Height/2)
	}

	switch o.Kind {
	case document.KindShape:
		if o.Shape == document.ShapeEllipse {
			dc.DrawEllipse(g.X+g.Width/2, g.Y+g.Height/2, g.Width/2, g.Height/2)
		} else {
			dc.DrawRectangle(g.X, g.Y, g.Width, g.Height)
		}
		return paint(dc, o.Style)
	case document.KindText:
		// Glyphs are unreadable at thumbnail size; draw a bar per line.
		lineHeight := o.FontSize * 1.2
		if lineHeight <= 0 {
			lineHeight = g.Height
		}
		for y := g.Y; y+lineHeight/2 <= g.Y+g.Height; y += lineHeight {
			dc.DrawRectangle(g.X, y+lineHeight*0.25, g.Width, lineHeight*0.5)
		}
		setColor(dc, textBar, 1)
		return dc.Fill()
	case document.KindPath:
		if len(o.Points) < 2 {
			return nil
		}
		dc.MoveTo(o.Points[0].X, o.Points[0].Y)
		for _, p := range o.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.SetLineWidth(math.Max(o.Style.StrokeWidth, 1))
		setColor(dc, o.Style.Stroke, o.Style.Opacity)
		return dc.Stroke()
	case document.KindDrawingRegion:
		dc.DrawRectangle(g.X, g.Y, g.Width, g.Height)
		if err := paint(dc, document.Style{Fill: "#ffffff", Stroke: regionBorder, StrokeWidth: 1, Opacity: 1}); err != nil {
			return err
		}
		return r.drawRegion(dc, g, regions[o.ExternalDocumentID])
	}
	return nil
}

func (r *Renderer) drawRegion(dc *gg.Context, g document.Geometry, content *document.RegionDocument) error {
	if content == nil {
		return nil
	}
	dc.Translate(g.X, g.Y)
	for _, s := range content.Strokes {
		poly := r.generator.Outline(s.Points, r.brush.OptionsFor(s, true))
		if len(poly) < 3 {
			continue
		}
		dc.MoveTo(poly[0].X, poly[0].Y)
		for _, v := range poly[1:] {
			dc.LineTo(v.X, v.Y)
		}
		dc.ClosePath()
		setColor(dc, s.Color, s.Opacity)
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	return nil
}

func paint(dc *gg.Context, st document.Style) error {
	if st.Fill != "" && st.Fill != "transparent" {
		setColor(dc, st.Fill, st.Opacity)
		if err := dc.FillPreserve(); err != nil {
			return err
		}
	}
	if st.Stroke != "" && st.StrokeWidth > 0 {
		setColor(dc, st.Stroke, st.Opacity)
		dc.SetLineWidth(st.StrokeWidth)
		return dc.Stroke()
	}
	dc.ClearPath()
	return nil
}

func setColor(dc *gg.Context, hex string, opacity float64) {
	c := gg.Hex(hex)
	if opacity > 0 && opacity < 1 {
		c.A *= opacity
	}
	dc.SetRGBA(c.R, c.G, c.B, c.A)
}
