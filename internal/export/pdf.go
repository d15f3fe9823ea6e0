// Package export renders board documents to vector PDF.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/gogpu/gg"
	"github.com/jung-kurt/gofpdf"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/stroke"
)

const (
	defaultMargin = 24.0
	minPageSide   = 144.0

	regionBorder = "#9ca3af"
)

// Exporter writes one PDF page per board sized to fit its content, in points
// with one world unit per point.
type Exporter struct {
	generator stroke.OutlineGenerator
	brush     stroke.Brush
	Margin    float64
}

func New(gen stroke.OutlineGenerator, brush stroke.Brush) *Exporter {
	if gen == nil {
		gen = stroke.Freehand{}
	}
	return &Exporter{generator: gen, brush: brush, Margin: defaultMargin}
}

// PDF writes doc to w. regions maps external document ids to loaded region
// content; regions without an entry are drawn as empty frames.
func (e *Exporter) PDF(w io.Writer, title string, doc *document.Document, regions map[string]*document.RegionDocument) error {
	bounds, ok := doc.ContentBounds()
	if !ok {
		bounds = document.Bounds{Width: minPageSide, Height: minPageSide}
	}
	pageW := math.Max(bounds.Width+2*e.Margin, minPageSide)
	pageH := math.Max(bounds.Height+2*e.Margin, minPageSide)

	orientation := "P"
	if pageW > pageH {
		orientation = "L"
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(title, true)
	pdf.SetCreator("inkboard", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	pdf.AddPage()

	// Centre the content on the page.
	dx := (pageW-bounds.Width)/2 - bounds.X
	dy := (pageH-bounds.Height)/2 - bounds.Y
	pdf.TransformBegin()
	pdf.TransformTranslate(dx, dy)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for i := range doc.Objects {
		e.drawObject(pdf, tr, &doc.Objects[i], regions)
	}
	pdf.TransformEnd()

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (e *Exporter) drawObject(pdf *gofpdf.Fpdf, tr func(string) string, o *document.Object, regions map[string]*document.RegionDocument) {
	g := o.Geometry
	pdf.TransformBegin()
	defer pdf.TransformEnd()
	if g.Rotation != 0 {
		// gofpdf rotates counter-clockwise; scene rotation is clockwise on a y-down canvas.
		pdf.TransformRotate(-g.Rotation, g.X+g.Width/2, g.Y+g.Height/2)
	}

	switch o.Kind {
	case document.KindShape:
		style := applyStyle(pdf, o.Style)
		if style == "" {
			return
		}
		if o.Shape == document.ShapeEllipse {
			pdf.Ellipse(g.X+g.Width/2, g.Y+g.Height/2, g.Width/2, g.Height/2, 0, style)
		} else {
			pdf.Rect(g.X, g.Y, g.Width, g.Height, style)
		}
	case document.KindText:
		size := o.FontSize
		if size <= 0 {
			size = 16
		}
		setAlpha(pdf, o.Style.Opacity)
		r, gr, b := rgb(firstNonEmpty(o.Style.Fill, o.Style.Stroke, "#111827"))
		pdf.SetTextColor(r, gr, b)
		pdf.SetFont("Helvetica", "", size)
		for i, line := range strings.Split(o.Text, "\n") {
			pdf.Text(g.X, g.Y+size*(float64(i)+1), tr(line))
		}
	case document.KindPath:
		if len(o.Points) < 2 {
			return
		}
		setAlpha(pdf, o.Style.Opacity)
		r, gr, b := rgb(o.Style.Stroke)
		pdf.SetDrawColor(r, gr, b)
		pdf.SetLineWidth(math.Max(o.Style.StrokeWidth, 1))
		pdf.MoveTo(o.Points[0].X, o.Points[0].Y)
		for _, p := range o.Points[1:] {
			pdf.LineTo(p.X, p.Y)
		}
		pdf.DrawPath("D")
	case document.KindDrawingRegion:
		setAlpha(pdf, 1)
		pdf.SetFillColor(255, 255, 255)
		r, gr, b := rgb(regionBorder)
		pdf.SetDrawColor(r, gr, b)
		pdf.SetLineWidth(1)
		pdf.Rect(g.X, g.Y, g.Width, g.Height, "FD")
		if content := regions[o.ExternalDocumentID]; content != nil {
			pdf.ClipRect(g.X, g.Y, g.Width, g.Height, false)
			e.drawStrokes(pdf, g.X, g.Y, content.Strokes)
			pdf.ClipEnd()
		}
	}
}

// drawStrokes fills each stroke's outline polygon, offset to the region origin.
func (e *Exporter) drawStrokes(pdf *gofpdf.Fpdf, ox, oy float64, strokes []document.Stroke) {
	for _, s := range strokes {
		poly := e.generator.Outline(s.Points, e.brush.OptionsFor(s, true))
		if len(poly) < 3 {
			continue
		}
		pts := make([]gofpdf.PointType, len(poly))
		for i, v := range poly {
			pts[i] = gofpdf.PointType{X: ox + v.X, Y: oy + v.Y}
		}
		setAlpha(pdf, s.Opacity)
		r, g, b := rgb(s.Color)
		pdf.SetFillColor(r, g, b)
		pdf.Polygon(pts, "F")
	}
}

// applyStyle sets fill and draw state and returns the gofpdf style string, or
// "" when the shape paints nothing.
func applyStyle(pdf *gofpdf.Fpdf, st document.Style) string {
	setAlpha(pdf, st.Opacity)
	style := ""
	if st.Fill != "" && st.Fill != "transparent" {
		r, g, b := rgb(st.Fill)
		pdf.SetFillColor(r, g, b)
		style += "F"
	}
	if st.Stroke != "" && st.StrokeWidth > 0 {
		r, g, b := rgb(st.Stroke)
		pdf.SetDrawColor(r, g, b)
		pdf.SetLineWidth(st.StrokeWidth)
		style += "D"
	}
	return style
}

func setAlpha(pdf *gofpdf.Fpdf, opacity float64) {
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	pdf.SetAlpha(opacity, "Normal")
}

// rgb parses a CSS hex colour into 0-255 channels. Unparseable input is black.
func rgb(hex string) (int, int, int) {
	c := gg.Hex(hex)
	return int(math.Round(c.R * 255)), int(math.Round(c.G * 255)), int(math.Round(c.B * 255))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" && v != "transparent" {
			return v
		}
	}
	return ""
}
