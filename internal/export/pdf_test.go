package export

import (
	"bytes"
	"testing"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/stroke"
)

func sampleDoc() *document.Document {
	doc := document.NewEmptyDocument()
	doc.Objects = []document.Object{
		{ID: "r", Kind: document.KindShape, Shape: document.ShapeRect,
			Geometry: document.Geometry{X: 0, Y: 0, Width: 200, Height: 100, Rotation: 15},
			Style:    document.Style{Fill: "#ef4444", Stroke: "#111827", StrokeWidth: 2, Opacity: 0.8}},
		{ID: "e", Kind: document.KindShape, Shape: document.ShapeEllipse,
			Geometry: document.Geometry{X: 250, Y: 0, Width: 80, Height: 80},
			Style:    document.Style{Fill: "transparent", Stroke: "#2563eb", StrokeWidth: 1, Opacity: 1}},
		{ID: "t", Kind: document.KindText, Text: "hello\nwörld", FontSize: 18,
			Geometry: document.Geometry{X: 0, Y: 150, Width: 120, Height: 44},
			Style:    document.Style{Fill: "#111827", Opacity: 1}},
		{ID: "p", Kind: document.KindPath, Points: []document.Point{{X: 0, Y: 220}, {X: 50, Y: 260}, {X: 90, Y: 230}},
			Geometry: document.Geometry{X: 0, Y: 220, Width: 90, Height: 40},
			Style:    document.Style{Stroke: "#16a34a", StrokeWidth: 3, Opacity: 1}},
		{ID: "d", Kind: document.KindDrawingRegion, ExternalDocumentID: "doc_region",
			Geometry: document.Geometry{X: 150, Y: 150, Width: 200, Height: 150}},
	}
	return doc
}

func TestPDF(t *testing.T) {
	regionStrokes := &document.RegionDocument{Strokes: []document.Stroke{{
		Points: []document.Point{{X: 10, Y: 10, Pressure: 0.5}, {X: 60, Y: 40, Pressure: 0.5}, {X: 120, Y: 90, Pressure: 0.5}},
		Color:  "#000000", Size: 6, Opacity: 1, Tool: document.ToolPen,
	}}}

	tests := []struct {
		name    string
		doc     *document.Document
		regions map[string]*document.RegionDocument
	}{
		{"empty board", document.NewEmptyDocument(), nil},
		{"objects without region content", sampleDoc(), nil},
		{"objects with region content", sampleDoc(), map[string]*document.RegionDocument{"doc_region": regionStrokes}},
	}

	e := New(stroke.Freehand{}, stroke.DefaultBrush())
	sizes := make([]int, len(tests))
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := e.PDF(&buf, "Board", tt.doc, tt.regions); err != nil {
				t.Fatalf("PDF: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
				t.Fatalf("output does not start with a PDF header: %q", buf.Bytes()[:min(buf.Len(), 16)])
			}
			sizes[i] = buf.Len()
		})
	}
	if sizes[2] <= sizes[1] {
		t.Errorf("region strokes did not add content: %d <= %d", sizes[2], sizes[1])
	}
}

func TestRGB(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b int
	}{
		{"#ff0000", 255, 0, 0},
		{"#0f0", 0, 255, 0},
		{"2563eb", 37, 99, 235},
	}
	for _, tt := range tests {
		r, g, b := rgb(tt.in)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("rgb(%q) = %d,%d,%d, want %d,%d,%d", tt.in, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}
