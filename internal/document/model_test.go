package document

import (
	"errors"
	"testing"
)

func TestDecodeNormalises(t *testing.T) {
	doc, err := Decode([]byte(`{"viewport":{}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Viewport.Zoom != 1 {
		t.Errorf("zoom = %v, want 1", doc.Viewport.Zoom)
	}
	if doc.Objects == nil {
		t.Error("objects is nil, want empty slice")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "  ", ErrEmpty},
		{"duplicate ids", `{"objects":[{"id":"a","kind":"shape"},{"id":"a","kind":"text"}]}`, ErrDuplicateID},
		{"unknown kind", `{"objects":[{"id":"a","kind":"image"}]}`, ErrUnknownKind},
		{"region without document", `{"objects":[{"id":"a","kind":"drawingRegion"}]}`, ErrInvalidRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := Decode([]byte("{")); err == nil {
		t.Error("malformed JSON decoded without error")
	}
}

func TestCanonicalIgnoresFormatting(t *testing.T) {
	a := []byte(`{"objects":[{"id":"x","kind":"shape","geometry":{"x":1,"y":2,"width":3,"height":4,"rotation":0}}],"viewport":{"zoom":2,"panX":5,"panY":6}}`)
	b := []byte(`{
		"viewport": {"panY": 6, "panX": 5, "zoom": 2},
		"objects": [{"kind": "shape", "id": "x", "geometry": {"height": 4, "width": 3, "y": 2, "x": 1}}]
	}`)
	ca, err := Canonical(a)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := Canonical(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ca) != string(cb) {
		t.Errorf("canonical forms differ:\n%s\n%s", ca, cb)
	}
}

func TestRegionDecodeDefaults(t *testing.T) {
	doc, err := DecodeRegion([]byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Strokes == nil || len(doc.Strokes) != 0 {
		t.Errorf("strokes = %#v, want empty", doc.Strokes)
	}
	if _, err := DecodeRegion(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name          string
		local, remote string
		lc, rc        int
		want          Change
	}{
		{"identical", `{"a":1}`, `{"a":1}`, 3, 3, ChangeNone},
		{"viewport only", `{"a":1}`, `{"a":2}`, 3, 3, ChangeSoft},
		{"one object added", `{"a":1}`, `{"a":2}`, 3, 4, ChangeSoft},
		{"one object removed", `{"a":1}`, `{"a":2}`, 3, 2, ChangeSoft},
		{"several added", `{"a":1}`, `{"a":2}`, 1, 5, ChangeHard},
		{"cleared", `{"a":1}`, `{"a":2}`, 4, 0, ChangeHard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare([]byte(tt.local), []byte(tt.remote), tt.lc, tt.rc)
			if got != tt.want {
				t.Errorf("Compare = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContentBounds(t *testing.T) {
	doc := NewEmptyDocument()
	if _, ok := doc.ContentBounds(); ok {
		t.Fatal("empty document reported bounds")
	}
	doc.Objects = []Object{
		{ID: "a", Kind: KindShape, Geometry: Geometry{X: 10, Y: 20, Width: 30, Height: 40}},
		{ID: "b", Kind: KindText, Geometry: Geometry{X: -5, Y: 50, Width: 10, Height: 100}},
		{ID: "c", Kind: KindPath, Geometry: Geometry{X: 500, Y: 500}},
	}
	b, ok := doc.ContentBounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	want := Bounds{X: -5, Y: 20, Width: 45, Height: 130}
	if b != want {
		t.Errorf("bounds = %+v, want %+v", b, want)
	}
}
