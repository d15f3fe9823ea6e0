package stroke

import (
	"math"

	"github.com/inkboard/inkboard/internal/document"
)

// EraseIntersecting removes every stroke having any point within
// (eraser.Size + s.Size)/2 of any eraser point. The test is point to point,
// so sparse strokes can slip between eraser samples; removal is whole-stroke.
func EraseIntersecting(eraser document.Stroke, strokes []document.Stroke) ([]document.Stroke, int) {
	kept := make([]document.Stroke, 0, len(strokes))
	removed := 0
	for _, s := range strokes {
		if touches(eraser, s) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	return kept, removed
}

func touches(eraser, s document.Stroke) bool {
	limit := (eraser.Size + s.Size) / 2
	for _, e := range eraser.Points {
		for _, p := range s.Points {
			if math.Hypot(e.X-p.X, e.Y-p.Y) <= limit {
				return true
			}
		}
	}
	return false
}
