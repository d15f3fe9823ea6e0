package editor

import (
	"testing"
	"time"
)

func TestSettingsApply(t *testing.T) {
	base := DefaultOptions()

	tests := []struct {
		name  string
		in    Settings
		check func(t *testing.T, got Options)
	}{
		{"zero keeps defaults", Settings{}, func(t *testing.T, got Options) {
			if got.SaveDebounce != base.SaveDebounce || got.MinZoom != base.MinZoom || got.Tool.MinRegionSize != base.Tool.MinRegionSize {
				t.Errorf("options changed: %+v", got)
			}
		}},
		{"durations in milliseconds", Settings{SaveDebounceMS: 2500, DrawCooldownMS: 100, RenderIntervalMS: 33}, func(t *testing.T, got Options) {
			if got.SaveDebounce != 2500*time.Millisecond || got.DrawCooldown != 100*time.Millisecond || got.Stroke.RenderInterval != 33*time.Millisecond {
				t.Errorf("durations = %v %v %v", got.SaveDebounce, got.DrawCooldown, got.Stroke.RenderInterval)
			}
		}},
		{"tunables", Settings{ZoomStep: 0.25, MaxVelocity: 3, MinRegionSize: 80}, func(t *testing.T, got Options) {
			if got.ZoomStep != 0.25 || got.Stroke.MaxVelocity != 3 || got.Tool.MinRegionSize != 80 {
				t.Errorf("tunables = %v %v %v", got.ZoomStep, got.Stroke.MaxVelocity, got.Tool.MinRegionSize)
			}
		}},
		{"zoom range", Settings{MinZoom: 0.5, MaxZoom: 2}, func(t *testing.T, got Options) {
			if got.MinZoom != 0.5 || got.MaxZoom != 2 {
				t.Errorf("zoom range = [%v, %v]", got.MinZoom, got.MaxZoom)
			}
		}},
		{"inverted zoom range ignored", Settings{MinZoom: 4, MaxZoom: 2}, func(t *testing.T, got Options) {
			if got.MinZoom != base.MinZoom || got.MaxZoom != base.MaxZoom {
				t.Errorf("zoom range = [%v, %v], want defaults", got.MinZoom, got.MaxZoom)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.in.Apply(base))
		})
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.SaveDebounce = 3 * time.Second
	opts.Tool.MinRegionSize = 64

	got := opts.Settings().Apply(DefaultOptions())
	if got.SaveDebounce != opts.SaveDebounce || got.Tool.MinRegionSize != 64 {
		t.Errorf("round trip = %v / %v", got.SaveDebounce, got.Tool.MinRegionSize)
	}
}
