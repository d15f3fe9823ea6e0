package editor

import "time"

// Settings is the JSON form of the server-tunable editor options. Durations
// are milliseconds; zero fields keep the local default.
type Settings struct {
	SaveDebounceMS   int64   `json:"saveDebounceMs,omitempty"`
	DrawCooldownMS   int64   `json:"drawCooldownMs,omitempty"`
	MinZoom          float64 `json:"minZoom,omitempty"`
	MaxZoom          float64 `json:"maxZoom,omitempty"`
	ZoomStep         float64 `json:"zoomStep,omitempty"`
	MaxVelocity      float64 `json:"maxVelocity,omitempty"`
	RenderIntervalMS int64   `json:"renderIntervalMs,omitempty"`
	MinRegionSize    float64 `json:"minRegionSize,omitempty"`
}

func (o Options) Settings() Settings {
	return Settings{
		SaveDebounceMS:   o.SaveDebounce.Milliseconds(),
		DrawCooldownMS:   o.DrawCooldown.Milliseconds(),
		MinZoom:          o.MinZoom,
		MaxZoom:          o.MaxZoom,
		ZoomStep:         o.ZoomStep,
		MaxVelocity:      o.Stroke.MaxVelocity,
		RenderIntervalMS: o.Stroke.RenderInterval.Milliseconds(),
		MinRegionSize:    o.Tool.MinRegionSize,
	}
}

// Apply returns opts with every positive field of s set. A zoom range that
// would be empty is ignored.
func (s Settings) Apply(opts Options) Options {
	if s.SaveDebounceMS > 0 {
		opts.SaveDebounce = time.Duration(s.SaveDebounceMS) * time.Millisecond
	}
	if s.DrawCooldownMS > 0 {
		opts.DrawCooldown = time.Duration(s.DrawCooldownMS) * time.Millisecond
	}
	minZoom, maxZoom := opts.MinZoom, opts.MaxZoom
	if s.MinZoom > 0 {
		minZoom = s.MinZoom
	}
	if s.MaxZoom > 0 {
		maxZoom = s.MaxZoom
	}
	if minZoom <= maxZoom {
		opts.MinZoom, opts.MaxZoom = minZoom, maxZoom
	}
	if s.ZoomStep > 0 {
		opts.ZoomStep = s.ZoomStep
	}
	if s.MaxVelocity > 0 {
		opts.Stroke.MaxVelocity = s.MaxVelocity
	}
	if s.RenderIntervalMS > 0 {
		opts.Stroke.RenderInterval = time.Duration(s.RenderIntervalMS) * time.Millisecond
	}
	if s.MinRegionSize > 0 {
		opts.Tool.MinRegionSize = s.MinRegionSize
	}
	return opts
}
