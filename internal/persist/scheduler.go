// Package persist schedules debounced saves and decides how externally
// arriving content is reconciled with local state.
package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inkboard/inkboard/internal/document"
)

const DefaultDebounce = time.Second

type Status string

const (
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// ErrDeferred may be returned by a SaveFunc that cannot run yet, e.g. while
// a gesture is in progress. The save is rescheduled for another window.
var ErrDeferred = errors.New("save deferred")

type SaveFunc func(ctx context.Context) error

type SchedulerConfig struct {
	// Name identifies the scheduler in logs.
	Name     string
	Delay    time.Duration
	Clock    Clock
	Logger   *slog.Logger
	OnStatus func(Status)
}

// Scheduler coalesces Schedule calls within Delay into one save. Failed saves
// are reported and not retried; the next Schedule starts afresh. Saves never
// overlap.
type Scheduler struct {
	cfg  SchedulerConfig
	save SaveFunc

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	pending bool
	skip    *document.Viewport
	lastErr error

	saveMu sync.Mutex
}

func NewScheduler(cfg SchedulerConfig, save SaveFunc) *Scheduler {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDebounce
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{cfg: cfg, save: save}
}

// Schedule (re)starts the debounce window and reports StatusSaving.
func (s *Scheduler) Schedule() {
	s.arm()
	s.report(StatusSaving)
}

func (s *Scheduler) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending = true
	s.timer = s.cfg.Clock.AfterFunc(s.cfg.Delay, func() { s.fire(gen) })
}

// ArmViewportSkip suppresses the next ScheduleViewport call if it carries
// exactly v.
func (s *Scheduler) ArmViewportSkip(v document.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skip = &v
}

// ScheduleViewport schedules a save for a viewport change unless an armed
// skip matches. The arm is consumed either way. It reports whether a save was
// scheduled.
func (s *Scheduler) ScheduleViewport(v document.Viewport) bool {
	s.mu.Lock()
	skip := s.skip
	s.skip = nil
	s.mu.Unlock()
	if skip != nil && *skip == v {
		s.cfg.Logger.Debug("skip viewport save", "scheduler", s.cfg.Name)
		return false
	}
	s.Schedule()
	return true
}

func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Cancel drops a pending save.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.pending = false
}

// Flush runs a pending save now and returns its error.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return nil
	}
	s.stopLocked()
	s.mu.Unlock()
	return s.run(ctx, false)
}

// Settle flushes a pending save, waits for one already running and returns
// the outcome of the most recent save. A failed save stays reported here
// until a later one succeeds.
func (s *Scheduler) Settle(ctx context.Context) error {
	s.Flush(ctx)
	s.saveMu.Lock()
	s.saveMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()
	s.run(context.Background(), true)
}

func (s *Scheduler) run(ctx context.Context, mayDefer bool) error {
	s.saveMu.Lock()
	err := s.save(ctx)
	deferred := errors.Is(err, ErrDeferred) && mayDefer
	if !deferred {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
	}
	s.saveMu.Unlock()

	switch {
	case err == nil:
		s.report(StatusSaved)
	case deferred:
		s.cfg.Logger.Debug("defer save", "scheduler", s.cfg.Name)
		s.arm()
		return nil
	default:
		s.cfg.Logger.Error("save", "scheduler", s.cfg.Name, "error", err)
		s.report(StatusError)
	}
	return err
}

func (s *Scheduler) report(st Status) {
	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(st)
	}
}
