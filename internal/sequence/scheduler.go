package sequence

import (
	"time"

	"github.com/coreman2200/arcagallery/internal/timer"
)

// State enumerates scheduler states.
type State string

const (
	Idle    State = "idle"    // never started, or reset while stopped
	Running State = "running" // ticking
	Paused  State = "paused"  // stopped with dwell progress kept
)

// Hooks are injected callbacks into the gallery.
type Hooks struct {
	// Advance fires when a full dwell has elapsed.
	Advance func()
	// Progress reports elapsed dwell in [0,1] after every tick and reset.
	Progress func(elapsed float64)
}

// Scheduler is the auto-advance timer. It accumulates dwell time in fixed
// ticks on a cooperative timer wheel. Start and Stop are idempotent since
// several supervisors request them independently.
type Scheduler struct {
	state State
	wheel *timer.Wheel
	tick  *timer.Timer

	dwell    time.Duration
	interval time.Duration
	accum    time.Duration

	hooks Hooks
}

// NewScheduler returns an idle scheduler. interval is the tick length
// (tens of milliseconds); dwell is the time a slide stays before advancing.
func NewScheduler(w *timer.Wheel, dwell, interval time.Duration, h Hooks) *Scheduler {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	if dwell < interval {
		dwell = interval
	}
	return &Scheduler{state: Idle, wheel: w, dwell: dwell, interval: interval, hooks: h}
}

// Start begins ticking; a running scheduler is left untouched.
func (s *Scheduler) Start() {
	if s.state == Running {
		return
	}
	s.state = Running
	s.tick = s.wheel.Every(s.interval, s.step)
}

// Stop pauses ticking and keeps the elapsed dwell; a stopped scheduler is
// left untouched.
func (s *Scheduler) Stop() {
	if s.state != Running {
		return
	}
	s.tick.Stop()
	s.tick = nil
	s.state = Paused
}

// Reset zeroes the elapsed dwell without changing the running state.
func (s *Scheduler) Reset() {
	s.accum = 0
	if s.state == Paused {
		s.state = Idle
	}
	s.report()
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool { return s.state == Running }

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Elapsed is the dwell fraction in [0,1].
func (s *Scheduler) Elapsed() float64 {
	return clamp01(float64(s.accum) / float64(s.dwell))
}

// Dwell returns the configured dwell duration.
func (s *Scheduler) Dwell() time.Duration { return s.dwell }

func (s *Scheduler) step() {
	s.accum += s.interval
	if s.accum < s.dwell {
		s.report()
		return
	}
	s.accum = 0
	s.report()
	if s.hooks.Advance != nil {
		s.hooks.Advance()
	}
}

func (s *Scheduler) report() {
	if s.hooks.Progress != nil {
		s.hooks.Progress(s.Elapsed())
	}
}
