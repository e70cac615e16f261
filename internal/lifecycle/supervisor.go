package lifecycle

import (
	"image"
	"time"

	"github.com/coreman2200/arcagallery/internal/render"
)

// Supervisor composes the platform signals that gate the scheduler and
// the render loop: visibility, viewport intersection and surface health.
type Supervisor struct {
	Visible      bool
	Intersecting bool
	Health       render.Health

	// restore bookkeeping
	Failures    int
	MaxAttempts int
	Backoff     time.Duration
}

// NewSupervisor starts out visible, intersecting and healthy.
func NewSupervisor(maxAttempts int, backoff time.Duration) *Supervisor {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	return &Supervisor{Visible: true, Intersecting: true, MaxAttempts: maxAttempts, Backoff: backoff}
}

// ShouldRun reports whether the platform allows animation.
func (s *Supervisor) ShouldRun() bool {
	return s.Visible && s.Intersecting && s.Health == render.Healthy
}

// NextDelay is the wait before the next restore attempt: the backoff doubled
// per failure so far.
func (s *Supervisor) NextDelay() time.Duration {
	return s.Backoff << min(s.Failures, 6)
}

// RestoreFailed records a failed attempt and reports whether to give up.
func (s *Supervisor) RestoreFailed() (giveUp bool) {
	s.Failures++
	return s.Failures >= s.MaxAttempts
}

// RestoreSucceeded clears the failure count.
func (s *Supervisor) RestoreSucceeded() { s.Failures = 0 }

// Intersects reports whether the gallery rectangle overlaps the viewport by
// at least one pixel.
func Intersects(gallery, viewport image.Rectangle) bool {
	return gallery.Overlaps(viewport)
}

// Edge remembers the last value of a polled boolean so changes are reported
// once. The zero Edge reports the first observation as a change.
type Edge struct {
	seen bool
	last bool
}

// Changed records v and reports whether it differs from the previous value.
func (e *Edge) Changed(v bool) bool {
	if e.seen && e.last == v {
		return false
	}
	e.seen, e.last = true, v
	return true
}
