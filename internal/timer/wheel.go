// Package timer provides cooperative one-shot and interval timers that fire
// only when the owning loop advances the wheel. Everything runs on the
// caller's goroutine; there is no background ticking.
package timer

import "time"

// Wheel holds the pending timers of one event loop.
type Wheel struct {
	now    time.Duration
	seq    uint64
	timers []*Timer
}

// Timer is a handle returned by After and Every.
type Timer struct {
	w       *Wheel
	id      uint64
	due     time.Duration
	every   time.Duration
	fn      func()
	stopped bool
}

// New returns an empty wheel at time zero.
func New() *Wheel { return &Wheel{} }

// Now is the wheel's virtual time: the sum of every Advance so far.
func (w *Wheel) Now() time.Duration { return w.now }

// After runs fn once, d after the current virtual time.
func (w *Wheel) After(d time.Duration, fn func()) *Timer {
	return w.add(d, 0, fn)
}

// Every runs fn each time d elapses until the timer is stopped.
// A non-positive interval degrades to a one-shot timer.
func (w *Wheel) Every(d time.Duration, fn func()) *Timer {
	if d <= 0 {
		return w.add(0, 0, fn)
	}
	return w.add(d, d, fn)
}

func (w *Wheel) add(d, every time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	w.seq++
	t := &Timer{w: w, id: w.seq, due: w.now + d, every: every, fn: fn}
	w.timers = append(w.timers, t)
	return t
}

// Stop cancels the timer. It reports whether the timer was still pending.
// Stopping from inside the timer's own callback is allowed.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped {
		return false
	}
	t.stopped = true
	t.w.remove(t)
	return true
}

// Active reports whether the timer will still fire.
func (t *Timer) Active() bool { return t != nil && !t.stopped }

func (w *Wheel) remove(t *Timer) {
	for i, x := range w.timers {
		if x == t {
			w.timers = append(w.timers[:i], w.timers[i+1:]...)
			return
		}
	}
}

// Advance moves virtual time forward by dt, firing due timers in due order
// (ties in creation order). Callbacks may add or stop timers.
func (w *Wheel) Advance(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	target := w.now + dt
	for {
		t := w.next(target)
		if t == nil {
			break
		}
		w.now = t.due
		if t.every > 0 {
			t.due += t.every
		} else {
			t.stopped = true
			w.remove(t)
		}
		t.fn()
	}
	w.now = target
}

func (w *Wheel) next(limit time.Duration) *Timer {
	var best *Timer
	for _, t := range w.timers {
		if t.due > limit {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.id < best.id) {
			best = t
		}
	}
	return best
}

// Pending is the number of timers that have not fired or been stopped.
func (w *Wheel) Pending() int { return len(w.timers) }

// StopAll cancels every pending timer.
func (w *Wheel) StopAll() {
	for _, t := range w.timers {
		t.stopped = true
	}
	w.timers = nil
}
