// Package input turns pointer drags, indicator clicks, keys and bus
// requests into navigation calls on a Sink. It keeps no gallery state.
package input

import "math"

// Nav is the outcome of a gesture.
type Nav int

const (
	None Nav = iota
	Next
	Prev
)

func (n Nav) String() string {
	switch n {
	case Next:
		return "next"
	case Prev:
		return "prev"
	}
	return "none"
}

// DefaultThreshold is the horizontal drag distance, in pixels, that counts
// as a swipe.
const DefaultThreshold = 50

// Gesture recognises horizontal swipes from one pointer.
type Gesture struct {
	Threshold float64

	active         bool
	x0, y0, x1, y1 float64
}

// Down starts tracking at (x, y).
func (g *Gesture) Down(x, y float64) {
	g.active = true
	g.x0, g.y0, g.x1, g.y1 = x, y, x, y
}

// Move updates the last pointer position.
func (g *Gesture) Move(x, y float64) {
	if !g.active {
		return
	}
	g.x1, g.y1 = x, y
}

// Up ends tracking and classifies the drag. Dragging left reveals the next
// slide.
func (g *Gesture) Up(x, y float64) Nav {
	if !g.active {
		return None
	}
	g.Move(x, y)
	g.active = false
	dx, dy := g.x1-g.x0, g.y1-g.y0
	th := g.Threshold
	if th <= 0 {
		th = DefaultThreshold
	}
	if math.Abs(dx) <= th || math.Abs(dx) <= math.Abs(dy) {
		return None
	}
	if dx < 0 {
		return Next
	}
	return Prev
}

// Cancel drops the drag, as on pointer-cancel.
func (g *Gesture) Cancel() { g.active = false }

// Active reports whether a drag is in progress.
func (g *Gesture) Active() bool { return g.active }

// Distance is the total pointer travel of the current or last drag.
func (g *Gesture) Distance() float64 {
	return math.Hypot(g.x1-g.x0, g.y1-g.y0)
}
