package input

import (
	"image"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/bus"
)

// Sink receives navigation requests. The gallery engine implements it by
// posting events to its inbox, so calls are safe from any goroutine.
type Sink interface {
	GoTo(index int)
	GoToID(id string)
	Step(delta int)
}

// Key is a navigation key, independent of the windowing library.
type Key int

const (
	KeyNone Key = iota
	KeyLeft
	KeyRight
	KeyHome
)

// TapSlop is how far, in pixels, a pointer may travel and still count as a
// click on an indicator.
const TapSlop = 10

// Controller routes pointer and key input to a Sink.
type Controller struct {
	Sink    Sink
	Strip   Strip
	Gesture Gesture
}

func NewController(s Sink) *Controller {
	return &Controller{Sink: s, Gesture: Gesture{Threshold: DefaultThreshold}}
}

func (c *Controller) PointerDown(x, y float64) { c.Gesture.Down(x, y) }

func (c *Controller) PointerMove(x, y float64) { c.Gesture.Move(x, y) }

func (c *Controller) PointerCancel() { c.Gesture.Cancel() }

// PointerUp finishes a drag or a tap.
func (c *Controller) PointerUp(x, y float64) {
	if !c.Gesture.Active() {
		return
	}
	switch c.Gesture.Up(x, y) {
	case Next:
		c.Sink.Step(1)
		return
	case Prev:
		c.Sink.Step(-1)
		return
	}
	if c.Gesture.Distance() > TapSlop {
		return
	}
	if i := c.Strip.Hit(image.Pt(int(x), int(y))); i >= 0 {
		c.Sink.GoTo(i)
	}
}

// Key handles a pressed navigation key.
func (c *Controller) Key(k Key) {
	switch k {
	case KeyLeft:
		c.Sink.Step(-1)
	case KeyRight:
		c.Sink.Step(1)
	case KeyHome:
		c.Sink.GoTo(0)
	}
}

// Listen forwards bus navigation requests to s until off is called.
// Payloads may be a bus.NavigateMsg (or pointer to one), a bare index, or a
// bare id.
func Listen(b *bus.Bus, s Sink) (off func()) {
	return b.On(bus.Navigate, func(p any) {
		switch m := p.(type) {
		case bus.NavigateMsg:
			route(s, m)
		case *bus.NavigateMsg:
			if m != nil {
				route(s, *m)
			}
		case int:
			s.GoTo(m)
		case string:
			s.GoToID(m)
		default:
			log.Debug().Interface("payload", p).Msg("ignoring navigate payload")
		}
	})
}

func route(s Sink, m bus.NavigateMsg) {
	switch {
	case m.Index != nil:
		s.GoTo(*m.Index)
	case m.ID != "":
		s.GoToID(m.ID)
	case m.Step != 0:
		s.Step(m.Step)
	}
}
