package input

import (
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/arcagallery/internal/bus"
)

type recorder struct{ calls []string }

func (r *recorder) GoTo(i int)       { r.calls = append(r.calls, fmt.Sprintf("goto %d", i)) }
func (r *recorder) GoToID(id string) { r.calls = append(r.calls, "id "+id) }
func (r *recorder) Step(d int)       { r.calls = append(r.calls, fmt.Sprintf("step %+d", d)) }

func TestGestureClassification(t *testing.T) {
	cases := []struct {
		dx, dy float64
		want   Nav
	}{
		{-80, 10, Next},
		{80, -10, Prev},
		{-50, 0, None}, // threshold is exclusive
		{-60, 70, None},
		{10, 0, None},
	}
	for _, c := range cases {
		var g Gesture
		g.Down(100, 100)
		g.Move(100+c.dx/2, 100+c.dy/2)
		assert.Equal(t, c.want, g.Up(100+c.dx, 100+c.dy), "dx=%v dy=%v", c.dx, c.dy)
	}
}

func TestGestureCancel(t *testing.T) {
	var g Gesture
	g.Down(0, 0)
	g.Move(-200, 0)
	g.Cancel()
	assert.Equal(t, None, g.Up(-200, 0))
}

func TestStripHit(t *testing.T) {
	s := Strip{Rect: image.Rect(0, 100, 100, 110), Count: 4, Gap: 4}
	assert.Equal(t, 0, s.Hit(image.Pt(1, 105)))
	assert.Equal(t, 3, s.Hit(image.Pt(99, 105)))
	assert.Equal(t, -1, s.Hit(image.Pt(50, 50)))
	assert.Equal(t, 1, s.Hit(s.Cell(1).Min.Add(image.Pt(1, 1))))
	assert.Equal(t, image.Rectangle{}, s.Cell(4))
}

func TestControllerRoutesInput(t *testing.T) {
	r := &recorder{}
	c := NewController(r)
	c.Strip = Strip{Rect: image.Rect(0, 580, 800, 600), Count: 4}

	c.PointerDown(400, 300)
	c.PointerMove(300, 310)
	c.PointerUp(250, 310)

	c.PointerDown(10, 590)
	c.PointerUp(12, 591)

	c.PointerDown(700, 590)
	c.PointerUp(730, 590) // too far for a tap, too short for a swipe

	c.Key(KeyRight)
	c.Key(KeyHome)

	assert.Equal(t, []string{"step +1", "goto 0", "step +1", "goto 0"}, r.calls)
}

func TestListenForwardsBusRequests(t *testing.T) {
	b := bus.New()
	r := &recorder{}
	off := Listen(b, r)

	two := 2
	b.Emit(bus.Navigate, bus.NavigateMsg{Index: &two})
	b.Emit(bus.Navigate, &bus.NavigateMsg{ID: "dusk"})
	b.Emit(bus.Navigate, bus.NavigateMsg{Step: -1})
	b.Emit(bus.Navigate, 1)
	b.Emit(bus.Navigate, 3.5)
	off()
	b.Emit(bus.Navigate, 0)

	assert.Equal(t, []string{"goto 2", "id dusk", "step -1", "goto 1"}, r.calls)
	assert.Equal(t, 0, b.Total())
}
