package lifecycle

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/arcagallery/internal/render"
)

func TestCloseReleasesStageByStage(t *testing.T) {
	s := NewScope()
	var order []string
	rec := func(name string) func() { return func() { order = append(order, name) } }

	s.Acquire(Observer, rec("bus"))
	s.Acquire(GPU, rec("texture-a"))
	s.Acquire(Timer, rec("scheduler"))
	s.Acquire(Loop, rec("loop"))
	s.Acquire(GPU, rec("program"))
	s.Acquire(Timer, rec("defer"))
	assert.Equal(t, 6, s.Total())
	assert.Equal(t, 2, s.Live(GPU))

	s.Close()
	s.Close()
	assert.Equal(t, []string{"defer", "scheduler", "loop", "program", "texture-a", "bus"}, order)
	assert.Equal(t, 0, s.Total())
	assert.True(t, s.Closed())
}

func TestHandleReleaseIsIdempotent(t *testing.T) {
	s := NewScope()
	n := 0
	h := s.Acquire(Timer, func() { n++ })
	h.Release()
	h.Release()
	s.Close()
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, s.Live(Timer))
}

func TestAcquireAfterCloseReleasesImmediately(t *testing.T) {
	s := NewScope()
	s.Close()
	n := 0
	s.Acquire(GPU, func() { n++ })
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, s.Total())
}

func TestScopeCompactsReleasedHandles(t *testing.T) {
	s := NewScope()
	for i := 0; i < 500; i++ {
		s.Acquire(Timer, nil).Release()
	}
	kept := s.Acquire(Observer, nil)
	assert.LessOrEqual(t, len(s.handles), compactAt+1)
	assert.Equal(t, 1, s.Total())
	kept.Release()
}

func TestSupervisor(t *testing.T) {
	s := NewSupervisor(3, 100*time.Millisecond)
	assert.True(t, s.ShouldRun())
	s.Intersecting = false
	assert.False(t, s.ShouldRun())
	s.Intersecting = true
	s.Health = render.Lost
	assert.False(t, s.ShouldRun())

	assert.Equal(t, 100*time.Millisecond, s.NextDelay())
	assert.False(t, s.RestoreFailed())
	assert.Equal(t, 200*time.Millisecond, s.NextDelay())
	assert.False(t, s.RestoreFailed())
	assert.True(t, s.RestoreFailed())
	s.RestoreSucceeded()
	assert.Equal(t, 0, s.Failures)
}

func TestIntersectsAndEdge(t *testing.T) {
	vp := image.Rect(0, 0, 800, 600)
	assert.True(t, Intersects(image.Rect(700, 500, 900, 700), vp))
	assert.False(t, Intersects(image.Rect(800, 0, 900, 600), vp))

	var e Edge
	assert.True(t, e.Changed(true))
	assert.False(t, e.Changed(true))
	assert.True(t, e.Changed(false))
}
