package gallery

import (
	"time"

	"github.com/coreman2200/arcagallery/internal/loader"
	"github.com/coreman2200/arcagallery/internal/slide"
)

// Event is anything the engine reacts to. Every state change goes through
// Engine.Dispatch with one of these.
type Event interface{ event() }

type (
	// GoTo requests a transition to a slide index.
	GoTo struct{ Index int }
	// GoToID requests a transition to the slide with an id.
	GoToID struct{ ID string }
	// Step moves Delta presentable slides forward or back.
	Step struct{ Delta int }
	// Tick advances timers and the running transition.
	Tick struct{ DT time.Duration }
	// Resize reports the surface's own size in pixels.
	Resize struct{ W, H int }
	// Loaded carries a finished load, successful or not.
	Loaded struct{ Result loader.Result }
	// Visibility reports whether the window is shown and focused.
	Visibility struct{ Visible bool }
	// Intersection reports whether the gallery overlaps the viewport.
	Intersection struct{ In bool }
	// SurfaceLost reports that the GPU context went away.
	SurfaceLost struct{}
	// SurfaceRestored reports that the GPU context is usable again.
	SurfaceRestored struct{}
	// ReplaceSlides swaps the sequence and rebuilds every GPU resource.
	ReplaceSlides struct{ Seq slide.Sequence }
	// Teardown releases everything. The engine ignores all later events.
	Teardown struct{}
)

func (GoTo) event()            {}
func (GoToID) event()          {}
func (Step) event()            {}
func (Tick) event()            {}
func (Resize) event()          {}
func (Loaded) event()          {}
func (Visibility) event()      {}
func (Intersection) event()    {}
func (SurfaceLost) event()     {}
func (SurfaceRestored) event() {}
func (ReplaceSlides) event()   {}
func (Teardown) event()        {}

// Phase of the transition state machine.
type Phase string

const (
	Idle          Phase = "idle"
	Transitioning Phase = "transitioning"
)

// TransitionState is the single transition the engine tracks. To becomes
// the current slide only once Progress reached 1 and Phase is back to Idle.
type TransitionState struct {
	From     int     `json:"from"`
	To       int     `json:"to"`
	Progress float64 `json:"progress"`
	Phase    Phase   `json:"phase"`
}
