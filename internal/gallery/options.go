package gallery

import (
	"time"

	"github.com/coreman2200/arcagallery/internal/bus"
	"github.com/coreman2200/arcagallery/internal/effect"
	"github.com/coreman2200/arcagallery/internal/loader"
)

// Mode is purely presentational; the state machine ignores it.
type Mode string

const (
	Full    Mode = "full"    // title, description and counter overlay
	Minimal Mode = "minimal" // image and navigation strip only
)

// Options configure an Engine. Zero fields take the DefaultOptions value,
// except RevealDelay and RevealStagger where zero means none and LoadTimeout
// where zero means no limit.
type Options struct {
	Mode Mode

	Dwell      time.Duration // time a slide stays before auto-advance
	Tick       time.Duration // scheduler tick
	Transition time.Duration // length of one transition
	Ease       string        // transition curve, see sequence.Ease
	DeferWait  time.Duration // how long goTo waits for a loading texture

	RevealDelay    time.Duration // title reveal delay after a slide change
	RevealDuration time.Duration
	RevealStagger  time.Duration // extra delay of the description

	Effect string
	Knobs  effect.Knobs

	MaxRestoreAttempts int
	RestoreBackoff     time.Duration

	Workers     int
	LoadTimeout time.Duration
	Fetcher     loader.Fetcher

	// Bus carries inbound navigation and outbound change events; nil means
	// bus.Default.
	Bus *bus.Bus

	OnSlideChange func(index int)
	// OnTransition observes every progress update, including the final 1.0
	// just before the state returns to idle.
	OnTransition func(TransitionState)
}

// DefaultOptions are the values used for unset fields.
func DefaultOptions() Options {
	return Options{
		Mode:               Full,
		Dwell:              6 * time.Second,
		Tick:               50 * time.Millisecond,
		Transition:         1200 * time.Millisecond,
		Ease:               "inOutCubic",
		DeferWait:          3 * time.Second,
		RevealDelay:        150 * time.Millisecond,
		RevealDuration:     600 * time.Millisecond,
		RevealStagger:      120 * time.Millisecond,
		Effect:             effect.Default,
		MaxRestoreAttempts: 3,
		RestoreBackoff:     250 * time.Millisecond,
		Workers:            4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	if o.Dwell <= 0 {
		o.Dwell = d.Dwell
	}
	if o.Tick <= 0 {
		o.Tick = d.Tick
	}
	if o.Transition <= 0 {
		o.Transition = d.Transition
	}
	if o.Ease == "" {
		o.Ease = d.Ease
	}
	if o.DeferWait <= 0 {
		o.DeferWait = d.DeferWait
	}
	if o.RevealDelay < 0 {
		o.RevealDelay = 0
	}
	if o.RevealDuration <= 0 {
		o.RevealDuration = d.RevealDuration
	}
	if o.RevealStagger < 0 {
		o.RevealStagger = 0
	}
	if o.Effect == "" {
		o.Effect = d.Effect
	}
	if o.MaxRestoreAttempts <= 0 {
		o.MaxRestoreAttempts = d.MaxRestoreAttempts
	}
	if o.RestoreBackoff <= 0 {
		o.RestoreBackoff = d.RestoreBackoff
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.Fetcher == nil {
		o.Fetcher = loader.DefaultFetcher()
	}
	if o.Bus == nil {
		o.Bus = bus.Default
	}
	return o
}
