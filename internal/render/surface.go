// Package render owns the GPU surface: one device, one transition program
// and the render loop that draws the gallery's (from, to, progress) triple.
package render

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/effect"
)

// Surface draws the current transition through a Device. The loop runs once
// started but only issues draw calls while the gallery intersects the
// viewport.
type Surface struct {
	dev  Device
	fx   effect.Effect
	prog Program

	health       Health
	running      bool
	resume       bool // loop state captured at loss
	intersecting bool

	size image.Point
	fits map[Texture]Fit

	// metrics
	Stats struct {
		Frames  int // loop ticks while running
		Draws   int
		Skipped int // ticks while not intersecting
		LastMS  float64
	}
}

// NewSurface compiles the program for fx. When that fails the surface is
// returned anyway, marked Unsupported, together with an error wrapping
// ErrUnsupported.
func NewSurface(dev Device, fx effect.Effect) (*Surface, error) {
	s := &Surface{dev: dev, fx: fx, intersecting: true, fits: map[Texture]Fit{}}
	if dev == nil {
		s.health = Unsupported
		return s, ErrUnsupported
	}
	p, err := dev.NewProgram(fx)
	if err != nil {
		s.health = Unsupported
		return s, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	s.prog = p
	return s, nil
}

func (s *Surface) Health() Health { return s.health }

func (s *Surface) Effect() effect.Effect { return s.fx }

// Start the render loop. Idempotent.
func (s *Surface) Start() {
	if s.health != Healthy {
		return
	}
	s.running = true
}

// Stop the render loop. Idempotent.
func (s *Surface) Stop() { s.running = false }

func (s *Surface) Running() bool { return s.running }

// SetIntersecting gates draw calls on viewport intersection.
func (s *Surface) SetIntersecting(in bool) { s.intersecting = in }

// Size is the surface size in pixels.
func (s *Surface) Size() image.Point { return s.size }

// Resize recomputes the sampling fit of every known texture.
func (s *Surface) Resize(w, h int) {
	sz := image.Pt(w, h)
	if sz == s.size {
		return
	}
	s.size = sz
	for t := range s.fits {
		s.fits[t] = Cover(t.Size(), sz)
	}
}

// Fit returns the cached cover fit of t for the current size.
func (s *Surface) Fit(t Texture) Fit {
	if t == nil {
		return Fit{Scale: 1}
	}
	f, ok := s.fits[t]
	if !ok {
		f = Cover(t.Size(), s.size)
		s.fits[t] = f
	}
	return f
}

// Forget drops the cached fit of a released texture.
func (s *Surface) Forget(t Texture) { delete(s.fits, t) }

// Frame is one render-loop tick.
func (s *Surface) Frame(tr Triple) error {
	if !s.running || s.health != Healthy {
		return nil
	}
	s.Stats.Frames++
	if !s.intersecting {
		s.Stats.Skipped++
		return nil
	}
	return s.draw(tr)
}

// Redraw draws once regardless of the loop state; used right after
// restoration.
func (s *Surface) Redraw(tr Triple) error {
	if s.health != Healthy {
		return nil
	}
	return s.draw(tr)
}

func (s *Surface) draw(tr Triple) error {
	if tr.From == nil || s.size.X == 0 || s.size.Y == 0 {
		return nil
	}
	to := tr.To
	if to == nil {
		to = tr.From
	}
	start := time.Now()
	err := s.dev.Draw(DrawCall{
		Program:  s.prog,
		Effect:   s.fx,
		From:     tr.From,
		To:       to,
		FromFit:  s.Fit(tr.From),
		ToFit:    s.Fit(to),
		Progress: tr.Progress,
		Size:     s.size,
	})
	if err != nil {
		if errors.Is(err, ErrSurfaceLost) {
			s.Lose()
		}
		return err
	}
	s.Stats.Draws++
	s.Stats.LastMS = float64(time.Since(start).Microseconds()) / 1000.0
	return nil
}

// Lose cancels the loop and marks the surface lost. The device and program
// are not touched afterwards.
func (s *Surface) Lose() {
	if s.health != Healthy {
		return
	}
	s.resume = s.running
	s.running = false
	s.health = Lost
	s.prog = nil
	s.fits = map[Texture]Fit{}
	log.Warn().Msg("render surface lost")
}

// Restore recompiles the program. On success the loop resumes if it was
// running at loss time; the caller re-uploads textures and redraws.
func (s *Surface) Restore() error {
	if s.health != Lost {
		return nil
	}
	p, err := s.dev.NewProgram(s.fx)
	if err != nil {
		return err
	}
	s.prog = p
	s.health = Healthy
	s.running = s.resume
	s.resume = false
	log.Info().Bool("loop", s.running).Msg("render surface restored")
	return nil
}

// Abandon gives up on the device; the gallery shows its static fallback.
func (s *Surface) Abandon() {
	s.running = false
	s.resume = false
	s.health = Unsupported
	if s.prog != nil {
		s.prog.Dispose()
		s.prog = nil
	}
}

// Release disposes the program. Safe to call more than once.
func (s *Surface) Release() {
	s.running = false
	if s.prog != nil {
		s.prog.Dispose()
		s.prog = nil
	}
	s.fits = map[Texture]Fit{}
}
