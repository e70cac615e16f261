// Package loader fetches slide images, decodes them off the event loop and
// uploads them as textures on it. It is the only owner of texture handles.
package loader

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/arcagallery/internal/render"
	"github.com/coreman2200/arcagallery/internal/slide"
)

// State of one slide's texture.
type State int

const (
	Pending State = iota // loading, or decoded but not uploaded yet
	Ready
	Failed // permanently unavailable
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is what a worker posts back to the event loop.
type Result struct {
	Gen   uint64
	Index int
	ID    string
	Image image.Image
	Err   error
}

// Texture is a resident slide image with its natural size.
type Texture struct {
	Index  int
	Handle render.Texture
	Size   image.Point
}

type entry struct {
	state State
	src   image.Image // kept for re-upload after surface restoration
	tex   *Texture
}

// Options tune the worker pool.
type Options struct {
	Workers int
	Timeout time.Duration // per asset; zero means none
}

// Loader loads a whole sequence concurrently. Results are delivered through
// post, which must hand them to the event loop; Accept then uploads them.
type Loader struct {
	dev   render.Device
	fetch Fetcher
	post  func(Result)
	opts  Options

	// OnRelease is told about every texture handle given up.
	OnRelease func(render.Texture)

	gen     uint64
	cancel  context.CancelFunc
	entries []entry
	live    int
}

// New returns an idle loader.
func New(dev render.Device, f Fetcher, post func(Result), opts Options) *Loader {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Loader{dev: dev, fetch: f, post: post, opts: opts}
}

// LoadAll releases whatever is loaded and starts loading seq, in sequence
// order, at most Workers at a time.
func (l *Loader) LoadAll(ctx context.Context, seq slide.Sequence) {
	l.ReleaseAll()
	l.entries = make([]entry, len(seq))
	ctx, l.cancel = context.WithCancel(ctx)
	gen := l.gen

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	go func() {
		for i, s := range seq {
			i, s := i, s
			g.Go(func() error {
				img, err := l.fetchOne(gctx, s)
				l.post(Result{Gen: gen, Index: i, ID: s.ID, Image: img, Err: err})
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (l *Loader) fetchOne(ctx context.Context, s slide.Slide) (image.Image, error) {
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}
	data, err := l.fetch.Fetch(ctx, s.MediaRef)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Accept applies a worker result on the event loop. It reports false for
// results of a released generation, which are discarded without upload.
// A render.ErrSurfaceLost error means the decoded image is kept pending for
// Reupload and the caller should treat the surface as lost.
func (l *Loader) Accept(r Result) (State, bool, error) {
	if r.Gen != l.gen || r.Index < 0 || r.Index >= len(l.entries) {
		log.Debug().Int("slide", r.Index).Str("id", r.ID).Msg("discarding stale texture load")
		return Pending, false, nil
	}
	e := &l.entries[r.Index]
	if e.state != Pending {
		return e.state, false, nil
	}
	if r.Err != nil {
		e.state = Failed
		log.Warn().Err(r.Err).Int("slide", r.Index).Str("id", r.ID).Msg("texture load failed")
		return Failed, true, nil
	}
	e.src = r.Image
	if err := l.upload(r.Index); err != nil {
		if errors.Is(err, render.ErrSurfaceLost) {
			log.Debug().Int("slide", r.Index).Str("id", r.ID).Msg("texture upload hit a lost surface")
			return Pending, true, err
		}
		e.state = Failed
		e.src = nil
		log.Warn().Err(err).Int("slide", r.Index).Str("id", r.ID).Msg("texture upload failed")
		return Failed, true, nil
	}
	return Ready, true, nil
}

func (l *Loader) upload(i int) error {
	e := &l.entries[i]
	h, err := l.dev.NewTexture(e.src)
	if err != nil {
		return err
	}
	e.tex = &Texture{Index: i, Handle: h, Size: e.src.Bounds().Size()}
	e.state = Ready
	l.live++
	return nil
}

func (l *Loader) drop(e *entry) {
	if e.tex == nil {
		return
	}
	e.tex.Handle.Dispose()
	if l.OnRelease != nil {
		l.OnRelease(e.tex.Handle)
	}
	e.tex = nil
	l.live--
}

// Reupload recreates every texture from its decoded source, after the
// rendering surface came back. Old handles are disposed first.
func (l *Loader) Reupload() error {
	for i := range l.entries {
		e := &l.entries[i]
		if e.src == nil {
			continue
		}
		l.drop(e)
		if err := l.upload(i); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseAll disposes every texture and orphans in-flight loads. Safe to
// call at any time, any number of times.
func (l *Loader) ReleaseAll() {
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	for i := range l.entries {
		l.drop(&l.entries[i])
		l.entries[i].src = nil
	}
	l.entries = nil
}

// Len is the length of the loading sequence.
func (l *Loader) Len() int { return len(l.entries) }

// State of slide i; out of range reads as Failed.
func (l *Loader) State(i int) State {
	if i < 0 || i >= len(l.entries) {
		return Failed
	}
	return l.entries[i].state
}

// Texture returns the resident texture of slide i.
func (l *Loader) Texture(i int) (*Texture, bool) {
	if i < 0 || i >= len(l.entries) || l.entries[i].tex == nil {
		return nil, false
	}
	return l.entries[i].tex, true
}

// Source returns the decoded image of slide i.
func (l *Loader) Source(i int) (image.Image, bool) {
	if i < 0 || i >= len(l.entries) || l.entries[i].src == nil {
		return nil, false
	}
	return l.entries[i].src, true
}

// Ready counts resident textures.
func (l *Loader) Ready() int {
	n := 0
	for i := range l.entries {
		if l.entries[i].state == Ready {
			n++
		}
	}
	return n
}

// Settled reports whether no slide is still pending.
func (l *Loader) Settled() bool {
	for i := range l.entries {
		if l.entries[i].state == Pending {
			return false
		}
	}
	return true
}

// LiveTextures is the number of handles the loader holds.
func (l *Loader) LiveTextures() int { return l.live }
