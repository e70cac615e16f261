// Package gallery is the transition engine: it owns the current slide, runs
// at most one transition at a time and coordinates the loader, the render
// surface, the auto-advance scheduler and the lifecycle signals.
//
// The engine is single-threaded. Every change goes through Dispatch on the
// owning goroutine; other goroutines Post events, which Pump drains.
package gallery

import (
	"context"
	"errors"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/bus"
	"github.com/coreman2200/arcagallery/internal/diagnostics"
	"github.com/coreman2200/arcagallery/internal/effect"
	"github.com/coreman2200/arcagallery/internal/input"
	"github.com/coreman2200/arcagallery/internal/lifecycle"
	"github.com/coreman2200/arcagallery/internal/loader"
	"github.com/coreman2200/arcagallery/internal/render"
	"github.com/coreman2200/arcagallery/internal/sequence"
	"github.com/coreman2200/arcagallery/internal/slide"
	"github.com/coreman2200/arcagallery/internal/timer"
)

// Engine is one mounted gallery.
type Engine struct {
	opts Options
	bus  *bus.Bus
	seq  slide.Sequence
	fx   effect.Effect

	wheel *timer.Wheel
	scope *lifecycle.Scope
	sup   *lifecycle.Supervisor
	surf  *render.Surface
	ld    *loader.Loader
	sched *sequence.Scheduler

	mu    sync.Mutex
	inbox []Event

	ctx context.Context

	st      TransitionState
	raw     float64       // un-eased transition progress
	tStart  time.Duration // wheel time the transition began
	shown   int           // slide whose texture is on screen as "from"
	started bool          // enough textures arrived to render
	rebuilt bool          // slides were replaced; announce the first one
	mounted bool
	torn    bool
	reveal  time.Duration // since the last slide change

	pending  *deferral
	restoreH *lifecycle.Handle

	nextL     int
	listeners map[int]func(int)
}

type deferral struct {
	index int
	h     *lifecycle.Handle
}

var _ input.Sink = (*Engine)(nil)

// New builds an engine for seq on dev. A nil dev, or one that cannot
// compile the transition program, yields an engine in the Unsupported
// state that only shows the fallback notice.
func New(dev render.Device, seq slide.Sequence, opts Options) (*Engine, error) {
	if len(seq) == 0 {
		return nil, slide.ErrEmpty
	}
	opts = opts.withDefaults()
	e := &Engine{
		opts:      opts,
		bus:       opts.Bus,
		seq:       seq,
		wheel:     timer.New(),
		scope:     lifecycle.NewScope(),
		sup:       lifecycle.NewSupervisor(opts.MaxRestoreAttempts, opts.RestoreBackoff),
		shown:     -1,
		listeners: map[int]func(int){},
		st:        TransitionState{Phase: Idle},
	}
	fx, err := effect.New(opts.Effect, opts.Knobs)
	if err != nil {
		log.Warn().Err(err).Str("effect", opts.Effect).Msg("unknown effect, using default")
		fx, _ = effect.New("", opts.Knobs)
	}
	e.fx = fx

	surf, err := render.NewSurface(dev, fx)
	e.surf = surf
	if err != nil {
		e.sup.Health = render.Unsupported
		log.Warn().Err(err).Msg("gpu rendering unavailable, showing fallback")
		return e, nil
	}
	e.scope.Acquire(lifecycle.GPU, surf.Release)

	e.ld = loader.New(dev, opts.Fetcher, func(r loader.Result) { e.Post(Loaded{Result: r}) },
		loader.Options{Workers: opts.Workers, Timeout: opts.LoadTimeout})
	e.ld.OnRelease = surf.Forget
	e.scope.Acquire(lifecycle.GPU, e.ld.ReleaseAll)

	e.sched = sequence.NewScheduler(e.wheel, opts.Dwell, opts.Tick, sequence.Hooks{Advance: e.autoAdvance})
	e.scope.Acquire(lifecycle.Timer, e.sched.Stop)
	e.scope.Acquire(lifecycle.Loop, surf.Stop)
	return e, nil
}

// Mount starts loading every slide and subscribes to bus navigation.
func (e *Engine) Mount(ctx context.Context) {
	if e.mounted || e.torn {
		return
	}
	e.mounted = true
	if e.sup.Health == render.Unsupported {
		e.diag(diagnostics.Err, diagnostics.SurfaceUnsupported, "GPU rendering unavailable", nil)
		return
	}
	var cancel context.CancelFunc
	e.ctx, cancel = context.WithCancel(ctx)
	e.scope.Acquire(lifecycle.Observer, cancel)
	e.scope.Acquire(lifecycle.Observer, input.Listen(e.bus, e))
	e.ld.LoadAll(e.ctx, e.seq)
	log.Info().Int("count", len(e.seq)).Str("effect", e.fx.Name()).Msg("gallery mounted")
}

// Post queues ev for the next Pump. Safe from any goroutine.
func (e *Engine) Post(ev Event) {
	e.mu.Lock()
	e.inbox = append(e.inbox, ev)
	e.mu.Unlock()
}

// Pump dispatches queued events, then a Tick of dt when dt is positive.
func (e *Engine) Pump(dt time.Duration) {
	e.mu.Lock()
	evs := e.inbox
	e.inbox = nil
	e.mu.Unlock()
	for _, ev := range evs {
		e.Dispatch(ev)
	}
	if dt > 0 {
		e.Dispatch(Tick{DT: dt})
	}
}

// GoTo, GoToID and Step post navigation; they make Engine an input.Sink.
func (e *Engine) GoTo(index int)  { e.Post(GoTo{Index: index}) }
func (e *Engine) GoToID(id string) { e.Post(GoToID{ID: id}) }
func (e *Engine) Step(delta int)   { e.Post(Step{Delta: delta}) }

// Dispatch applies one event. Listeners invoked from here must not call
// Dispatch themselves; they may Post.
func (e *Engine) Dispatch(ev Event) {
	if e.torn {
		return
	}
	if e.sup.Health == render.Unsupported {
		if _, ok := ev.(Teardown); ok {
			e.teardown()
		}
		return
	}
	switch ev := ev.(type) {
	case GoTo:
		e.goTo(ev.Index)
	case GoToID:
		i := e.seq.IndexOf(ev.ID)
		if i < 0 {
			log.Debug().Str("id", ev.ID).Msg("navigation to unknown slide ignored")
			return
		}
		e.goTo(i)
	case Step:
		e.step(ev.Delta)
	case Tick:
		e.tick(ev.DT)
	case Resize:
		e.surf.Resize(ev.W, ev.H)
	case Loaded:
		e.loaded(ev.Result)
	case Visibility:
		e.sup.Visible = ev.Visible
	case Intersection:
		e.sup.Intersecting = ev.In
		e.surf.SetIntersecting(ev.In)
	case SurfaceLost:
		e.lost()
	case SurfaceRestored:
		e.tryRestore()
	case ReplaceSlides:
		e.replace(ev.Seq)
	case Teardown:
		e.teardown()
		return
	}
	e.reconcile()
}

func (e *Engine) goTo(i int) {
	switch {
	case i < 0 || i >= len(e.seq):
		log.Debug().Int("index", i).Msg("navigation target out of range")
		return
	case e.st.Phase == Transitioning:
		log.Debug().Int("index", i).Int("to", e.st.To).Msg("navigation dropped mid-transition")
		return
	case i == e.st.From:
		return
	case e.sup.Health != render.Healthy:
		log.Debug().Int("index", i).Stringer("health", e.sup.Health).Msg("navigation ignored while surface is down")
		return
	}
	switch e.ld.State(i) {
	case loader.Failed:
		log.Debug().Int("index", i).Msg("navigation to unavailable slide ignored")
		return
	case loader.Pending:
		e.deferTo(i)
		return
	}
	if !e.started {
		e.deferTo(i)
		return
	}
	e.begin(i)
}

func (e *Engine) begin(to int) {
	e.clearDeferral()
	e.st = TransitionState{From: e.st.From, To: to, Phase: Transitioning}
	e.raw = 0
	e.tStart = e.wheel.Now()
	e.sched.Stop()
	e.sched.Reset()
	log.Debug().Int("from", e.st.From).Int("to", to).Msg("transition started")
	e.trace()
}

func (e *Engine) complete() {
	to := e.st.To
	e.st = TransitionState{From: to, To: to, Phase: Idle}
	e.raw = 0
	e.shown = to
	e.reveal = 0
	e.sched.Reset()
	e.trace()

	s, _ := e.seq.At(to)
	log.Info().Int("index", to).Str("id", s.ID).Msg("slide changed")
	e.publish(to)
}

// publish tells listeners and the bus that slide i is now showing.
func (e *Engine) publish(to int) {
	s, _ := e.seq.At(to)
	if e.opts.OnSlideChange != nil {
		e.opts.OnSlideChange(to)
	}
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := e.listeners[id]; ok {
			fn(to)
		}
	}
	e.bus.Emit(bus.Changed, bus.ChangedMsg{Index: to, ID: s.ID, Count: len(e.seq)})
}

func (e *Engine) trace() {
	if e.opts.OnTransition != nil {
		e.opts.OnTransition(e.st)
	}
}

// deferTo remembers a navigation whose texture is not resident yet. Only the
// newest deferral is kept.
func (e *Engine) deferTo(i int) {
	e.clearDeferral()
	d := &deferral{index: i}
	t := e.wheel.After(e.opts.DeferWait, func() {
		if e.pending != d {
			return
		}
		e.clearDeferral()
		log.Warn().Int("slide", i).Dur("waited", e.opts.DeferWait).Msg("texture not ready, navigation dropped")
		e.diag(diagnostics.Warn, diagnostics.NavTimeout, "navigation dropped while waiting for a texture",
			map[string]any{"slide": i})
	})
	d.h = e.scope.Acquire(lifecycle.Timer, func() { t.Stop() })
	e.pending = d
	log.Debug().Int("slide", i).Msg("navigation deferred until texture loads")
}

func (e *Engine) clearDeferral() {
	if e.pending == nil {
		return
	}
	e.pending.h.Release()
	e.pending = nil
}

func (e *Engine) resolveDeferral() {
	d := e.pending
	if d == nil || !e.started {
		return
	}
	switch e.ld.State(d.index) {
	case loader.Ready:
		e.clearDeferral()
		e.goTo(d.index)
	case loader.Failed:
		e.clearDeferral()
		log.Debug().Int("slide", d.index).Msg("deferred navigation target failed to load")
	}
}

// neighbour is the next slide from i in direction dir that did not fail to
// load.
func (e *Engine) neighbour(i, dir int) (int, bool) {
	n := len(e.seq)
	for k := 1; k < n; k++ {
		j := ((i+dir*k)%n + n) % n
		if e.ld.State(j) != loader.Failed {
			return j, true
		}
	}
	return -1, false
}

func (e *Engine) autoAdvance() {
	if i, ok := e.neighbour(e.st.From, 1); ok {
		e.goTo(i)
	}
}

func (e *Engine) step(delta int) {
	if delta == 0 {
		return
	}
	dir, n := 1, delta
	if delta < 0 {
		dir, n = -1, -delta
	}
	i := e.st.From
	for ; n > 0; n-- {
		var ok bool
		if i, ok = e.neighbour(i, dir); !ok {
			return
		}
	}
	e.goTo(i)
}

func (e *Engine) tick(dt time.Duration) {
	before := e.wheel.Now()
	e.wheel.Advance(dt)
	e.reveal += dt
	if e.st.Phase != Transitioning || e.sup.Health != render.Healthy {
		return
	}
	if e.tStart > before {
		// began inside this tick, from a timer
		dt = e.wheel.Now() - e.tStart
	}
	e.raw += float64(dt) / float64(e.opts.Transition)
	if e.raw >= 1 {
		e.st.Progress = 1
		e.trace()
		e.complete()
		return
	}
	if p := sequence.Ease(e.opts.Ease, e.raw); p > e.st.Progress {
		e.st.Progress = p
	}
	e.trace()
}

func (e *Engine) loaded(r loader.Result) {
	state, ok, err := e.ld.Accept(r)
	if errors.Is(err, render.ErrSurfaceLost) {
		e.lost()
		return
	}
	if !ok {
		return
	}
	if state == loader.Failed {
		ev := map[string]any{"slide": r.Index, "id": r.ID}
		if r.Err != nil {
			ev["err"] = r.Err.Error()
		}
		e.diag(diagnostics.Warn, diagnostics.LoadFailed, "slide image failed to load", ev)
	}
	e.maybeStart()
	e.resolveDeferral()
}

// maybeStart begins rendering once the current slide settled and two
// textures (or every loadable one) are resident. It reports whether it
// started, in which case the first frame is already drawn.
func (e *Engine) maybeStart() bool {
	if e.started || e.sup.Health != render.Healthy {
		return false
	}
	if e.ld.State(e.st.From) == loader.Pending {
		return false
	}
	ready := e.ld.Ready()
	if ready < min(2, len(e.seq)) && !(ready > 0 && e.ld.Settled()) {
		return false
	}
	if e.ld.State(e.st.From) != loader.Ready {
		for i := range e.seq {
			if e.ld.State(i) == loader.Ready {
				e.st.From, e.st.To = i, i
				break
			}
		}
	}
	e.shown = e.st.From
	e.started = true
	e.reveal = 0
	log.Info().Int("ready", ready).Int("count", len(e.seq)).Int("index", e.shown).Msg("gallery rendering started")
	e.redraw()
	if e.rebuilt {
		e.rebuilt = false
		e.publish(e.shown)
	}
	return true
}

// Triple is what the render surface draws this frame.
func (e *Engine) Triple() render.Triple {
	var tr render.Triple
	if !e.started || e.ld == nil {
		return tr
	}
	if t, ok := e.ld.Texture(e.shown); ok {
		tr.From = t.Handle
	}
	if e.st.Phase == Transitioning {
		if t, ok := e.ld.Texture(e.st.To); ok {
			tr.To = t.Handle
			tr.Progress = float32(e.st.Progress)
		}
	}
	return tr
}

// RenderFrame is one render-loop tick, called by the host every display
// refresh.
func (e *Engine) RenderFrame() error {
	if e.torn || !e.started || e.sup.Health != render.Healthy {
		return nil
	}
	err := e.surf.Frame(e.Triple())
	if errors.Is(err, render.ErrSurfaceLost) {
		e.lost()
		e.reconcile()
		return nil
	}
	return err
}

func (e *Engine) redraw() {
	if !e.started || e.sup.Health != render.Healthy {
		return
	}
	if err := e.surf.Redraw(e.Triple()); errors.Is(err, render.ErrSurfaceLost) {
		e.lost()
	} else if err != nil {
		log.Warn().Err(err).Msg("redraw failed")
	}
}

func (e *Engine) lost() {
	if e.sup.Health != render.Healthy {
		return
	}
	e.surf.Lose()
	e.sup.Health = render.Lost
	log.Warn().Int("index", e.st.From).Msg("rendering surface lost, pausing")
	e.diag(diagnostics.Warn, diagnostics.SurfaceLost, "rendering surface lost", nil)
	e.scheduleRestore()
}

func (e *Engine) scheduleRestore() {
	e.cancelRestore()
	t := e.wheel.After(e.sup.NextDelay(), e.tryRestore)
	e.restoreH = e.scope.Acquire(lifecycle.Timer, func() { t.Stop() })
}

func (e *Engine) cancelRestore() {
	if e.restoreH != nil {
		e.restoreH.Release()
	}
	e.restoreH = nil
}

func (e *Engine) tryRestore() {
	if e.torn || e.sup.Health != render.Lost {
		return
	}
	e.cancelRestore()
	err := e.surf.Restore()
	if err == nil {
		if err = e.ld.Reupload(); err != nil {
			e.surf.Lose()
		}
	}
	if err != nil {
		if e.sup.RestoreFailed() {
			e.abandon(err)
			return
		}
		log.Warn().Err(err).Int("attempt", e.sup.Failures).Msg("surface restore failed, retrying")
		e.scheduleRestore()
		return
	}
	e.sup.RestoreSucceeded()
	e.sup.Health = render.Healthy
	log.Info().Int("textures", e.ld.LiveTextures()).Msg("rendering surface restored")
	e.diag(diagnostics.Info, diagnostics.SurfaceRestored, "rendering surface restored", nil)
	if !e.maybeStart() {
		e.redraw()
	}
	e.resolveDeferral()
	e.reconcile()
}

// abandon gives up on the GPU after repeated restore failures.
func (e *Engine) abandon(err error) {
	e.cancelRestore()
	e.clearDeferral()
	e.sched.Stop()
	e.ld.ReleaseAll()
	e.surf.Abandon()
	e.sup.Health = render.Unsupported
	log.Error().Err(err).Int("attempts", e.sup.Failures).Msg("surface could not be restored, showing fallback")
	e.diag(diagnostics.Err, diagnostics.SurfaceUnsupported, "rendering surface could not be restored",
		map[string]any{"attempts": e.sup.Failures})
}

func (e *Engine) replace(seq slide.Sequence) {
	if len(seq) == 0 {
		log.Warn().Msg("ignoring empty slide sequence")
		return
	}
	e.clearDeferral()
	e.sched.Stop()
	e.sched.Reset()
	e.seq = seq
	e.st = TransitionState{Phase: Idle}
	e.raw = 0
	e.shown = -1
	e.started = false
	e.rebuilt = true
	e.reveal = 0
	if !e.mounted {
		return
	}
	e.ld.LoadAll(e.ctx, seq)
	log.Info().Int("count", len(seq)).Msg("slides replaced, rebuilding")
}

func (e *Engine) teardown() {
	e.torn = true
	e.scope.Close()
	e.pending = nil
	e.restoreH = nil
	e.wheel.StopAll()
	e.mu.Lock()
	e.inbox = nil
	e.mu.Unlock()
	log.Info().Msg("gallery torn down")
}

// reconcile starts or stops the scheduler and the render loop from the
// current state. Start and Stop are idempotent so this runs after every
// event.
func (e *Engine) reconcile() {
	if e.torn || e.sup.Health == render.Unsupported {
		return
	}
	run := e.started && e.ld.Ready() >= 2 && e.st.Phase == Idle && e.sup.ShouldRun()
	if run {
		e.sched.Start()
	} else {
		e.sched.Stop()
	}
	if e.started && e.sup.Visible && e.sup.Health == render.Healthy {
		e.surf.Start()
	} else {
		e.surf.Stop()
	}
}

func (e *Engine) diag(sev diagnostics.Severity, code, summary string, ev map[string]any) {
	e.bus.Emit(bus.Diag, diagnostics.New(sev, code, summary, ev))
}

// OnSlideChange registers fn to run once per completed transition, and once
// for the first slide shown after ReplaceSlides.
func (e *Engine) OnSlideChange(fn func(index int)) (off func()) {
	e.nextL++
	id := e.nextL
	e.listeners[id] = fn
	h := e.scope.Acquire(lifecycle.Observer, func() { delete(e.listeners, id) })
	return h.Release
}

// State is the current transition state.
func (e *Engine) State() TransitionState { return e.st }

// Current is the active slide index.
func (e *Engine) Current() int { return e.st.From }

// Health of the rendering surface.
func (e *Engine) Health() render.Health { return e.sup.Health }

// Sequence is the active slide sequence.
func (e *Engine) Sequence() slide.Sequence { return e.seq }

// Effect is the transition effect in use.
func (e *Engine) Effect() effect.Effect { return e.fx }

// Surface exposes the render surface for host statistics.
func (e *Engine) Surface() *render.Surface { return e.surf }

// Sources are the decoded images behind the current triple, for software
// mirrors of the surface.
func (e *Engine) Sources() (from, to image.Image, progress float32) {
	if !e.started || e.ld == nil {
		return nil, nil, 0
	}
	from, _ = e.ld.Source(e.shown)
	if e.st.Phase == Transitioning {
		to, _ = e.ld.Source(e.st.To)
		progress = float32(e.st.Progress)
	}
	return from, to, progress
}

// Stats are instrumentation counters.
type Stats struct {
	PendingTimers int `json:"pending_timers"`
	LiveHandles   int `json:"live_handles"`
	LiveTextures  int `json:"live_textures"`
	Ready         int `json:"ready"`
}

func (e *Engine) Stats() Stats {
	s := Stats{PendingTimers: e.wheel.Pending(), LiveHandles: e.scope.Total()}
	if e.ld != nil {
		s.LiveTextures = e.ld.LiveTextures()
		s.Ready = e.ld.Ready()
	}
	return s
}
