package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/bus"
	"github.com/coreman2200/arcagallery/internal/config"
	diag "github.com/coreman2200/arcagallery/internal/diagnostics"
	"github.com/coreman2200/arcagallery/internal/effect"
	"github.com/coreman2200/arcagallery/internal/gallery"
	"github.com/coreman2200/arcagallery/internal/layout"
	"github.com/coreman2200/arcagallery/internal/mirror"
	"github.com/coreman2200/arcagallery/internal/render"
	"github.com/coreman2200/arcagallery/internal/slide"
	"github.com/coreman2200/arcagallery/internal/watch"
	"github.com/coreman2200/arcagallery/internal/ws"
)

// Core is everything a host drives: the engine plus the services around it.
// All Engine calls except Post happen on the host's goroutine.
type Core struct {
	Engine *gallery.Engine
	Bus    *bus.Bus
	State  *ws.State
	Mirror *mirror.Mirror

	watcher *watch.Manifest
	cancel  context.CancelFunc
}

// Options maps the file configuration onto engine options.
func Options(cfg *config.Config) gallery.Options {
	g := cfg.Gallery
	return gallery.Options{
		Mode:               gallery.Mode(g.Mode),
		Dwell:              g.Dwell,
		Tick:               g.Tick,
		Transition:         g.Transition,
		Ease:               g.Ease,
		DeferWait:          g.DeferWait,
		RevealDelay:        g.Reveal.Delay,
		RevealDuration:     g.Reveal.Duration,
		RevealStagger:      g.Reveal.Stagger,
		Effect:             cfg.Effect.Name,
		Knobs:              effect.Knobs(cfg.Effect.Knobs),
		MaxRestoreAttempts: cfg.Recovery.MaxAttempts,
		RestoreBackoff:     cfg.Recovery.Backoff,
		Workers:            cfg.Loader.Workers,
		LoadTimeout:        cfg.Loader.Timeout,
	}
}

// MirrorOptions maps the LED matrix section.
func MirrorOptions(m config.Mirror) mirror.Options {
	return mirror.Options{
		Layout: layout.Layout{
			Dim:   layout.Dim{X: max(1, m.Width), Y: max(1, m.Height)},
			Order: layout.Serpentine{XFlipEveryRow: m.XFlipEveryRow},
		},
		FPS:        m.FPS,
		Brightness: m.Brightness,
		Power:      mirror.Power{LimitAmps: m.Power.LimitAmps, WhiteCap: m.Power.WhiteCap},
	}
}

// InitCore loads the manifest, builds and mounts the engine on dev, and
// starts the watcher. b may be nil for bus.Default. tweak, if set, adjusts
// the options derived from cfg, e.g. to set a Fetcher.
func InitCore(ctx context.Context, cfg *config.Config, dev render.Device, b *bus.Bus, tweak func(*gallery.Options)) (*Core, error) {
	seq, err := slide.LoadManifest(cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", cfg.Manifest, err)
	}
	if b == nil {
		b = bus.Default
	}
	opts := Options(cfg)
	opts.Bus = b
	if tweak != nil {
		tweak(&opts)
	}

	eng, err := gallery.New(dev, seq, opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Core{Engine: eng, Bus: b, cancel: cancel}

	first := seq[0]
	c.State = ws.NewState(b, bus.ChangedMsg{Index: 0, ID: first.ID, Count: seq.Len()})

	c.Mirror = openMirror(cfg.Mirror)
	c.Mirror.OnFrame = c.State.PushFrame

	if cfg.Watch {
		w, err := watch.New(cfg.Manifest, 0, func(s slide.Sequence) {
			eng.Post(gallery.ReplaceSlides{Seq: s})
		})
		if err != nil {
			log.Warn().Err(err).Msg("manifest watcher disabled")
		} else {
			w.OnInvalid = func(err error) {
				b.Emit(bus.Diag, diag.New(diag.Warn, diag.ManifestInvalid, "manifest reload ignored",
					map[string]any{"path": cfg.Manifest, "error": err.Error()}))
			}
			c.watcher = w
			go w.Run(ctx)
		}
	}

	eng.Mount(ctx)
	return c, nil
}

// openMirror prefers the SPI strip, then the console emulator, then a
// preview-only mirror.
func openMirror(mc config.Mirror) *mirror.Mirror {
	mo := MirrorOptions(mc)
	if mc.Enabled {
		m, err := mirror.Open(mc.SPI.Dev, mc.SPI.SpeedHz, mo)
		if err == nil {
			return m
		}
		log.Warn().Err(err).Str("dev", mc.SPI.Dev).Bool("console", mc.Console).Msg("LED mirror unavailable")
	}
	if mc.Console {
		return mirror.New(mirror.Console(mo.Layout.Count()), mo)
	}
	return mirror.New(nil, mo)
}

// Step advances the engine by dt, draws one frame and feeds the mirror.
func (c *Core) Step(dt time.Duration) {
	c.Engine.Pump(dt)
	if err := c.Engine.RenderFrame(); err != nil {
		log.Debug().Err(err).Msg("render frame")
	}
	from, to, p := c.Engine.Sources()
	if err := c.Mirror.Present(dt, c.Engine.Effect(), from, to, p); err != nil {
		log.Warn().Err(err).Msg("mirror present")
	}
}

// Close tears everything down. The engine is torn down synchronously.
func (c *Core) Close() {
	c.cancel()
	if c.watcher != nil {
		_ = c.watcher.Close()
	}
	c.Engine.Dispatch(gallery.Teardown{})
	c.State.Close()
	if err := c.Mirror.Close(); err != nil {
		log.Warn().Err(err).Msg("mirror close")
	}
}
