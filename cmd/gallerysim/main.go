package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/app"
	"github.com/coreman2200/arcagallery/internal/bus"
	"github.com/coreman2200/arcagallery/internal/config"
	"github.com/coreman2200/arcagallery/internal/gallery"
	"github.com/coreman2200/arcagallery/internal/render/soft"
)

// gallerysim runs the gallery headless on the CPU device and logs what it
// does. With -out it also writes a PNG per completed transition.
func main() {
	var (
		configPath = flag.String("config", "", "optional config.yaml")
		manifest   = flag.String("manifest", "slides.yaml", "slide manifest")
		effectName = flag.String("effect", "", "transition effect")
		fps        = flag.Int("fps", 30, "simulation frames per second")
		width      = flag.Int("w", 320, "surface width")
		height     = flag.Int("h", 180, "surface height")
		duration   = flag.Duration("for", 30*time.Second, "how long to run")
		outDir     = flag.String("out", "", "directory for PNG snapshots")
		leds       = flag.Bool("leds", false, "print the LED mirror on the terminal")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		cfg = c
	}
	cfg.Manifest = *manifest
	if *effectName != "" {
		cfg.Effect.Name = *effectName
	}
	if *leds {
		cfg.Mirror.Console = true
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			log.Fatal().Err(err).Msg("out dir")
		}
	}

	dev := soft.New(*width, *height)
	b := bus.New()
	core, err := app.InitCore(context.Background(), cfg, dev, b, func(o *gallery.Options) {
		o.OnTransition = func(s gallery.TransitionState) {
			log.Debug().Int("from", s.From).Int("to", s.To).Float64("p", s.Progress).Msg("transition")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer core.Close()

	shots := 0
	b.On(bus.Changed, func(p any) {
		m := p.(bus.ChangedMsg)
		log.Info().Int("index", m.Index).Str("id", m.ID).Int("count", m.Count).Msg("slide changed")
		if *outDir == "" {
			return
		}
		// the frame on the target is the last drawn, progress 1
		path := filepath.Join(*outDir, fmt.Sprintf("%03d_%s.png", shots, m.ID))
		shots++
		if err := snapshot(path, dev); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("snapshot")
		}
	})
	b.On(bus.Diag, func(p any) { log.Warn().Interface("diag", p).Msg("diagnostic") })

	core.Engine.Post(gallery.Resize{W: *width, H: *height})
	dt := time.Second / time.Duration(max(1, *fps))
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	deadline := time.After(*duration)
	for {
		select {
		case <-ticker.C:
			core.Step(dt)
		case <-deadline:
			st := core.Engine.Stats()
			log.Info().
				Int("frames", core.Engine.Surface().Stats.Frames).
				Int("draws", dev.Draws).
				Int("textures", st.LiveTextures).
				Int("timers", st.PendingTimers).
				Msg("done")
			return
		}
	}
}

func snapshot(path string, dev *soft.Device) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, dev.Target)
}
