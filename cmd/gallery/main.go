package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/app"
	"github.com/coreman2200/arcagallery/internal/bus"
	"github.com/coreman2200/arcagallery/internal/config"
	"github.com/coreman2200/arcagallery/internal/host"
	"github.com/coreman2200/arcagallery/internal/render/ebitengpu"
)

func main() {
	// ---- Flags (override config.yaml where given) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		manifest   = flag.String("manifest", "", "slide manifest, overrides config")
		addr       = flag.String("addr", "", "HTTP listen address, overrides config")
		effectName = flag.String("effect", "", "transition effect: fade | ripple | wipe | displace")
		minimal    = flag.Bool("minimal", false, "hide title, description and counter")
		fullscreen = flag.Bool("fullscreen", false, "start fullscreen")
		mirrorOn   = flag.Bool("mirror", false, "drive the LED matrix mirror over SPI")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *manifest != "" {
		cfg.Manifest = *manifest
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *effectName != "" {
		cfg.Effect.Name = *effectName
	}
	if *minimal {
		cfg.Gallery.Mode = "minimal"
	}
	if *fullscreen {
		cfg.Window.Fullscreen = true
	}
	if *mirrorOn {
		cfg.Mirror.Enabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Core ----
	dev := ebitengpu.New()
	core, err := app.InitCore(ctx, cfg, dev, bus.Default, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("gallery init failed")
	}
	defer core.Close()

	// ---- HTTP ----
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      withCORS(core.State.Mux()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()
	defer srv.Close()

	// ---- Window ----
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Window.Fullscreen)
	ebiten.SetRunnableOnUnfocused(true)

	g := host.NewGame(ctx, core, dev, cfg.Window.PauseUnfocused)
	if err := ebiten.RunGame(g); err != nil {
		log.Error().Err(err).Msg("window closed with error")
	}
	log.Info().Msg("shutting down")
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
