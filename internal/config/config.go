package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Window struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Title      string `yaml:"title"`
	Fullscreen bool   `yaml:"fullscreen"`
	// PauseUnfocused treats an unfocused window as scrolled out of view.
	PauseUnfocused bool `yaml:"pause_unfocused"`
}

type Gallery struct {
	Mode       string        `yaml:"mode"` // "full" | "minimal"
	Dwell      time.Duration `yaml:"dwell"`
	Tick       time.Duration `yaml:"tick"`
	Transition time.Duration `yaml:"transition"`
	Ease       string        `yaml:"ease"`
	DeferWait  time.Duration `yaml:"defer_wait"`
	Reveal     Reveal        `yaml:"reveal"`
}

type Reveal struct {
	Delay    time.Duration `yaml:"delay"`
	Duration time.Duration `yaml:"duration"`
	Stagger  time.Duration `yaml:"stagger"`
}

type Effect struct {
	Name  string             `yaml:"name"` // fade | ripple | wipe | displace
	Knobs map[string]float64 `yaml:"knobs,omitempty"`
}

type Recovery struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

type Loader struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

type PowerCfg struct {
	LimitAmps float64 `yaml:"limit_amps"`
	WhiteCap  float64 `yaml:"white_cap"`
}

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0, empty for the first port
	SpeedHz int    `yaml:"speed_hz"` // e.g. 2400000
}

// Mirror drives an LED matrix with a low-resolution copy of the gallery.
type Mirror struct {
	Enabled       bool     `yaml:"enabled"`
	Console       bool     `yaml:"console"` // print the strip on the terminal when SPI is off or missing
	Width         int      `yaml:"width"`
	Height        int      `yaml:"height"`
	FPS           int      `yaml:"fps"`
	Brightness    float64  `yaml:"brightness"`
	XFlipEveryRow bool     `yaml:"x_flip_every_row"`
	Power         PowerCfg `yaml:"power"`
	SPI           SPI      `yaml:"spi,omitempty"`
}

type Config struct {
	Manifest string `yaml:"manifest"`
	Addr     string `yaml:"addr"`
	Watch    bool   `yaml:"watch"`

	Window   Window   `yaml:"window"`
	Gallery  Gallery  `yaml:"gallery"`
	Effect   Effect   `yaml:"effect"`
	Recovery Recovery `yaml:"recovery"`
	Loader   Loader   `yaml:"loader"`
	Mirror   Mirror   `yaml:"mirror"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Manifest: "slides.yaml",
		Addr:     ":8080",
		Watch:    true,
		Window:   Window{Width: 1280, Height: 720, Title: "arcagallery"},
		Gallery: Gallery{
			Mode:       "full",
			Dwell:      6 * time.Second,
			Tick:       50 * time.Millisecond,
			Transition: 1200 * time.Millisecond,
			Ease:       "inOutCubic",
			DeferWait:  3 * time.Second,
			Reveal: Reveal{
				Delay:    150 * time.Millisecond,
				Duration: 600 * time.Millisecond,
				Stagger:  120 * time.Millisecond,
			},
		},
		Effect:   Effect{Name: "displace"},
		Recovery: Recovery{MaxAttempts: 3, Backoff: 250 * time.Millisecond},
		Loader:   Loader{Workers: 4, Timeout: 20 * time.Second},
		Mirror: Mirror{
			Width: 16, Height: 16, FPS: 30, Brightness: 0.5,
			XFlipEveryRow: true,
			Power:         PowerCfg{LimitAmps: 4, WhiteCap: 0.85},
			SPI:           SPI{SpeedHz: 2400000},
		},
	}
}

// Load reads path over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
