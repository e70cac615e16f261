// Package mirror shows a low-resolution copy of the gallery on an
// addressable LED matrix. Frames are composited on the CPU with the same
// effect functions the GPU program runs.
package mirror

import (
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/coreman2200/arcagallery/internal/effect"
	"github.com/coreman2200/arcagallery/internal/layout"
	"github.com/coreman2200/arcagallery/internal/render"
)

// Strip is the LED output: raw RGB bytes in strip order. *nrzled.Dev
// satisfies it. A Mirror without a strip only produces preview frames.
type Strip interface {
	Write(p []byte) (int, error)
	Halt() error
}

type Options struct {
	Layout     layout.Layout
	FPS        int
	Brightness float64
	Power      Power
}

// Mirror throttles, composites and writes frames to a Strip.
type Mirror struct {
	strip Strip
	port  spi.PortCloser
	opts  Options
	every time.Duration
	accum time.Duration

	frame  *image.NRGBA
	linear []effect.Color
	out    []byte
	scaled map[image.Image]*image.NRGBA

	// OnFrame sees every written frame, e.g. to stream a preview.
	OnFrame func(rgb []byte)
	Frames  int
}

// New drives strip with frames laid out by o.Layout.
func New(strip Strip, o Options) *Mirror {
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.Brightness <= 0 || o.Brightness > 1 {
		o.Brightness = 1
	}
	n := o.Layout.Count()
	return &Mirror{
		strip:  strip,
		opts:   o,
		every:  time.Second / time.Duration(o.FPS),
		frame:  image.NewNRGBA(image.Rect(0, 0, o.Layout.Dim.X, o.Layout.Dim.Y)),
		linear: make([]effect.Color, n),
		out:    make([]byte, n*3),
		scaled: map[image.Image]*image.NRGBA{},
	}
}

// Open initialises the host, opens the SPI port named dev ("" for the
// first one) and drives an nrzled strip on it.
func Open(dev string, speedHz int, o Options) (*Mirror, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mirror: host init: %w", err)
	}
	p, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("mirror: open spi %q: %w", dev, err)
	}
	if speedHz <= 0 {
		speedHz = 2400000
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: o.Layout.Count(),
		Channels:  3,
		Freq:      physic.Frequency(speedHz) * physic.Hertz,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("mirror: nrzled: %w", err)
	}
	m := New(d, o)
	m.port = p
	log.Info().Str("strip", d.String()).Int("leds", o.Layout.Count()).Msg("led mirror ready")
	return m, nil
}

// Present advances the throttle by dt and, when a frame is due, writes the
// composite of (from, to, progress). A nil from blanks the strip.
func (m *Mirror) Present(dt time.Duration, fx effect.Effect, from, to image.Image, progress float32) error {
	m.accum += dt
	if m.accum < m.every {
		return nil
	}
	m.accum %= m.every
	return m.write(m.Render(fx, from, to, progress))
}

// Render composites one frame at matrix resolution and returns it in strip
// order.
func (m *Mirror) Render(fx effect.Effect, from, to image.Image, progress float32) []byte {
	for i := range m.linear {
		m.linear[i] = effect.Color{}
	}
	if from != nil && fx != nil {
		if to == nil {
			to = from
		}
		size := m.frame.Bounds().Size()
		fs, ts := m.fit(from), m.fit(to)
		render.Composite(m.frame, render.NewImageSampler(fs, size), render.NewImageSampler(ts, size), fx, progress)
		m.prune(from, to)

		b := float32(m.opts.Brightness)
		l := m.opts.Layout
		for y := 0; y < l.Dim.Y; y++ {
			for x := 0; x < l.Dim.X; x++ {
				c := render.FromColor(m.frame.NRGBAAt(x, y))
				a := c.A * b
				m.linear[l.Index(x, y)] = effect.Color{R: c.R * a, G: c.G * a, B: c.B * a, A: 1}
			}
		}
		m.opts.Power.Limit(m.linear)
	}
	for i, c := range m.linear {
		px := render.ToNRGBA(c)
		m.out[i*3], m.out[i*3+1], m.out[i*3+2] = px.R, px.G, px.B
	}
	return m.out
}

// fit scales the cover-visible part of img down to matrix size, once per
// source image.
func (m *Mirror) fit(img image.Image) *image.NRGBA {
	if s, ok := m.scaled[img]; ok {
		return s
	}
	size := m.frame.Bounds().Size()
	src := img.Bounds()
	vis := render.Cover(src.Size(), size).Visible(src.Size(), size).Add(src.Min)
	dst := image.NewNRGBA(image.Rectangle{Max: size})
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, vis, draw.Src, nil)
	m.scaled[img] = dst
	return dst
}

// prune forgets scaled copies of images no longer on screen.
func (m *Mirror) prune(from, to image.Image) {
	if len(m.scaled) <= 2 {
		return
	}
	for k := range m.scaled {
		if k != from && k != to {
			delete(m.scaled, k)
		}
	}
}

func (m *Mirror) write(buf []byte) error {
	if m.strip != nil {
		if _, err := m.strip.Write(buf); err != nil {
			return fmt.Errorf("mirror: write: %w", err)
		}
	}
	m.Frames++
	if m.OnFrame != nil {
		m.OnFrame(buf)
	}
	return nil
}

// Close blanks the strip and releases the port.
func (m *Mirror) Close() error {
	var err error
	if m.strip != nil {
		err = m.strip.Halt()
	}
	if m.port != nil {
		if cerr := m.port.Close(); err == nil {
			err = cerr
		}
		m.port = nil
	}
	return err
}
