// Package effect defines the transition shaders. Each variant is a tagged
// configuration with a pure CPU function of (from, to, uv, progress) and the
// equivalent Kage program for the GPU path. Both must agree at the
// endpoints: progress 0 shows exactly from, progress 1 exactly to.
package effect

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
)

// Color is a straight RGBA color in [0,1].
type Color struct{ R, G, B, A float32 }

// Vec2 is a surface coordinate in [0,1]^2, origin top-left.
type Vec2 struct{ X, Y float32 }

// Sampler returns the color of one input texture at a surface coordinate,
// already aspect-corrected. Outside [0,1] it returns transparent.
type Sampler interface {
	At(uv Vec2) Color
}

// Knobs are the numeric intensity parameters of an effect.
type Knobs map[string]float64

// Effect is one transition variant.
type Effect interface {
	Name() string
	// Mix is the CPU reference of the shader.
	Mix(from, to Sampler, uv Vec2, progress float32) Color
	// Source is the Kage program. It reads imageSrc0 (from) and imageSrc1 (to)
	// and a float uniform Progress plus the variant's own knobs.
	Source() []byte
	// Uniforms are the knob values keyed by Kage uniform name.
	Uniforms() map[string]any
}

type ctor func(Knobs) Effect

var variants = map[string]ctor{
	"fade":     func(k Knobs) Effect { return Fade{} },
	"ripple":   func(k Knobs) Effect { return newRipple(k) },
	"wipe":     func(k Knobs) Effect { return newWipe(k) },
	"displace": func(k Knobs) Effect { return newDisplace(k) },
}

// Default is the effect used when none is configured.
const Default = "displace"

// New builds the named variant; missing knobs take their defaults.
func New(name string, k Knobs) (Effect, error) {
	if name == "" {
		name = Default
	}
	c, ok := variants[name]
	if !ok {
		return nil, fmt.Errorf("effect: unknown variant %q", name)
	}
	return c(k), nil
}

// Names lists the registered variants, sorted.
func Names() []string {
	out := make([]string, 0, len(variants))
	for k := range variants {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (k Knobs) get(name string, def float32) float32 {
	if v, ok := k[name]; ok {
		return float32(v)
	}
	return def
}

func lerp(a, b Color, t float32) Color {
	return Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

func clampf(x, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, x))
}

func luma(c Color) float32 {
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}

// Fade is a plain cross-dissolve.
type Fade struct{}

func (Fade) Name() string { return "fade" }

func (Fade) Mix(from, to Sampler, uv Vec2, p float32) Color {
	return lerp(from.At(uv), to.At(uv), p)
}

func (Fade) Source() []byte { return []byte(fadeKage) }

func (Fade) Uniforms() map[string]any { return map[string]any{} }
