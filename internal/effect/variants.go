package effect

import "github.com/chewxy/math32"

// Ripple pushes both images along concentric waves that peak mid-transition.
type Ripple struct {
	Amplitude float32 // uv offset at the peak
	Frequency float32 // rings across the half-diagonal
	Speed     float32 // phase travel over the transition, radians
}

func newRipple(k Knobs) Effect {
	return Ripple{
		Amplitude: k.get("amplitude", 0.03),
		Frequency: k.get("frequency", 12),
		Speed:     k.get("speed", 18),
	}
}

func (Ripple) Name() string { return "ripple" }

func (r Ripple) Mix(from, to Sampler, uv Vec2, p float32) Color {
	cx, cy := uv.X-0.5, uv.Y-0.5
	d := math32.Sqrt(cx*cx + cy*cy)
	var ox, oy float32
	if d > 0 {
		bell := 4 * p * (1 - p)
		w := math32.Sin(d*r.Frequency*2*math32.Pi-p*r.Speed) * r.Amplitude * bell
		ox, oy = cx/d*w, cy/d*w
	}
	a := from.At(Vec2{uv.X + ox, uv.Y + oy})
	b := to.At(Vec2{uv.X - ox, uv.Y - oy})
	return lerp(a, b, p)
}

func (Ripple) Source() []byte { return []byte(rippleKage) }

func (r Ripple) Uniforms() map[string]any {
	return map[string]any{"Amplitude": r.Amplitude, "Frequency": r.Frequency, "Speed": r.Speed}
}

// Wipe reveals the next image behind a soft edge travelling along Angle.
type Wipe struct {
	Softness float32 // edge width in uv
	Angle    float32 // radians, 0 = left to right
}

func newWipe(k Knobs) Effect {
	return Wipe{
		Softness: math32.Max(k.get("softness", 0.15), 0.001),
		Angle:    k.get("angle", 0),
	}
}

func (Wipe) Name() string { return "wipe" }

func (w Wipe) Mix(from, to Sampler, uv Vec2, p float32) Color {
	dx, dy := math32.Cos(w.Angle), math32.Sin(w.Angle)
	h := 0.5 * (math32.Abs(dx) + math32.Abs(dy))
	t := clampf(((uv.X-0.5)*dx+(uv.Y-0.5)*dy+h)/(2*h), 0, 1)
	a := clampf((p*(1+w.Softness)-t)/w.Softness, 0, 1)
	return lerp(from.At(uv), to.At(uv), a)
}

func (Wipe) Source() []byte { return []byte(wipeKage) }

func (w Wipe) Uniforms() map[string]any {
	return map[string]any{"Softness": w.Softness, "Angle": w.Angle}
}

// Displace warps each image by the other's luminance, a liquid-looking
// distortion that settles at both ends.
type Displace struct {
	Strength float32
}

func newDisplace(k Knobs) Effect {
	return Displace{Strength: k.get("strength", 0.4)}
}

func (Displace) Name() string { return "displace" }

func (d Displace) Mix(from, to Sampler, uv Vec2, p float32) Color {
	tl := luma(to.At(uv)) - 0.5
	fl := luma(from.At(uv)) - 0.5
	fo := p * d.Strength * tl
	bo := (1 - p) * d.Strength * fl
	a := from.At(Vec2{uv.X + fo, uv.Y + fo})
	b := to.At(Vec2{uv.X - bo, uv.Y - bo})
	return lerp(a, b, p)
}

func (Displace) Source() []byte { return []byte(displaceKage) }

func (d Displace) Uniforms() map[string]any {
	return map[string]any{"Strength": d.Strength}
}

// Kage programs. Both source images are pre-fitted to the destination size,
// so srcPos addresses the same surface point in each.

const fadeKage = `//kage:unit pixels

package main

var Progress float

func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {
	return mix(imageSrc0At(srcPos), imageSrc1At(srcPos), Progress)
}
`

const rippleKage = `//kage:unit pixels

package main

var Progress float
var Amplitude float
var Frequency float
var Speed float

func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {
	size := imageSrc0Size()
	uv := (srcPos - imageSrc0Origin()) / size
	c := uv - 0.5
	d := length(c)
	off := vec2(0)
	if d > 0 {
		bell := 4 * Progress * (1 - Progress)
		w := sin(d*Frequency*6.2831853-Progress*Speed) * Amplitude * bell
		off = c / d * w
	}
	a := imageSrc0At(srcPos + off*size)
	b := imageSrc1At(srcPos - off*size)
	return mix(a, b, Progress)
}
`

const wipeKage = `//kage:unit pixels

package main

var Progress float
var Softness float
var Angle float

func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {
	uv := (srcPos - imageSrc0Origin()) / imageSrc0Size()
	dir := vec2(cos(Angle), sin(Angle))
	h := 0.5 * (abs(dir.x) + abs(dir.y))
	t := clamp((dot(uv-0.5, dir)+h)/(2*h), 0, 1)
	a := clamp((Progress*(1+Softness)-t)/Softness, 0, 1)
	return mix(imageSrc0At(srcPos), imageSrc1At(srcPos), a)
}
`

const displaceKage = `//kage:unit pixels

package main

var Progress float
var Strength float

func luma(c vec4) float {
	return dot(c.rgb, vec3(0.299, 0.587, 0.114))
}

func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {
	size := imageSrc0Size()
	tl := luma(imageSrc1At(srcPos)) - 0.5
	fl := luma(imageSrc0At(srcPos)) - 0.5
	fo := Progress * Strength * tl
	bo := (1 - Progress) * Strength * fl
	a := imageSrc0At(srcPos + vec2(fo)*size)
	b := imageSrc1At(srcPos - vec2(bo)*size)
	return mix(a, b, Progress)
}
`
