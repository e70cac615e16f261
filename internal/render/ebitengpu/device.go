// Package ebitengpu is the render.Device backed by Ebitengine: effects run
// as Kage shaders and textures live in ebiten images.
package ebitengpu

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/effect"
	"github.com/coreman2200/arcagallery/internal/render"
)

// Device draws into an offscreen canvas that the host blits each frame.
// Handles are stamped with a generation; Invalidate bumps it, turning every
// earlier handle stale the way a driver reset would.
type Device struct {
	canvas *ebiten.Image
	gen    int

	textures int
	programs int
}

func New() *Device { return &Device{} }

type texture struct {
	d        *Device
	gen      int
	img      *ebiten.Image
	size     image.Point
	fitted   map[fitKey]*ebiten.Image
	disposed bool
}

type fitKey struct {
	size image.Point
	fit  render.Fit
}

func (t *texture) Size() image.Point { return t.size }

func (t *texture) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	t.dropFitted()
	if t.gen == t.d.gen {
		t.img.Deallocate()
		t.d.textures--
	}
}

func (t *texture) dropFitted() {
	for k, f := range t.fitted {
		f.Deallocate()
		delete(t.fitted, k)
	}
}

// fittedTo is the texture drawn at surface size through f. Shader sources
// must all match the destination rect, so each texture keeps one copy per
// surface size; a new size replaces the old copies.
func (t *texture) fittedTo(f render.Fit, size image.Point) *ebiten.Image {
	k := fitKey{size: size, fit: f}
	if img, ok := t.fitted[k]; ok {
		return img
	}
	t.dropFitted()
	img := ebiten.NewImage(size.X, size.Y)
	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	op.GeoM.Scale(f.Scale, f.Scale)
	op.GeoM.Translate(f.OffsetX, f.OffsetY)
	img.DrawImage(t.img, op)
	t.fitted[k] = img
	return img
}

type program struct {
	d        *Device
	gen      int
	sh       *ebiten.Shader
	disposed bool
}

func (p *program) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	if p.gen == p.d.gen {
		p.sh.Deallocate()
		p.d.programs--
	}
}

func (d *Device) NewTexture(img image.Image) (t render.Texture, err error) {
	if img == nil {
		return nil, fmt.Errorf("ebitengpu: nil image")
	}
	err = d.guard(func() {
		t = &texture{
			d:      d,
			gen:    d.gen,
			img:    ebiten.NewImageFromImage(img),
			size:   img.Bounds().Size(),
			fitted: map[fitKey]*ebiten.Image{},
		}
	})
	if err != nil {
		return nil, err
	}
	d.textures++
	return t, nil
}

func (d *Device) NewProgram(fx effect.Effect) (render.Program, error) {
	if fx == nil {
		return nil, fmt.Errorf("ebitengpu: nil effect")
	}
	var sh *ebiten.Shader
	var cerr error
	if err := d.guard(func() { sh, cerr = ebiten.NewShader(fx.Source()) }); err != nil {
		return nil, err
	}
	if cerr != nil {
		return nil, fmt.Errorf("ebitengpu: compile %s: %w", fx.Name(), cerr)
	}
	d.programs++
	return &program{d: d, gen: d.gen, sh: sh}, nil
}

func (d *Device) Draw(dc render.DrawCall) error {
	p, ok := dc.Program.(*program)
	if !ok || p.disposed {
		return fmt.Errorf("ebitengpu: foreign or disposed program")
	}
	from, ok1 := dc.From.(*texture)
	to, ok2 := dc.To.(*texture)
	if !ok1 || !ok2 {
		return fmt.Errorf("ebitengpu: foreign texture")
	}
	if p.gen != d.gen || from.gen != d.gen || to.gen != d.gen || from.disposed || to.disposed {
		return fmt.Errorf("%w: stale handle", render.ErrSurfaceLost)
	}
	if dc.Size.X <= 0 || dc.Size.Y <= 0 {
		return nil
	}
	return d.guard(func() {
		d.ensureCanvas(dc.Size)
		op := &ebiten.DrawRectShaderOptions{}
		op.Images[0] = from.fittedTo(dc.FromFit, dc.Size)
		op.Images[1] = to.fittedTo(dc.ToFit, dc.Size)
		op.Uniforms = uniforms(dc.Effect, dc.Progress)
		d.canvas.Clear()
		d.canvas.DrawRectShader(dc.Size.X, dc.Size.Y, p.sh, op)
	})
}

// uniforms are the effect knobs plus Progress.
func uniforms(fx effect.Effect, progress float32) map[string]any {
	u := map[string]any{}
	if fx != nil {
		for k, v := range fx.Uniforms() {
			u[k] = v
		}
	}
	u["Progress"] = progress
	return u
}

func (d *Device) ensureCanvas(size image.Point) {
	if d.canvas != nil && d.canvas.Bounds().Size() == size {
		return
	}
	if d.canvas != nil {
		d.canvas.Deallocate()
	}
	d.canvas = ebiten.NewImage(size.X, size.Y)
}

// guard turns a panic from the graphics driver into ErrSurfaceLost and
// invalidates every handle.
func (d *Device) guard(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("graphics driver failure")
			d.Invalidate()
			err = fmt.Errorf("%w: %v", render.ErrSurfaceLost, r)
		}
	}()
	f()
	return nil
}

// Invalidate drops the canvas and makes all existing handles stale.
func (d *Device) Invalidate() {
	d.gen++
	d.textures = 0
	d.programs = 0
	d.canvas = nil
}

// Canvas is the last drawn frame, nil before the first draw.
func (d *Device) Canvas() *ebiten.Image { return d.canvas }

func (d *Device) LiveTextures() int { return d.textures }

func (d *Device) LivePrograms() int { return d.programs }
