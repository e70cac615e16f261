// Package soft is a CPU render.Device. It composites frames with the same
// effect functions the GPU programs implement, counts live handles, and can
// simulate context loss. The headless simulator and the tests run on it.
package soft

import (
	"errors"
	"fmt"
	"image"

	"github.com/coreman2200/arcagallery/internal/effect"
	"github.com/coreman2200/arcagallery/internal/render"
)

// Device composites into Target when it is set.
type Device struct {
	Target *image.NRGBA

	// FailPrograms makes NewProgram fail, as on a machine without a GPU.
	FailPrograms bool
	// FailRestore keeps NewProgram failing while the context is lost.
	FailRestore bool

	gen      int
	lost     bool
	textures int
	programs int

	Draws        int
	LastProgress float32
	LastFrom     image.Image
	LastTo       image.Image
}

// New returns a device; a zero size means no composite target.
func New(w, h int) *Device {
	d := &Device{}
	if w > 0 && h > 0 {
		d.Target = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	return d
}

type texture struct {
	d        *Device
	gen      int
	img      image.Image
	disposed bool
}

func (t *texture) Size() image.Point { return t.img.Bounds().Size() }

func (t *texture) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	if t.gen == t.d.gen {
		t.d.textures--
	}
}

type program struct {
	d        *Device
	gen      int
	disposed bool
}

func (p *program) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	if p.gen == p.d.gen {
		p.d.programs--
	}
}

func (d *Device) NewTexture(img image.Image) (render.Texture, error) {
	if d.lost {
		return nil, render.ErrSurfaceLost
	}
	if img == nil {
		return nil, errors.New("soft: nil image")
	}
	d.textures++
	return &texture{d: d, gen: d.gen, img: img}, nil
}

func (d *Device) NewProgram(fx effect.Effect) (render.Program, error) {
	if d.FailPrograms {
		return nil, errors.New("soft: no program support")
	}
	if d.lost {
		return nil, render.ErrSurfaceLost
	}
	if fx == nil {
		return nil, errors.New("soft: nil effect")
	}
	d.programs++
	return &program{d: d, gen: d.gen}, nil
}

func (d *Device) Draw(dc render.DrawCall) error {
	if d.lost {
		return render.ErrSurfaceLost
	}
	from, ok1 := dc.From.(*texture)
	to, ok2 := dc.To.(*texture)
	if !ok1 || !ok2 {
		return fmt.Errorf("soft: foreign texture")
	}
	if from.gen != d.gen || to.gen != d.gen || from.disposed || to.disposed {
		return fmt.Errorf("%w: stale texture", render.ErrSurfaceLost)
	}
	d.Draws++
	d.LastProgress = dc.Progress
	d.LastFrom, d.LastTo = from.img, to.img
	if d.Target != nil {
		sz := d.Target.Bounds().Size()
		render.Composite(d.Target,
			render.NewImageSampler(from.img, sz),
			render.NewImageSampler(to.img, sz),
			dc.Effect, dc.Progress)
	}
	return nil
}

// Lose invalidates every handle, like a driver reset.
func (d *Device) Lose() {
	d.lost = true
	d.gen++
	d.textures = 0
	d.programs = 0
}

// Restore makes the context usable again; old handles stay invalid.
func (d *Device) Restore() {
	if d.FailRestore {
		return
	}
	d.lost = false
}

// Lost reports whether the context is currently gone.
func (d *Device) Lost() bool { return d.lost }

// LiveTextures is the number of valid texture handles.
func (d *Device) LiveTextures() int { return d.textures }

// LivePrograms is the number of valid program handles.
func (d *Device) LivePrograms() int { return d.programs }

// Live is every valid GPU handle.
func (d *Device) Live() int { return d.textures + d.programs }
