package render

import (
	"errors"
	"image"

	"github.com/coreman2200/arcagallery/internal/effect"
)

// Health of the rendering surface. Transitions between values come from
// platform events, never from gallery logic.
type Health int

const (
	Healthy Health = iota
	Lost
	Unsupported
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Lost:
		return "lost"
	case Unsupported:
		return "unsupported"
	}
	return "unknown"
}

var (
	// ErrSurfaceLost is returned by a Device when its context went away.
	ErrSurfaceLost = errors.New("render: surface lost")
	// ErrUnsupported is returned when no GPU program can be created at all.
	ErrUnsupported = errors.New("render: gpu rendering unsupported")
)

// Texture is a GPU-resident decoded image.
type Texture interface {
	// Size is the natural pixel size of the uploaded image.
	Size() image.Point
	Dispose()
}

// Program is a compiled transition shader.
type Program interface {
	Dispose()
}

// DrawCall carries everything one frame needs.
type DrawCall struct {
	Program  Program
	Effect   effect.Effect
	From, To Texture
	FromFit  Fit
	ToFit    Fit
	Progress float32
	Size     image.Point
}

// Device is the one GPU rendering context. Only Surface draws through it.
type Device interface {
	NewTexture(img image.Image) (Texture, error)
	NewProgram(fx effect.Effect) (Program, error)
	Draw(dc DrawCall) error
}

// Triple is the state the gallery hands to the render loop.
type Triple struct {
	From, To Texture
	Progress float32
}
