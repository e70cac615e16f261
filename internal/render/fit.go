package render

import (
	"image"
	"math"

	"github.com/coreman2200/arcagallery/internal/effect"
)

// Fit maps texture pixels onto surface pixels: dst = src*Scale + Offset.
type Fit struct {
	Scale            float64
	OffsetX, OffsetY float64
}

// Cover fits tex over surface the way object-fit: cover does: the texture
// fills the surface, keeps its aspect, and is centred with overflow cropped.
func Cover(tex, surface image.Point) Fit {
	if tex.X <= 0 || tex.Y <= 0 || surface.X <= 0 || surface.Y <= 0 {
		return Fit{Scale: 1}
	}
	sx := float64(surface.X) / float64(tex.X)
	sy := float64(surface.Y) / float64(tex.Y)
	s := math.Max(sx, sy)
	return Fit{
		Scale:   s,
		OffsetX: (float64(surface.X) - float64(tex.X)*s) / 2,
		OffsetY: (float64(surface.Y) - float64(tex.Y)*s) / 2,
	}
}

// TexUV converts a surface uv into the texture's own uv for this fit.
func (f Fit) TexUV(uv effect.Vec2, tex, surface image.Point) effect.Vec2 {
	if f.Scale == 0 || tex.X == 0 || tex.Y == 0 {
		return uv
	}
	px := (float64(uv.X)*float64(surface.X) - f.OffsetX) / f.Scale
	py := (float64(uv.Y)*float64(surface.Y) - f.OffsetY) / f.Scale
	return effect.Vec2{X: float32(px / float64(tex.X)), Y: float32(py / float64(tex.Y))}
}

// Visible is the part of the texture that lands on the surface, in texture
// pixels.
func (f Fit) Visible(tex, surface image.Point) image.Rectangle {
	if f.Scale == 0 {
		return image.Rectangle{Max: tex}
	}
	x0 := int(math.Round(-f.OffsetX / f.Scale))
	y0 := int(math.Round(-f.OffsetY / f.Scale))
	x1 := int(math.Round((float64(surface.X) - f.OffsetX) / f.Scale))
	y1 := int(math.Round((float64(surface.Y) - f.OffsetY) / f.Scale))
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rectangle{Max: tex})
}
