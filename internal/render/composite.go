package render

import (
	"image"
	"image/color"

	"github.com/coreman2200/arcagallery/internal/effect"
)

// ImageSampler samples a decoded image through a cover fit, nearest
// neighbour. It is the CPU stand-in for a bound texture.
type ImageSampler struct {
	Img     image.Image
	Fit     Fit
	Surface image.Point
}

// NewImageSampler fits img over a surface of the given size.
func NewImageSampler(img image.Image, surface image.Point) ImageSampler {
	return ImageSampler{Img: img, Fit: Cover(img.Bounds().Size(), surface), Surface: surface}
}

func (s ImageSampler) At(uv effect.Vec2) effect.Color {
	if s.Img == nil {
		return effect.Color{}
	}
	b := s.Img.Bounds()
	tuv := s.Fit.TexUV(uv, b.Size(), s.Surface)
	if tuv.X < 0 || tuv.X > 1 || tuv.Y < 0 || tuv.Y > 1 {
		return effect.Color{}
	}
	x := b.Min.X + min(int(tuv.X*float32(b.Dx())), b.Dx()-1)
	y := b.Min.Y + min(int(tuv.Y*float32(b.Dy())), b.Dy()-1)
	return FromColor(s.Img.At(x, y))
}

// FromColor converts any color to straight-alpha float channels.
func FromColor(c color.Color) effect.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return effect.Color{
		R: float32(n.R) / 255,
		G: float32(n.G) / 255,
		B: float32(n.B) / 255,
		A: float32(n.A) / 255,
	}
}

func clamp255(x float32) uint8 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 255
	}
	return uint8(x*255 + 0.5)
}

// ToNRGBA converts back to 8-bit straight alpha.
func ToNRGBA(c effect.Color) color.NRGBA {
	return color.NRGBA{R: clamp255(c.R), G: clamp255(c.G), B: clamp255(c.B), A: clamp255(c.A)}
}

// Composite evaluates fx on the CPU for every pixel of dst.
func Composite(dst *image.NRGBA, from, to effect.Sampler, fx effect.Effect, progress float32) {
	b := dst.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			uv := effect.Vec2{
				X: (float32(x-b.Min.X) + 0.5) / w,
				Y: (float32(y-b.Min.Y) + 0.5) / h,
			}
			dst.SetNRGBA(x, y, ToNRGBA(fx.Mix(from, to, uv, progress)))
		}
	}
}
