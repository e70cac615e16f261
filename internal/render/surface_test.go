package render_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcagallery/internal/effect"
	"github.com/coreman2200/arcagallery/internal/render"
	"github.com/coreman2200/arcagallery/internal/render/soft"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCoverFit(t *testing.T) {
	// wide texture on a square surface: height fills, sides cropped
	f := render.Cover(image.Pt(200, 100), image.Pt(100, 100))
	assert.InDelta(t, 1.0, f.Scale, 1e-9)
	assert.InDelta(t, -50, f.OffsetX, 1e-9)
	assert.InDelta(t, 0, f.OffsetY, 1e-9)

	// tall surface
	f = render.Cover(image.Pt(100, 100), image.Pt(50, 200))
	assert.InDelta(t, 2.0, f.Scale, 1e-9)
	assert.InDelta(t, -75, f.OffsetX, 1e-9)

	// centre maps to centre
	uv := f.TexUV(effect.Vec2{X: 0.5, Y: 0.5}, image.Pt(100, 100), image.Pt(50, 200))
	assert.InDelta(t, 0.5, uv.X, 1e-6)
	assert.InDelta(t, 0.5, uv.Y, 1e-6)
}

func TestCompositeFadeMidpoint(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	sz := dst.Bounds().Size()
	red := render.NewImageSampler(solid(8, 8, color.NRGBA{R: 255, A: 255}), sz)
	blue := render.NewImageSampler(solid(8, 8, color.NRGBA{B: 255, A: 255}), sz)
	render.Composite(dst, red, blue, effect.Fade{}, 0.5)
	c := dst.NRGBAAt(1, 1)
	assert.InDelta(t, 128, int(c.R), 1)
	assert.InDelta(t, 128, int(c.B), 1)
}

func newSurface(t *testing.T) (*render.Surface, *soft.Device, render.Triple) {
	t.Helper()
	dev := soft.New(4, 4)
	s, err := render.NewSurface(dev, effect.Fade{})
	require.NoError(t, err)
	a, err := dev.NewTexture(solid(8, 4, color.White))
	require.NoError(t, err)
	b, err := dev.NewTexture(solid(4, 8, color.Black))
	require.NoError(t, err)
	s.Resize(4, 4)
	return s, dev, render.Triple{From: a, To: b, Progress: 0.25}
}

func TestLoopDrawsOnlyWhileIntersecting(t *testing.T) {
	s, dev, tr := newSurface(t)

	require.NoError(t, s.Frame(tr))
	assert.Equal(t, 0, dev.Draws, "loop not started")

	s.Start()
	s.Start()
	require.NoError(t, s.Frame(tr))
	assert.Equal(t, 1, dev.Draws)

	s.SetIntersecting(false)
	require.NoError(t, s.Frame(tr))
	require.NoError(t, s.Frame(tr))
	assert.Equal(t, 1, dev.Draws)
	assert.Equal(t, 2, s.Stats.Skipped)
	assert.Equal(t, 3, s.Stats.Frames)

	s.SetIntersecting(true)
	require.NoError(t, s.Frame(tr))
	assert.Equal(t, 2, dev.Draws)
	assert.InDelta(t, 0.25, dev.LastProgress, 1e-6)
}

func TestResizeRecomputesFits(t *testing.T) {
	s, _, tr := newSurface(t)
	before := s.Fit(tr.From)
	s.Resize(40, 10)
	after := s.Fit(tr.From)
	assert.NotEqual(t, before, after)
	assert.Equal(t, render.Cover(image.Pt(8, 4), image.Pt(40, 10)), after)
}

func TestLossAndRestore(t *testing.T) {
	s, dev, tr := newSurface(t)
	s.Start()

	dev.Lose()
	err := s.Frame(tr)
	assert.ErrorIs(t, err, render.ErrSurfaceLost)
	assert.Equal(t, render.Lost, s.Health())
	assert.False(t, s.Running())

	// no device calls while lost
	draws := dev.Draws
	require.NoError(t, s.Frame(tr))
	assert.Equal(t, draws, dev.Draws)

	dev.Restore()
	require.NoError(t, s.Restore())
	assert.Equal(t, render.Healthy, s.Health())
	assert.True(t, s.Running(), "loop resumes when it ran before loss")
	assert.Equal(t, 1, dev.LivePrograms())
}

func TestUnsupportedWhenProgramFails(t *testing.T) {
	dev := soft.New(0, 0)
	dev.FailPrograms = true
	s, err := render.NewSurface(dev, effect.Fade{})
	assert.ErrorIs(t, err, render.ErrUnsupported)
	assert.Equal(t, render.Unsupported, s.Health())
	s.Start()
	assert.False(t, s.Running())
}

func TestReleaseDisposesProgram(t *testing.T) {
	s, dev, _ := newSurface(t)
	assert.Equal(t, 1, dev.LivePrograms())
	s.Release()
	s.Release()
	assert.Equal(t, 0, dev.LivePrograms())
}

func TestCoverVisibleRegion(t *testing.T) {
	f := render.Cover(image.Pt(200, 100), image.Pt(100, 100))
	assert.Equal(t, image.Rect(50, 0, 150, 100), f.Visible(image.Pt(200, 100), image.Pt(100, 100)))

	f = render.Cover(image.Pt(100, 100), image.Pt(50, 200))
	assert.Equal(t, image.Rect(38, 0, 63, 100), f.Visible(image.Pt(100, 100), image.Pt(50, 200)))
}
