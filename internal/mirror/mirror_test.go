package mirror

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/arcagallery/internal/effect"
	"github.com/coreman2200/arcagallery/internal/layout"
)

type fakeStrip struct {
	frames [][]byte
	halted bool
}

func (f *fakeStrip) Write(p []byte) (int, error) {
	f.frames = append(f.frames, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeStrip) Halt() error { f.halted = true; return nil }

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func grid(w, h int) layout.Layout {
	return layout.Layout{Dim: layout.Dim{X: w, Y: h}, Order: layout.Serpentine{XFlipEveryRow: true}}
}

func TestPresentIsThrottled(t *testing.T) {
	s := &fakeStrip{}
	m := New(s, Options{Layout: grid(4, 4), FPS: 10})
	red := solid(40, 30, color.RGBA{R: 255, A: 255})
	fx := effect.Fade{}

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Present(50*time.Millisecond, fx, red, nil, 0))
	}
	assert.Len(t, s.frames, 5)
	assert.Equal(t, 5, m.Frames)
	assert.Len(t, s.frames[0], 4*4*3)
	assert.Equal(t, []byte{255, 0, 0}, s.frames[0][:3])

	require.NoError(t, m.Close())
	assert.True(t, s.halted)
}

func TestPreviewOnly(t *testing.T) {
	var got [][]byte
	m := New(nil, Options{Layout: grid(2, 1), FPS: 1})
	m.OnFrame = func(rgb []byte) { got = append(got, append([]byte(nil), rgb...)) }
	require.NoError(t, m.Present(time.Second, effect.Fade{}, solid(2, 1, color.White), nil, 0))
	require.Len(t, got, 1)
	assert.Equal(t, []byte{255, 255, 255, 255, 255, 255}, got[0])
	assert.NoError(t, m.Close())
}

func TestRenderFollowsSerpentine(t *testing.T) {
	// left half white, right half black
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.White)
		}
	}
	m := New(&fakeStrip{}, Options{Layout: grid(2, 2)})
	out := m.Render(effect.Fade{}, img, nil, 0)
	// row 0: led0 = (0,0) white, led1 = (1,0) black
	// row 1 runs backwards: led2 = (1,1) black, led3 = (0,1) white
	assert.Equal(t, byte(255), out[0])
	assert.Equal(t, byte(0), out[3])
	assert.Equal(t, byte(0), out[6])
	assert.Equal(t, byte(255), out[9])
}

func TestRenderBlanksWithoutSource(t *testing.T) {
	m := New(&fakeStrip{}, Options{Layout: grid(3, 1)})
	assert.Equal(t, make([]byte, 9), m.Render(effect.Fade{}, nil, nil, 0))
}

func TestFadeMidpointAndBrightness(t *testing.T) {
	m := New(&fakeStrip{}, Options{Layout: grid(1, 1), Brightness: 0.5})
	out := m.Render(effect.Fade{}, solid(4, 4, color.White), solid(4, 4, color.Black), 0.5)
	assert.InDelta(t, 64, int(out[0]), 1)
}

func TestPowerLimit(t *testing.T) {
	buf := make([]effect.Color, 10)
	for i := range buf {
		buf[i] = effect.Color{R: 1, G: 1, B: 1, A: 1}
	}
	// 10 white LEDs at 60mA each is 600mA against a 300mA budget
	Power{LimitAmps: 0.3, ChanMA: 20}.Limit(buf)
	assert.LessOrEqual(t, Current(buf, 20), 300.1)

	one := []effect.Color{{R: 1, G: 1, B: 1}}
	Power{WhiteCap: 0.5}.Limit(one)
	assert.InDelta(t, 1.5, float64(one[0].R+one[0].G+one[0].B), 1e-4)

	under := []effect.Color{{R: 0.1}}
	Power{LimitAmps: 1}.Limit(under)
	assert.Equal(t, float32(0.1), under[0].R)
}

func TestWritesThroughNRZEncoder(t *testing.T) {
	var buf bytes.Buffer
	l := grid(2, 2)
	d, err := nrzled.NewSPI(spitest.NewRecordRaw(&buf), &nrzled.Opts{
		NumPixels: l.Count(),
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	require.NoError(t, err)
	assert.Equal(t, "nrzled{recordraw}", d.String())

	m := New(d, Options{Layout: l, FPS: 30})
	require.NoError(t, m.Present(time.Second, effect.Fade{}, solid(8, 8, color.White), nil, 0))
	assert.NotZero(t, buf.Len())
	assert.Equal(t, 1, m.Frames)
	require.NoError(t, m.Close())
}

type fakeDrawer struct {
	img    *image.NRGBA
	halted bool
}

func (f *fakeDrawer) String() string          { return "fake" }
func (f *fakeDrawer) Halt() error             { f.halted = true; return nil }
func (f *fakeDrawer) ColorModel() color.Model { return color.NRGBAModel }
func (f *fakeDrawer) Bounds() image.Rectangle { return f.img.Bounds() }
func (f *fakeDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Draw(f.img, r, src, sp, draw.Src)
	return nil
}

func TestDrawerStrip(t *testing.T) {
	d := &fakeDrawer{img: image.NewNRGBA(image.Rect(0, 0, 2, 1))}
	s := DrawerStrip(d)
	n, err := s.Write([]byte{10, 20, 30, 40, 50, 60})
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, color.NRGBA{R: 40, G: 50, B: 60, A: 255}, d.img.NRGBAAt(1, 0))
	require.NoError(t, s.Halt())
	assert.True(t, d.halted)
}
