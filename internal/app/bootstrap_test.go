package app

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcagallery/internal/bus"
	"github.com/coreman2200/arcagallery/internal/config"
	"github.com/coreman2200/arcagallery/internal/gallery"
	"github.com/coreman2200/arcagallery/internal/render/soft"
	"github.com/coreman2200/arcagallery/internal/ws"
)

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

const manifest = `slides:
  - id: red
    media: red.png
    label: Red
    title: Red
  - id: blue
    media: blue.png
    label: Blue
`

func setup(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "red.png"), color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(dir, "blue.png"), color.RGBA{B: 255, A: 255})
	writePNG(t, filepath.Join(dir, "green.png"), color.RGBA{G: 255, A: 255})
	path := filepath.Join(dir, "slides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))

	cfg := config.Default()
	cfg.Manifest = path
	cfg.Mirror.Width, cfg.Mirror.Height, cfg.Mirror.FPS = 4, 4, 50
	cfg.Mirror.Brightness = 1
	return cfg, path
}

func until(t *testing.T, c *Core, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		c.Step(0)
		time.Sleep(2 * time.Millisecond)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Gallery.Mode = "minimal"
	cfg.Effect = config.Effect{Name: "ripple", Knobs: map[string]float64{"amplitude": 0.1}}
	o := Options(cfg)
	assert.Equal(t, gallery.Minimal, o.Mode)
	assert.Equal(t, 6*time.Second, o.Dwell)
	assert.Equal(t, "ripple", o.Effect)
	assert.Equal(t, 0.1, o.Knobs["amplitude"])
	assert.Equal(t, 250*time.Millisecond, o.RestoreBackoff)

	mo := MirrorOptions(cfg.Mirror)
	assert.Equal(t, 256, mo.Layout.Count())
	assert.True(t, mo.Layout.Order.XFlipEveryRow)
	assert.Equal(t, 4.0, mo.Power.LimitAmps)
}

func TestCoreRunsTheGallery(t *testing.T) {
	cfg, path := setup(t)
	dev := soft.New(32, 24)
	b := bus.New()
	c, err := InitCore(context.Background(), cfg, dev, b, func(o *gallery.Options) {
		o.Dwell = 300 * time.Millisecond
		o.Transition = 100 * time.Millisecond
	})
	require.NoError(t, err)
	c.Engine.Post(gallery.Resize{W: 32, H: 24})

	until(t, c, "first slide", func() bool { return c.Engine.View().Ready })
	assert.Equal(t, 2, c.State.Status().Count)
	assert.Equal(t, "red", c.State.Status().ID)

	var frames [][]byte
	c.Mirror.OnFrame = func(rgb []byte) { frames = append(frames, append([]byte(nil), rgb...)) }
	c.Step(20 * time.Millisecond)
	c.Step(20 * time.Millisecond)
	require.NotEmpty(t, frames)
	assert.Equal(t, byte(255), frames[0][0])
	assert.Equal(t, byte(0), frames[0][2])
	assert.NotZero(t, dev.Draws)

	for i := 0; i < 9; i++ {
		c.Step(50 * time.Millisecond)
	}
	assert.Equal(t, 1, c.Engine.Current())
	assert.Equal(t, "blue", c.State.Status().ID)

	// the watcher swaps in an edited manifest
	edited := manifest + "  - id: green\n    media: green.png\n    label: Green\n"
	require.NoError(t, os.WriteFile(path, []byte(edited), 0644))
	until(t, c, "manifest reload", func() bool { return c.Engine.Sequence().Len() == 3 })
	until(t, c, "reloaded slides", func() bool { return c.Engine.View().Ready })

	rec := httptest.NewRecorder()
	c.State.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var st ws.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, "red", st.ID)
	assert.Equal(t, 3, st.Count)

	c.Close()
	assert.Zero(t, dev.Live())
	assert.Zero(t, b.Total())
}

func TestMissingManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Manifest = filepath.Join(t.TempDir(), "nope.yaml")
	_, err := InitCore(context.Background(), cfg, soft.New(0, 0), bus.New(), nil)
	assert.Error(t, err)
}

func TestUnsupportedDeviceStillBoots(t *testing.T) {
	cfg, _ := setup(t)
	cfg.Watch = false
	dev := soft.New(0, 0)
	dev.FailPrograms = true
	b := bus.New()
	c, err := InitCore(context.Background(), cfg, dev, b, nil)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "unsupported", c.State.Status().Health)
	assert.NotEmpty(t, c.Engine.View().Fallback)
}
