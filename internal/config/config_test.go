package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
manifest: /srv/show/slides.yaml
gallery:
  mode: minimal
  dwell: 9s
effect:
  name: ripple
  knobs:
    amplitude: 0.05
mirror:
  enabled: true
  console: true
window:
  pause_unfocused: true
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/show/slides.yaml", c.Manifest)
	assert.Equal(t, "minimal", c.Gallery.Mode)
	assert.Equal(t, 9*time.Second, c.Gallery.Dwell)
	assert.Equal(t, 1200*time.Millisecond, c.Gallery.Transition)
	assert.Equal(t, "ripple", c.Effect.Name)
	assert.Equal(t, 0.05, c.Effect.Knobs["amplitude"])
	assert.True(t, c.Mirror.Enabled)
	assert.True(t, c.Mirror.Console)
	assert.Equal(t, 16, c.Mirror.Width)
	assert.True(t, c.Window.PauseUnfocused)
	assert.NotEmpty(t, c.Window.Title)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Addr = ":9090"
	c.Recovery.Backoff = 400 * time.Millisecond
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
