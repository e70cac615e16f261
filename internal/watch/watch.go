// Package watch reloads the slide manifest when it changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/slide"
)

const DefaultDebounce = 200 * time.Millisecond

// Manifest watches one manifest file. Editors replace files by rename, so
// the parent directory is watched and events are filtered by name.
type Manifest struct {
	path     string
	debounce time.Duration
	onChange func(slide.Sequence)

	// OnInvalid, if set, hears about manifests that failed to load.
	OnInvalid func(error)

	w    *fsnotify.Watcher
	mu   sync.Mutex
	t    *time.Timer
	done chan struct{}
}

// New starts watching path. onChange receives each valid reloaded
// sequence on the watcher's goroutine; invalid manifests are logged and
// skipped, keeping the last good sequence on screen.
func New(path string, debounce time.Duration, onChange func(slide.Sequence)) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Manifest{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		w:        w,
		done:     make(chan struct{}),
	}, nil
}

// Run blocks until ctx is done or Close is called.
func (m *Manifest) Run(ctx context.Context) {
	defer m.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case ev, ok := <-m.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != m.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			m.schedule()
		case err, ok := <-m.w.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", m.path).Msg("manifest watcher error")
		}
	}
}

func (m *Manifest) schedule() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.t != nil {
		m.t.Stop()
	}
	m.t = time.AfterFunc(m.debounce, m.reload)
}

func (m *Manifest) stopTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.t != nil {
		m.t.Stop()
		m.t = nil
	}
}

func (m *Manifest) reload() {
	seq, err := slide.LoadManifest(m.path)
	if err != nil {
		log.Warn().Err(err).Str("path", m.path).Msg("manifest reload ignored")
		if m.OnInvalid != nil {
			m.OnInvalid(err)
		}
		return
	}
	log.Info().Str("path", m.path).Int("slides", seq.Len()).Msg("manifest reloaded")
	m.onChange(seq)
}

// Close stops watching. Safe to call more than once.
func (m *Manifest) Close() error {
	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
	}
	m.stopTimer()
	return m.w.Close()
}
