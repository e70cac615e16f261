// Package slide holds the immutable slide descriptors the gallery indexes
// into, and the YAML manifest they are usually loaded from.
package slide

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Slide is one image plus its metadata.
type Slide struct {
	ID          string `yaml:"id" json:"id"`
	MediaRef    string `yaml:"media" json:"media"`
	Label       string `yaml:"label" json:"label"`
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Sequence is an ordered, validated list of slides. The gallery never
// mutates it; a new sequence replaces the old one wholesale.
type Sequence []Slide

var (
	ErrEmpty       = errors.New("slide: empty sequence")
	ErrMissingID   = errors.New("slide: missing id")
	ErrMissingRef  = errors.New("slide: missing media")
	ErrDuplicateID = errors.New("slide: duplicate id")
)

// NewSequence validates and copies slides.
func NewSequence(slides []Slide) (Sequence, error) {
	if len(slides) == 0 {
		return nil, ErrEmpty
	}
	seen := make(map[string]int, len(slides))
	for i, s := range slides {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("%w at index %d", ErrMissingID, i)
		}
		if strings.TrimSpace(s.MediaRef) == "" {
			return nil, fmt.Errorf("%w for %q", ErrMissingRef, s.ID)
		}
		if j, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w %q at %d and %d", ErrDuplicateID, s.ID, j, i)
		}
		seen[s.ID] = i
	}
	out := make(Sequence, len(slides))
	copy(out, slides)
	return out, nil
}

// Len is the number of slides, failed ones included.
func (s Sequence) Len() int { return len(s) }

// IndexOf returns the index of the slide with id, or -1.
func (s Sequence) IndexOf(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// At returns slide i and whether i is in range.
func (s Sequence) At(i int) (Slide, bool) {
	if i < 0 || i >= len(s) {
		return Slide{}, false
	}
	return s[i], true
}

// Manifest is the on-disk form of a sequence.
type Manifest struct {
	Slides []Slide `yaml:"slides"`
}

// LoadManifest reads a YAML manifest. Relative media paths are resolved
// against the manifest's directory; URLs are left alone.
func LoadManifest(path string) (Sequence, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(b, filepath.Dir(path))
}

// ParseManifest decodes manifest bytes, resolving relative media against dir.
func ParseManifest(b []byte, dir string) (Sequence, error) {
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("slide: manifest: %w", err)
	}
	for i := range m.Slides {
		ref := m.Slides[i].MediaRef
		if ref == "" || strings.Contains(ref, "://") || filepath.IsAbs(ref) || dir == "" {
			continue
		}
		m.Slides[i].MediaRef = filepath.Join(dir, ref)
	}
	return NewSequence(m.Slides)
}

// SaveManifest writes seq as YAML.
func SaveManifest(path string, seq Sequence) error {
	b, err := yaml.Marshal(Manifest{Slides: seq})
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
