// Package lifecycle holds the gallery's scoped-acquisition guard and the
// supervisor that decides when the scheduler and render loop may run.
package lifecycle

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Kind groups acquisitions into teardown stages.
type Kind int

const (
	Timer    Kind = iota // scheduler ticks, deferred navigation, restore retries
	Loop                 // the render loop
	GPU                  // textures and the transition program
	Observer             // bus subscriptions, watchers, platform listeners
	numKinds
)

var kindNames = [...]string{"timer", "loop", "gpu", "observer"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Handle is one acquired resource. Release is idempotent.
type Handle struct {
	s       *Scope
	kind    Kind
	release func()
	done    bool
}

// Release runs the release func once and forgets the handle.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.s.mu.Lock()
	if h.done {
		h.s.mu.Unlock()
		return
	}
	h.done = true
	h.s.live[h.kind]--
	h.s.mu.Unlock()
	if h.release != nil {
		h.release()
	}
}

// Scope tracks everything the gallery acquires between mount and teardown.
// Close releases it all: stage by stage in Kind order, newest first within a
// stage. Acquiring after Close releases immediately.
type Scope struct {
	mu      sync.Mutex
	handles []*Handle
	live    [numKinds]int
	closed  bool
}

func NewScope() *Scope { return &Scope{} }

// Acquire registers release to run at teardown.
func (s *Scope) Acquire(kind Kind, release func()) *Handle {
	h := &Handle{s: s, kind: kind, release: release}
	s.mu.Lock()
	s.live[kind]++
	if s.closed {
		s.mu.Unlock()
		log.Debug().Stringer("kind", kind).Msg("acquire after teardown, releasing")
		h.Release()
		return h
	}
	if len(s.handles) >= compactAt {
		s.compact()
	}
	s.handles = append(s.handles, h)
	s.mu.Unlock()
	return h
}

const compactAt = 64

// compact drops released handles; s.mu is held.
func (s *Scope) compact() {
	kept := s.handles[:0]
	for _, h := range s.handles {
		if !h.done {
			kept = append(kept, h)
		}
	}
	for i := len(kept); i < len(s.handles); i++ {
		s.handles[i] = nil
	}
	s.handles = kept
}

// Close releases every live handle. Calling it again does nothing.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	hs := s.handles
	s.handles = nil
	s.mu.Unlock()

	for k := Kind(0); k < numKinds; k++ {
		for i := len(hs) - 1; i >= 0; i-- {
			if hs[i].kind == k {
				hs[i].Release()
			}
		}
	}
}

// Closed reports whether Close ran.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Live is the number of unreleased handles of kind.
func (s *Scope) Live(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[kind]
}

// Total is the number of unreleased handles of every kind.
func (s *Scope) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.live {
		n += v
	}
	return n
}
