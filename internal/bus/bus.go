// Package bus is a small process-wide publish/subscribe hub keyed by event
// name. Parts of the program that hold no reference to the gallery use it to
// request navigation, and the gallery announces slide changes on it.
package bus

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event names used by the gallery.
const (
	Navigate = "gallery:navigate" // inbound: NavigateMsg
	Changed  = "gallery:changed"  // outbound: ChangedMsg
	Diag     = "gallery:diag"     // outbound: diagnostics.Diagnostic
)

// NavigateMsg asks the gallery to jump to a slide by index or by id, or to
// step relative to the current one. Index wins over ID, ID over Step.
type NavigateMsg struct {
	Index *int   `json:"index,omitempty"`
	ID    string `json:"id,omitempty"`
	Step  int    `json:"step,omitempty"`
}

// ChangedMsg is published once per completed transition.
type ChangedMsg struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Handler receives an event payload.
type Handler func(payload any)

// Bus dispatches events synchronously on the emitting goroutine.
type Bus struct {
	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]Handler
}

// Default is the process-wide bus.
var Default = New()

func New() *Bus {
	return &Bus{subs: map[string]map[uint64]Handler{}}
}

// On subscribes h to name. The returned func unsubscribes; calling it more
// than once is harmless.
func (b *Bus) On(name string, h Handler) (off func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	m := b.subs[name]
	if m == nil {
		m = map[uint64]Handler{}
		b.subs[name] = m
	}
	m[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.subs[name]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.subs, name)
			}
		}
	}
}

// Emit calls every handler of name. Handlers may subscribe or unsubscribe
// while being called; a panicking handler is logged and skipped.
func (b *Bus) Emit(name string, payload any) {
	b.mu.Lock()
	hs := make([]Handler, 0, len(b.subs[name]))
	for _, h := range b.subs[name] {
		hs = append(hs, h)
	}
	b.mu.Unlock()
	for _, h := range hs {
		call(name, h, payload)
	}
}

func call(name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("event", name).Interface("panic", r).Msg("bus handler panicked")
		}
	}()
	h(payload)
}

// Listeners is the number of handlers subscribed to name.
func (b *Bus) Listeners(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// Total is the number of handlers across all names.
func (b *Bus) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.subs {
		n += len(m)
	}
	return n
}
