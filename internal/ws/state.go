// Package ws exposes the gallery to remote clients: a control socket that
// requests navigation, event and preview-frame sockets, and a health probe.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcagallery/internal/bus"
	diag "github.com/coreman2200/arcagallery/internal/diagnostics"
)

const writeWait = 200 * time.Millisecond

// Status is what /health and new /events clients see.
type Status struct {
	Index   int     `json:"index"`
	ID      string  `json:"id"`
	Count   int     `json:"count"`
	Health  string  `json:"health"`
	FrameID uint64  `json:"frame_id"`
	Uptime  float64 `json:"uptime_s"`
}

// event is the envelope on /events.
type event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type State struct {
	mu        sync.Mutex
	bus       *bus.Bus
	startTime time.Time
	status    Status

	events map[*websocket.Conn]bool
	frames map[*websocket.Conn]bool
	offs   []func()
}

// NewState follows the gallery on b. first is the slide shown at start.
func NewState(b *bus.Bus, first bus.ChangedMsg) *State {
	s := &State{
		bus:       b,
		startTime: time.Now(),
		status:    Status{Index: first.Index, ID: first.ID, Count: first.Count, Health: "healthy"},
		events:    map[*websocket.Conn]bool{},
		frames:    map[*websocket.Conn]bool{},
	}
	s.offs = append(s.offs,
		b.On(bus.Changed, s.onChanged),
		b.On(bus.Diag, s.onDiag),
	)
	return s
}

// Mux routes the handlers under their usual paths.
func (s *State) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/events", s.HandleEventsWS)
	mux.HandleFunc("/frames", s.HandleFramesWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}

func (s *State) onChanged(p any) {
	m, ok := p.(bus.ChangedMsg)
	if !ok {
		return
	}
	s.mu.Lock()
	s.status.Index, s.status.ID, s.status.Count = m.Index, m.ID, m.Count
	s.mu.Unlock()
	s.broadcast("changed", m)
}

func (s *State) onDiag(p any) {
	d, ok := p.(diag.Diagnostic)
	if !ok {
		return
	}
	s.mu.Lock()
	switch d.Code {
	case diag.SurfaceLost:
		s.status.Health = "lost"
	case diag.SurfaceRestored:
		s.status.Health = "healthy"
	case diag.SurfaceUnsupported:
		s.status.Health = "unsupported"
	}
	s.mu.Unlock()
	s.broadcast("diag", d)
}

// Status snapshots the current state.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *State) snapshot() Status {
	st := s.status
	st.Uptime = time.Since(s.startTime).Seconds()
	return st
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *State) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, s.events, true)
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, s.frames, false)
}

// subscribe upgrades and registers the connection in set until the client
// goes away. With hello the current status is sent first, so a client
// knows it is registered once that arrives.
func (s *State) subscribe(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool, hello bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	set[conn] = true
	if hello {
		b, _ := json.Marshal(event{Type: "status", Payload: s.snapshot()})
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleControlWS turns each JSON message into a navigation request, e.g.
// {"index":2}, {"id":"dusk"} or {"step":-1}, and answers with the status.
func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg bus.NavigateMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("bad control message")
			continue
		}
		s.bus.Emit(bus.Navigate, msg)
		b, _ := json.Marshal(s.Status())
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Status())
}

// PushFrame sends a preview frame (RGB bytes in strip order) to /frames
// clients.
func (s *State) PushFrame(rgb []byte) {
	type frame struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		RGB     []byte `json:"rgb"`
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.FrameID++
	if len(s.frames) == 0 {
		return
	}
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: s.status.FrameID, RGB: rgb})
	for c := range s.frames {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) broadcast(typ string, payload any) {
	b, _ := json.Marshal(event{Type: typ, Payload: payload})
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.events {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write event")
		}
	}
}

// Close unsubscribes from the bus and drops every client.
func (s *State) Close() {
	for _, off := range s.offs {
		off()
	}
	s.offs = nil
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.events {
		c.Close()
	}
	for c := range s.frames {
		c.Close()
	}
}
