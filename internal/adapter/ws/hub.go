package ws

import (
	"sync"

	"github.com/rs/zerolog"
)

// conn is the write-side of one websocket connection. *websocket.Conn
// satisfies it; tests substitute fakes.
type conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub tracks live websocket connections per user email and fans
// messages out to them. A user may hold several connections at once
// (multiple tabs, multiple devices).
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[conn]struct{}
	log   zerolog.Logger
}

// NewHub creates an empty connection hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns: make(map[string]map[conn]struct{}),
		log:   log.With().Str("component", "ws_hub").Logger(),
	}
}

// Register adds a connection for the user and returns its unregister
// function. The caller must invoke it when the connection closes.
func (h *Hub) Register(email string, c conn) func() {
	h.mu.Lock()
	set, ok := h.conns[email]
	if !ok {
		set = make(map[conn]struct{})
		h.conns[email] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.log.Debug().Str("user", email).Msg("websocket connected")

	return func() {
		h.mu.Lock()
		if set, ok := h.conns[email]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.conns, email)
			}
		}
		h.mu.Unlock()
		h.log.Debug().Str("user", email).Msg("websocket disconnected")
	}
}

// SendToUser writes the message to every live connection for the user
// and returns how many writes succeeded. Connections that fail the
// write are dropped from the hub.
func (h *Hub) SendToUser(email string, message interface{}) int {
	h.mu.RLock()
	targets := make([]conn, 0, len(h.conns[email]))
	for c := range h.conns[email] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.WriteJSON(message); err != nil {
			h.log.Warn().Err(err).Str("user", email).Msg("websocket write failed, dropping connection")
			h.drop(email, c)
			c.Close()
			continue
		}
		sent++
	}
	return sent
}

// ConnectionCount returns the number of live connections for a user.
func (h *Hub) ConnectionCount(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[email])
}

func (h *Hub) drop(email string, c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[email]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, email)
		}
	}
}
