package socket

import (
	"log/slog"
	"sync"

	"github.com/haze-team/haze-server/src/matching"
)

// Hub delivers engine events to live sockets. Sends never block: a client
// whose buffer is full loses the frame.
type Hub struct {
	mu      sync.RWMutex
	clients map[matching.ConnID]*client
	log     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[matching.ConnID]*client),
		log:     logger.With("component", "socket_hub"),
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) remove(id matching.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit sends event to one connection
func (h *Hub) Emit(id matching.ConnID, event string, data any) {
	msg, err := Encode(event, data)
	if err != nil {
		h.log.Error("failed to encode frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	c := h.clients[id]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if !c.enqueue(msg) {
		h.log.Warn("dropping frame for slow client", "conn", id, "event", event)
	}
}

// Broadcast sends event to every connection
func (h *Hub) Broadcast(event string, data any) {
	msg, err := Encode(event, data)
	if err != nil {
		h.log.Error("failed to encode frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if !c.enqueue(msg) {
			h.log.Warn("dropping frame for slow client", "conn", id, "event", event)
		}
	}
}

// CloseAll drops every live socket. Their read loops then end and
// report the disconnect to the engine.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.close()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}
