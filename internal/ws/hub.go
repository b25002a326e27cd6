package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Envelope is the wire format for every broadcast frame.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub fans broadcast frames out to every connected client. One hub instance
// is created at startup and lives for the process lifetime. There is no
// per-client targeting, acknowledgment or delivery guarantee.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
}

// NewHub creates the hub. Call Run in a goroutine before serving connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes client registration until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			log.Printf("ws: client connected (%d active)", h.clientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("ws: client disconnected (%d active)", h.clientCount())
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a named event to all connected clients. Marshal failures
// and slow clients are logged and dropped; broadcasting never fails the
// caller.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Printf("ws: failed to marshal %s broadcast: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- frame:
		default:
			// Buffer full or client dead; skip rather than block the gate.
			log.Printf("ws: dropping %s frame for slow client", event)
		}
	}
}
