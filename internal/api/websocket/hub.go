// Package websocket streams recorded security events to connected operator
// dashboards.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/pkg/metrics"
)

// StreamMessage is the envelope pushed to subscribers.
type StreamMessage struct {
	Type      string                `json:"type"`
	Event     *models.SecurityEvent `json:"event,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// Hub maintains active WebSocket connections and broadcasts security events
// to them. Implements security.EventBroadcaster.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a new hub. Call Run on its own goroutine.
func NewHub(ctx context.Context, log *slog.Logger) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        log,
		ctx:        hubCtx,
		cancel:     cancel,
	}
}

// Run starts the hub loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.WebSocketConnectionsActive.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WebSocketConnectionsActive.Dec()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client buffer full, close connection
					close(client.send)
					delete(h.clients, client)
					metrics.WebSocketConnectionsActive.Dec()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop stops the hub and closes all client connections.
func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WebSocketConnectionsActive.Dec()
	}
}

// BroadcastEvent pushes one security event to all connected subscribers.
// Never blocks the caller: if the hub is saturated the event is dropped from
// the stream. The durable record in the store is unaffected.
func (h *Hub) BroadcastEvent(event *models.SecurityEvent) {
	msg := StreamMessage{
		Type:      "security_event",
		Event:     event,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("failed to marshal stream message", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
