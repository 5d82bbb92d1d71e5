package websocket

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sndwiz/veriscase-backend/internal/auth"
)

// Handler upgrades HTTP requests to the security event stream.
type Handler struct {
	hub            *Hub
	allowedOrigins map[string]bool
	ctx            context.Context
}

// NewHandler creates a WebSocket handler. allowedOrigins lists the origins
// permitted to open the stream; empty means same-host-only per the upgrader
// default.
func NewHandler(ctx context.Context, hub *Hub, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{hub: hub, allowedOrigins: origins, ctx: ctx}
}

func (h *Handler) upgrader() websocket.Upgrader {
	up := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(h.allowedOrigins) > 0 {
		up.CheckOrigin = func(r *http.Request) bool {
			return h.allowedOrigins[r.Header.Get("Origin")]
		}
	}
	return up
}

// ServeWS handles GET /security/events/stream. Admin only: the stream
// carries the same data as the events listing.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, `{"error":"Authentication required"}`, http.StatusUnauthorized)
		return
	}
	if !auth.IsAdmin(claims) {
		http.Error(w, `{"error":"Admin access required"}`, http.StatusForbidden)
		return
	}

	up := h.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.ctx, h.hub, conn, uuid.New().String())
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
