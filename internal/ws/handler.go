// v1
// internal/ws/handler.go
package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mtmab2408/smart-parking-backend/internal/storage"
)

// Handler upgrades HTTP requests on the live-view endpoint, registers the
// connection with the hub and delivers the initial snapshot.
type Handler struct {
	hub      *Hub
	store    storage.Store
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler wires the WebSocket endpoint. The dashboard is served from a
// different origin, so cross-origin upgrades are allowed.
func NewHandler(hub *Hub, store storage.Store, logger *slog.Logger) *Handler {
	return &Handler{
		hub:   hub,
		store: store,
		log:   logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP runs the subscriber lifecycle: upgrade, register, snapshot, then
// block on the read loop until the peer disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", slog.Any("error", err))
		return
	}

	sub := h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(sub)
		_ = conn.Close()
	}()

	slots, err := h.store.ListSlots(r.Context())
	if err != nil {
		h.log.Error("initial snapshot read failed", slog.Any("error", err))
	} else {
		h.hub.SendTo(sub, slots)
	}

	// Subscribers only listen; the read loop exists to notice disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
