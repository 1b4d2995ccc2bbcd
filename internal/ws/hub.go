// v2
// internal/ws/hub.go
// Package ws fans reconciled slot state out to live WebSocket subscribers.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mtmab2408/smart-parking-backend/internal/metrics"
	"github.com/mtmab2408/smart-parking-backend/internal/models"
)

// writeTimeout bounds a snapshot write so one dead peer cannot stall the
// broadcast loop; a timed-out subscriber is evicted, not retried.
const writeTimeout = 5 * time.Second

// Subscriber is one live connection. Writes are serialized per connection
// because the underlying websocket allows a single concurrent writer.
type Subscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *Subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub maintains the concurrency-safe set of live subscribers. The set is
// never exposed to callers; everything goes through Register, Unregister,
// SendTo and Broadcast.
type Hub struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		log:  logger.With(slog.String("component", "hub")),
		subs: make(map[*Subscriber]struct{}),
	}
}

// Register adds a connection to the set. Registering twice is a no-op for
// the set; each call returns its own subscriber handle.
func (h *Hub) Register(conn *websocket.Conn) *Subscriber {
	sub := &Subscriber{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()
	metrics.SetSubscribers(count)
	h.log.Info("subscriber connected", slog.String("subscriber", sub.id), slog.Int("total", count))
	return sub
}

// Unregister removes a subscriber. Removing an absent one is a no-op.
func (h *Hub) Unregister(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, present := h.subs[sub]
	delete(h.subs, sub)
	count := len(h.subs)
	h.mu.Unlock()
	if !present {
		return
	}
	metrics.SetSubscribers(count)
	h.log.Info("subscriber disconnected", slog.String("subscriber", sub.id), slog.Int("total", count))
}

// Count reports the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast serializes the snapshot once and sends it to every subscriber.
// A failed write evicts that connection only; delivery to the rest continues.
func (h *Hub) Broadcast(slots []models.Slot) {
	data, err := marshalSnapshot(slots)
	if err != nil {
		h.log.Error("snapshot marshal failed", slog.Any("error", err))
		return
	}
	for _, sub := range h.snapshotSubs() {
		if err := sub.send(data); err != nil {
			h.evict(sub, err)
		}
	}
}

// SendTo delivers the current snapshot to one subscriber, used right after
// registration so new viewers start consistent.
func (h *Hub) SendTo(sub *Subscriber, slots []models.Slot) {
	data, err := marshalSnapshot(slots)
	if err != nil {
		h.log.Error("snapshot marshal failed", slog.Any("error", err))
		return
	}
	if err := sub.send(data); err != nil {
		h.evict(sub, err)
	}
}

func (h *Hub) snapshotSubs() []*Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		out = append(out, sub)
	}
	return out
}

func (h *Hub) evict(sub *Subscriber, cause error) {
	metrics.IncSendFailure()
	h.log.Warn("evicting subscriber", slog.String("subscriber", sub.id), slog.Any("error", cause))
	h.Unregister(sub)
	_ = sub.conn.Close()
}

func marshalSnapshot(slots []models.Slot) ([]byte, error) {
	if slots == nil {
		slots = []models.Slot{}
	}
	return json.Marshal(models.SlotUpdateMessage{Type: "slots", Slots: slots})
}
