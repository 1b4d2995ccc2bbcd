// v2
// internal/ingest/coordinator.go
package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mtmab2408/smart-parking-backend/internal/metrics"
	"github.com/mtmab2408/smart-parking-backend/internal/models"
	"github.com/mtmab2408/smart-parking-backend/internal/reconcile"
	"github.com/mtmab2408/smart-parking-backend/internal/storage"
)

// Broadcaster pushes a full slot snapshot to every live subscriber.
type Broadcaster interface {
	Broadcast(slots []models.Slot)
}

// Coordinator wires the pipeline consumed per inbound message and exposes the
// parallel entry points for operator-driven updates. Exactly one broadcast is
// issued per external event, after the reconciler returns, so the sensor
// fan-out re-dispatch can never double-send.
type Coordinator struct {
	store storage.Store
	rec   *reconcile.Reconciler
	hub   Broadcaster
	log   *slog.Logger
}

// NewCoordinator builds the pipeline over the given collaborators.
func NewCoordinator(store storage.Store, rec *reconcile.Reconciler, hub Broadcaster, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store: store,
		rec:   rec,
		hub:   hub,
		log:   logger.With(slog.String("component", "ingest")),
	}
}

// HandleMessage runs normalize → resolve → apply → broadcast for one raw
// telemetry message. Every failure is terminal for this message only: it is
// logged and dropped, never allowed to stop the ingestion loop.
func (c *Coordinator) HandleMessage(ctx context.Context, transport, topic string, payload []byte) {
	metrics.IncConsumed(transport)

	ev, drop := Normalize(topic, payload)
	if drop != nil {
		metrics.IncDropped(string(drop.Reason))
		c.log.Warn("message dropped",
			slog.String("reason", string(drop.Reason)),
			slog.String("topic", topic),
			slog.String("payload", string(payload)))
		return
	}

	updated := 0
	switch target := Resolve(ev); target.Kind {
	case TargetBySensor:
		n, err := c.rec.ApplyBySensor(ctx, target.SensorID, ev.Occupied)
		if err != nil {
			c.log.Error("sensor update failed", slog.String("sensorId", target.SensorID), slog.Any("error", err))
			return
		}
		updated = n
		if n == 0 && ev.HasSlotHint {
			// Sensor not linked to any persisted slot yet; fall back to the
			// slot-addressed update.
			n, err = c.rec.ApplyBySlotID(ctx, ev.SlotHint, ev.Occupied)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				metrics.IncDropped("unknown_slot")
				c.log.Warn("no slot matched", slog.String("sensorId", target.SensorID), slog.Int64("slotHint", ev.SlotHint), slog.String("topic", topic))
				return
			case err != nil:
				c.log.Error("slot update failed", slog.Int64("slotId", ev.SlotHint), slog.Any("error", err))
				return
			}
			updated = n
		}
	case TargetBySlotID:
		n, err := c.rec.ApplyBySlotID(ctx, target.SlotID, ev.Occupied)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			metrics.IncDropped("unknown_slot")
			c.log.Warn("no slot matched", slog.Int64("slotId", target.SlotID), slog.String("topic", topic))
			return
		case err != nil:
			c.log.Error("slot update failed", slog.Int64("slotId", target.SlotID), slog.Any("error", err))
			return
		}
		updated = n
	default:
		metrics.IncDropped("unresolved")
		c.log.Warn("message dropped",
			slog.String("reason", "unresolved"),
			slog.String("topic", topic),
			slog.String("payload", string(payload)))
		return
	}

	if updated > 0 {
		c.broadcastSnapshot(ctx)
	}
}

// HandleGatewayEvent applies a pre-resolved occupancy event relayed by a
// gateway. Returns the number of slots updated; zero means the sensor is not
// mapped to any slot.
func (c *Coordinator) HandleGatewayEvent(ctx context.Context, ev models.GatewayEvent) (int, error) {
	status, err := models.ParseSlotStatus(ev.Status)
	if err != nil {
		// Gateways occasionally send firmware states we do not model; treat
		// them as unknown rather than rejecting the whole event.
		status = models.StatusUnknown
	}
	n, err := c.rec.ApplyStatusBySensor(ctx, ev.SensorID, status)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.broadcastSnapshot(ctx)
	}
	return n, nil
}

// ManualOverride routes an operator override to the reconciler and broadcasts
// on success. ErrNotFound surfaces to the caller.
func (c *Coordinator) ManualOverride(ctx context.Context, slotID int64, status models.SlotStatus, operator, note string) (models.Slot, error) {
	slot, err := c.rec.ManualOverride(ctx, slotID, status, operator, note)
	if err != nil {
		return models.Slot{}, err
	}
	c.broadcastSnapshot(ctx)
	return slot, nil
}

// ApplySlot is the operator slot-status path (PUT /slots/{id}/status). Unlike
// a manual override it goes through the slot-id apply, so it fans out to
// sensor siblings. ErrNotFound surfaces to the caller.
func (c *Coordinator) ApplySlot(ctx context.Context, slotID int64, occupied bool) (int, error) {
	n, err := c.rec.ApplyBySlotID(ctx, slotID, occupied)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.broadcastSnapshot(ctx)
	}
	return n, nil
}

// RefreshLot recomputes one lot's aggregates and pushes a snapshot. Used by
// the CRUD surface after slot create/update/delete.
func (c *Coordinator) RefreshLot(ctx context.Context, lotID int64) error {
	if err := c.rec.RecomputeLot(ctx, lotID); err != nil {
		return err
	}
	c.broadcastSnapshot(ctx)
	return nil
}

func (c *Coordinator) broadcastSnapshot(ctx context.Context) {
	slots, err := c.store.ListSlots(ctx)
	if err != nil {
		c.log.Error("snapshot read failed", slog.Any("error", err))
		return
	}
	c.hub.Broadcast(slots)
	metrics.IncBroadcast()
}
