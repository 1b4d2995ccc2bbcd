// v2
// internal/reconcile/reconciler.go
// Package reconcile applies resolved occupancy updates to slot records and
// keeps the owning lots' derived aggregates consistent.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mtmab2408/smart-parking-backend/internal/metrics"
	"github.com/mtmab2408/smart-parking-backend/internal/models"
	"github.com/mtmab2408/smart-parking-backend/internal/storage"
)

// Reconciler is the only writer of slot occupancy and lot aggregates. All
// mutations for one update are serialized per lot, so the fresh read used to
// recompute FreeSlots/TotalSlots is consistent with the just-applied write.
type Reconciler struct {
	store storage.Store
	log   *slog.Logger

	mu       sync.Mutex
	lotLocks map[int64]*sync.Mutex
}

// New wires a reconciler over the given store.
func New(store storage.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		log:      logger.With(slog.String("component", "reconciler")),
		lotLocks: make(map[int64]*sync.Mutex),
	}
}

// lockLots acquires the per-lot locks for the given ids in sorted order and
// returns the matching unlock function.
func (r *Reconciler) lockLots(lotIDs []int64) func() {
	ids := append([]int64(nil), lotIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	locks := make([]*sync.Mutex, 0, len(ids))
	var prev int64 = -1
	for _, id := range ids {
		if id == prev {
			continue
		}
		prev = id
		locks = append(locks, r.lotLock(id))
	}
	for _, l := range locks {
		l.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

func (r *Reconciler) lotLock(lotID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lotLocks[lotID]
	if !ok {
		l = &sync.Mutex{}
		r.lotLocks[lotID] = l
	}
	return l
}

func lotIDsOf(slots []models.Slot) []int64 {
	seen := make(map[int64]struct{}, len(slots))
	var ids []int64
	for _, slot := range slots {
		if _, ok := seen[slot.LotID]; ok {
			continue
		}
		seen[slot.LotID] = struct{}{}
		ids = append(ids, slot.LotID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsAll(locked, needed []int64) bool {
	held := make(map[int64]struct{}, len(locked))
	for _, id := range locked {
		held[id] = struct{}{}
	}
	for _, id := range needed {
		if _, ok := held[id]; !ok {
			return false
		}
	}
	return true
}

// ApplyBySensor sets the occupancy reported by a sensor on every slot wired
// to it. Zero matches is not an error; the caller decides whether to fall
// back to a slot-addressed update.
func (r *Reconciler) ApplyBySensor(ctx context.Context, sensorID string, occupied bool) (int, error) {
	return r.ApplyStatusBySensor(ctx, sensorID, models.StatusFromOccupied(occupied))
}

// ApplyStatusBySensor is the enumerated-status variant used by the gateway
// relay path. It fans the status out to every slot sharing the sensor.
func (r *Reconciler) ApplyStatusBySensor(ctx context.Context, sensorID string, status models.SlotStatus) (int, error) {
	if sensorID == "" {
		return 0, nil
	}
	for {
		slots, err := r.store.FindSlotsBySensorID(ctx, sensorID)
		if err != nil {
			return 0, fmt.Errorf("find slots for sensor %q: %w", sensorID, err)
		}
		if len(slots) == 0 {
			return 0, nil
		}
		lots := lotIDsOf(slots)
		unlock := r.lockLots(lots)

		// Re-read under the lot locks; the set may have shifted between the
		// optimistic read and lock acquisition.
		slots, err = r.store.FindSlotsBySensorID(ctx, sensorID)
		if err != nil {
			unlock()
			return 0, fmt.Errorf("find slots for sensor %q: %w", sensorID, err)
		}
		if !containsAll(lots, lotIDsOf(slots)) {
			unlock()
			continue
		}

		count, err := r.applyLocked(ctx, slots, status)
		unlock()
		return count, err
	}
}

// ApplyBySlotID applies an update addressed by slot id. When the slot is
// linked to a sensor the update is re-dispatched through the sensor path so
// every slot sharing that hardware id stays in sync.
func (r *Reconciler) ApplyBySlotID(ctx context.Context, slotID int64, occupied bool) (int, error) {
	slot, err := r.store.FindSlotByID(ctx, slotID)
	if err != nil {
		return 0, err
	}
	if slot.SensorID != "" {
		return r.ApplyBySensor(ctx, slot.SensorID, occupied)
	}

	unlock := r.lockLots([]int64{slot.LotID})
	defer unlock()
	slot, err = r.store.FindSlotByID(ctx, slotID)
	if err != nil {
		return 0, err
	}
	return r.applyLocked(ctx, []models.Slot{slot}, models.StatusFromOccupied(occupied))
}

// applyLocked writes the status to the given slots and recomputes every
// touched lot. Callers must hold the lot locks for all involved lots.
func (r *Reconciler) applyLocked(ctx context.Context, slots []models.Slot, status models.SlotStatus) (int, error) {
	now := time.Now().UTC()
	occupied := status == models.StatusOccupied
	for i := range slots {
		slots[i].Occupied = occupied
		slots[i].Status = status
		ts := now
		slots[i].LastSeen = &ts
	}
	if err := r.store.SaveSlots(ctx, slots); err != nil {
		return 0, fmt.Errorf("save slots: %w", err)
	}
	for _, lotID := range lotIDsOf(slots) {
		if err := r.recomputeLotLocked(ctx, lotID); err != nil {
			return 0, err
		}
	}
	metrics.AddSlotsUpdated(len(slots))
	return len(slots), nil
}

// ManualOverride sets an operator-chosen status on exactly one slot. It never
// fans out: overriding one physical slot must not silently override siblings
// sharing a sensor.
func (r *Reconciler) ManualOverride(ctx context.Context, slotID int64, status models.SlotStatus, operator, note string) (models.Slot, error) {
	slot, err := r.store.FindSlotByID(ctx, slotID)
	if err != nil {
		return models.Slot{}, err
	}

	unlock := r.lockLots([]int64{slot.LotID})
	defer unlock()
	slot, err = r.store.FindSlotByID(ctx, slotID)
	if err != nil {
		return models.Slot{}, err
	}

	now := time.Now().UTC()
	slot.Status = status
	slot.Occupied = status == models.StatusOccupied
	slot.LastSeen = &now
	if err := r.store.SaveSlot(ctx, slot); err != nil {
		return models.Slot{}, fmt.Errorf("save slot %d: %w", slotID, err)
	}
	if err := r.recomputeLotLocked(ctx, slot.LotID); err != nil {
		return models.Slot{}, err
	}
	metrics.AddSlotsUpdated(1)
	r.log.Info("manual override applied",
		slog.Int64("slotId", slotID),
		slog.String("status", string(status)),
		slog.String("operator", operator),
		slog.String("note", note))
	return slot, nil
}

// RecomputeLot refreshes the derived aggregates of one lot. Used by the CRUD
// surface after slot creation or deletion.
func (r *Reconciler) RecomputeLot(ctx context.Context, lotID int64) error {
	unlock := r.lockLots([]int64{lotID})
	defer unlock()
	return r.recomputeLotLocked(ctx, lotID)
}

// recomputeLotLocked recounts the lot aggregates from a fresh read of all its
// slots. Always from scratch, never incrementally, so a missed event cannot
// make the counters drift.
func (r *Reconciler) recomputeLotLocked(ctx context.Context, lotID int64) error {
	slots, err := r.store.FindSlotsByLotID(ctx, lotID)
	if err != nil {
		return fmt.Errorf("find slots for lot %d: %w", lotID, err)
	}
	lot, err := r.store.FindLotByID(ctx, lotID)
	if err != nil {
		return fmt.Errorf("find lot %d: %w", lotID, err)
	}
	free := 0
	for _, slot := range slots {
		if slot.Status == models.StatusFree || !slot.Occupied {
			free++
		}
	}
	lot.FreeSlots = free
	lot.TotalSlots = len(slots)
	if err := r.store.SaveLot(ctx, lot); err != nil {
		return fmt.Errorf("save lot %d: %w", lotID, err)
	}
	return nil
}
