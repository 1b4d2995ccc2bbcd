// v2
// internal/reconcile/reconciler_test.go
package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/mtmab2408/smart-parking-backend/internal/models"
	"github.com/mtmab2408/smart-parking-backend/internal/storage"
)

func newTestReconciler(t *testing.T) (*Reconciler, *storage.MemoryStore) {
	t.Helper()
	st := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, logger), st
}

// seedLot creates one lot with the given slots and returns it with the
// aggregates freshly computed.
func seedLot(t *testing.T, st *storage.MemoryStore, slots ...models.Slot) models.Lot {
	t.Helper()
	ctx := context.Background()
	lot, err := st.CreateLot(ctx, models.Lot{Name: "Main Street Car Park"})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	for _, slot := range slots {
		slot.LotID = lot.ID
		if _, err := st.CreateSlot(ctx, slot); err != nil {
			t.Fatalf("create slot: %v", err)
		}
	}
	return lot
}

func TestApplyBySensorFansOutToSharedSlots(t *testing.T) {
	rec, st := newTestReconciler(t)
	ctx := context.Background()
	seedLot(t, st,
		models.Slot{SlotNumber: 1, SensorID: "S1"},
		models.Slot{SlotNumber: 2, SensorID: "S1"},
		models.Slot{SlotNumber: 3, SensorID: "S2"},
	)

	n, err := rec.ApplyBySensor(ctx, "S1", true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 slots updated, got %d", n)
	}

	slots, _ := st.FindSlotsBySensorID(ctx, "S1")
	for _, slot := range slots {
		if !slot.Occupied || slot.Status != models.StatusOccupied {
			t.Fatalf("slot %d not occupied: %+v", slot.ID, slot)
		}
		if slot.LastSeen == nil {
			t.Fatalf("slot %d lastSeen not set", slot.ID)
		}
	}
	other, _ := st.FindSlotsBySensorID(ctx, "S2")
	if other[0].Occupied {
		t.Fatalf("unrelated sensor slot must stay untouched")
	}
}

func TestApplyBySensorNoMatchIsNotAnError(t *testing.T) {
	rec, st := newTestReconciler(t)
	seedLot(t, st, models.Slot{SlotNumber: 1})

	n, err := rec.ApplyBySensor(context.Background(), "ghost", true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 updates, got %d", n)
	}
}

func TestApplyBySlotIDRedispatchesThroughSensor(t *testing.T) {
	rec, st := newTestReconciler(t)
	ctx := context.Background()
	seedLot(t, st,
		models.Slot{SlotNumber: 1, SensorID: "sensor-01"},
		models.Slot{SlotNumber: 2},
		models.Slot{SlotNumber: 3},
		models.Slot{SlotNumber: 4, SensorID: "sensor-01"},
	)

	// Slot 1 shares sensor-01 with slot 4: a slot-addressed update must
	// produce the same final state as the sensor-addressed one.
	n, err := rec.ApplyBySlotID(ctx, 1, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected fan-out to 2 slots, got %d", n)
	}
	for _, id := range []int64{1, 4} {
		slot, err := st.FindSlotByID(ctx, id)
		if err != nil {
			t.Fatalf("find slot %d: %v", id, err)
		}
		if !slot.Occupied {
			t.Fatalf("slot %d should be occupied", id)
		}
	}
}

func TestApplyBySlotIDDirectWhenNoSensor(t *testing.T) {
	rec, st := newTestReconciler(t)
	ctx := context.Background()
	seedLot(t, st, models.Slot{SlotNumber: 1})

	n, err := rec.ApplyBySlotID(ctx, 1, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 update, got %d", n)
	}
}

func TestApplyBySlotIDNotFound(t *testing.T) {
	rec, _ := newTestReconciler(t)
	if _, err := rec.ApplyBySlotID(context.Background(), 42, true); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAggregatesRecomputedAfterUpdate(t *testing.T) {
	rec, st := newTestReconciler(t)
	ctx := context.Background()
	lot := seedLot(t, st,
		models.Slot{SlotNumber: 1, SensorID: "S1"},
		models.Slot{SlotNumber: 2, SensorID: "S1"},
		models.Slot{SlotNumber: 3},
	)

	if _, err := rec.ApplyBySensor(ctx, "S1", true); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, err := st.FindLotByID(ctx, lot.ID)
	if err != nil {
		t.Fatalf("find lot: %v", err)
	}
	if got.TotalSlots != 3 {
		t.Fatalf("totalSlots=%d want 3", got.TotalSlots)
	}
	if got.FreeSlots != 1 {
		t.Fatalf("freeSlots=%d want 1", got.FreeSlots)
	}

	if _, err := rec.ApplyBySensor(ctx, "S1", false); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ = st.FindLotByID(ctx, lot.ID)
	if got.FreeSlots != 3 {
		t.Fatalf("freeSlots=%d want 3 after freeing", got.FreeSlots)
	}
}

func TestManualOverrideNeverFansOut(t *testing.T) {
	rec, st := newTestReconciler(t)
	ctx := context.Background()
	seedLot(t, st,
		models.Slot{SlotNumber: 1, SensorID: "S1"},
		models.Slot{SlotNumber: 2, SensorID: "S1"},
	)

	slot, err := rec.ManualOverride(ctx, 1, models.StatusOccupied, "kara", "cone on slot")
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if !slot.Occupied || slot.Status != models.StatusOccupied {
		t.Fatalf("override not applied: %+v", slot)
	}

	sibling, _ := st.FindSlotByID(ctx, 2)
	if sibling.Occupied {
		t.Fatalf("sibling sharing the sensor must stay unchanged")
	}
}

func TestManualOverrideUnknownStatus(t *testing.T) {
	rec, st := newTestReconciler(t)
	ctx := context.Background()
	lot := seedLot(t, st, models.Slot{SlotNumber: 1, Occupied: true, Status: models.StatusOccupied})

	slot, err := rec.ManualOverride(ctx, 1, models.StatusUnknown, "kara", "sensor offline")
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if slot.Status != models.StatusUnknown {
		t.Fatalf("status=%s want UNKNOWN", slot.Status)
	}
	got, _ := st.FindLotByID(ctx, lot.ID)
	if got.TotalSlots != 1 {
		t.Fatalf("totalSlots=%d want 1", got.TotalSlots)
	}
}

func TestManualOverrideNotFound(t *testing.T) {
	rec, _ := newTestReconciler(t)
	if _, err := rec.ManualOverride(context.Background(), 99, models.StatusFree, "kara", ""); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyBySensorAcrossLots(t *testing.T) {
	rec, st := newTestReconciler(t)
	ctx := context.Background()
	lotA, err := st.CreateLot(ctx, models.Lot{Name: "A"})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	lotB, err := st.CreateLot(ctx, models.Lot{Name: "B"})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	if _, err := st.CreateSlot(ctx, models.Slot{LotID: lotA.ID, SlotNumber: 1, SensorID: "S9"}); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	if _, err := st.CreateSlot(ctx, models.Slot{LotID: lotB.ID, SlotNumber: 1, SensorID: "S9"}); err != nil {
		t.Fatalf("create slot: %v", err)
	}

	n, err := rec.ApplyBySensor(ctx, "S9", true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updates across lots, got %d", n)
	}
	for _, lotID := range []int64{lotA.ID, lotB.ID} {
		lot, _ := st.FindLotByID(ctx, lotID)
		if lot.FreeSlots != 0 || lot.TotalSlots != 1 {
			t.Fatalf("lot %d aggregates wrong: %+v", lotID, lot)
		}
	}
}
