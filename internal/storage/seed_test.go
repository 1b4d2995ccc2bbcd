// v1
// internal/storage/seed_test.go
package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mtmab2408/smart-parking-backend/internal/models"
)

const seedDoc = `{
  "lots": [
    {
      "name": "CPS2 Smart Garage",
      "address": "1 Campus Way",
      "slots": [
        {"slotNumber": 1, "sensorId": "sensor-01"},
        {"slotNumber": 2, "sensorId": "sensor-01", "occupied": true},
        {"slotNumber": 3}
      ]
    }
  ]
}`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedLoadsLotsAndAggregates(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := Seed(ctx, st, writeSeedFile(t, seedDoc), discardLogger()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	lots, _ := st.ListLots(ctx)
	if len(lots) != 1 {
		t.Fatalf("expected 1 lot, got %d", len(lots))
	}
	lot := lots[0]
	if lot.TotalSlots != 3 || lot.FreeSlots != 2 {
		t.Fatalf("aggregates wrong: %+v", lot)
	}

	slots, _ := st.FindSlotsByLotID(ctx, lot.ID)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	occupied, _ := st.FindSlotByID(ctx, slots[1].ID)
	if !occupied.Occupied || occupied.Status != models.StatusOccupied {
		t.Fatalf("seeded occupied slot wrong: %+v", occupied)
	}
}

func TestSeedSkipsPopulatedStore(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	if _, err := st.CreateLot(ctx, models.Lot{Name: "existing"}); err != nil {
		t.Fatalf("create lot: %v", err)
	}

	if err := Seed(ctx, st, writeSeedFile(t, seedDoc), discardLogger()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	lots, _ := st.ListLots(ctx)
	if len(lots) != 1 {
		t.Fatalf("seed must be a no-op on a populated store, got %d lots", len(lots))
	}
}

func TestSeedMissingFile(t *testing.T) {
	st := NewMemoryStore()
	if err := Seed(context.Background(), st, "/does/not/exist.json", discardLogger()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSeedMalformedFile(t *testing.T) {
	st := NewMemoryStore()
	if err := Seed(context.Background(), st, writeSeedFile(t, `{nope`), discardLogger()); err == nil {
		t.Fatalf("expected error for malformed file")
	}
}
