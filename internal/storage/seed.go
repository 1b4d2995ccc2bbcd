// v1
// internal/storage/seed.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mtmab2408/smart-parking-backend/internal/models"
)

// SeedFile is the on-disk layout of a seed document: a list of lots, each
// carrying its slots. Aggregates in the file are ignored; they are recomputed
// from the slots after loading.
type SeedFile struct {
	Lots []SeedLot `json:"lots"`
}

// SeedLot is one lot with its initial slots.
type SeedLot struct {
	Name      string     `json:"name"`
	Address   string     `json:"address,omitempty"`
	Latitude  float64    `json:"latitude,omitempty"`
	Longitude float64    `json:"longitude,omitempty"`
	Pricing   string     `json:"pricing,omitempty"`
	Slots     []SeedSlot `json:"slots"`
}

// SeedSlot is one slot entry in the seed document.
type SeedSlot struct {
	SlotNumber int    `json:"slotNumber"`
	SensorID   string `json:"sensorId,omitempty"`
	Occupied   bool   `json:"occupied"`
}

// Seed loads the JSON document at path into the store. It is a no-op when the
// store already holds lots, so restarts against a durable backend do not
// duplicate records.
func Seed(ctx context.Context, st Store, path string, log *slog.Logger) error {
	lots, err := st.ListLots(ctx)
	if err != nil {
		return fmt.Errorf("seed precheck: %w", err)
	}
	if len(lots) > 0 {
		log.Info("store already populated, skipping seed", slog.Int("lots", len(lots)))
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", path, err)
	}
	var doc SeedFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}

	slotCount := 0
	for _, seedLot := range doc.Lots {
		lot, err := st.CreateLot(ctx, models.Lot{
			Name:      seedLot.Name,
			Address:   seedLot.Address,
			Latitude:  seedLot.Latitude,
			Longitude: seedLot.Longitude,
			Pricing:   seedLot.Pricing,
		})
		if err != nil {
			return fmt.Errorf("seed lot %q: %w", seedLot.Name, err)
		}
		free := 0
		for _, seedSlot := range seedLot.Slots {
			if _, err := st.CreateSlot(ctx, models.Slot{
				LotID:      lot.ID,
				SlotNumber: seedSlot.SlotNumber,
				SensorID:   seedSlot.SensorID,
				Occupied:   seedSlot.Occupied,
				Status:     models.StatusFromOccupied(seedSlot.Occupied),
			}); err != nil {
				return fmt.Errorf("seed slot %d in lot %q: %w", seedSlot.SlotNumber, seedLot.Name, err)
			}
			if !seedSlot.Occupied {
				free++
			}
			slotCount++
		}
		lot.TotalSlots = len(seedLot.Slots)
		lot.FreeSlots = free
		if err := st.SaveLot(ctx, lot); err != nil {
			return fmt.Errorf("seed lot aggregates %q: %w", seedLot.Name, err)
		}
	}
	log.Info("seeded store", slog.Int("lots", len(doc.Lots)), slog.Int("slots", slotCount))
	return nil
}
