// v1
// internal/storage/storage.go
// Package storage is the boundary to the durable slot/lot/admin records. The
// core never issues raw queries; everything goes through the keyed operations
// below so the backing store can be swapped without touching the pipeline.
package storage

import (
	"context"
	"errors"

	"github.com/mtmab2408/smart-parking-backend/internal/models"
)

// ErrNotFound reports that a referenced slot, lot or admin does not exist.
var ErrNotFound = errors.New("not found")

// Store exposes the keyed record operations consumed by the reconciler and
// the HTTP surface. Implementations must be safe for concurrent use.
type Store interface {
	FindSlotByID(ctx context.Context, id int64) (models.Slot, error)
	FindSlotsBySensorID(ctx context.Context, sensorID string) ([]models.Slot, error)
	FindSlotsByLotID(ctx context.Context, lotID int64) ([]models.Slot, error)
	ListSlots(ctx context.Context) ([]models.Slot, error)
	CreateSlot(ctx context.Context, slot models.Slot) (models.Slot, error)
	SaveSlot(ctx context.Context, slot models.Slot) error
	SaveSlots(ctx context.Context, slots []models.Slot) error
	DeleteSlot(ctx context.Context, id int64) error

	FindLotByID(ctx context.Context, id int64) (models.Lot, error)
	ListLots(ctx context.Context) ([]models.Lot, error)
	CreateLot(ctx context.Context, lot models.Lot) (models.Lot, error)
	SaveLot(ctx context.Context, lot models.Lot) error

	FindAdminByID(ctx context.Context, id int64) (models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error)
	SaveAdmin(ctx context.Context, admin models.Admin) error
	DeleteAdmin(ctx context.Context, id int64) error
}
