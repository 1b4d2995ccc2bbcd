// v1
// internal/storage/postgres.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtmab2408/smart-parking-backend/internal/models"
)

// PostgresStore persists records through a pgx connection pool. Selected by
// STORAGE_DRIVER=postgres; the schema below is applied at startup so fresh
// databases work without a migration step.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS parking_lot (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
	pricing     TEXT NOT NULL DEFAULT '',
	total_slots INTEGER NOT NULL DEFAULT 0,
	free_slots  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS parking_slot (
	id          BIGSERIAL PRIMARY KEY,
	lot_id      BIGINT NOT NULL REFERENCES parking_lot(id) ON DELETE CASCADE,
	slot_number INTEGER NOT NULL,
	sensor_id   TEXT NOT NULL DEFAULT '',
	occupied    BOOLEAN NOT NULL DEFAULT FALSE,
	status      TEXT NOT NULL DEFAULT 'FREE',
	last_seen   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS parking_slot_sensor_idx ON parking_slot(sensor_id) WHERE sensor_id <> '';
CREATE INDEX IF NOT EXISTS parking_slot_lot_idx ON parking_slot(lot_id);
CREATE TABLE IF NOT EXISTS admin_account (
	id       BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL
);
`

// NewPostgresStore connects, pings and applies the schema.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

const slotColumns = "id, lot_id, slot_number, sensor_id, occupied, status, last_seen"

func scanSlot(row pgx.Row) (models.Slot, error) {
	var slot models.Slot
	err := row.Scan(&slot.ID, &slot.LotID, &slot.SlotNumber, &slot.SensorID, &slot.Occupied, &slot.Status, &slot.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Slot{}, ErrNotFound
	}
	return slot, err
}

func (p *PostgresStore) querySlots(ctx context.Context, query string, args ...any) ([]models.Slot, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Slot
	for rows.Next() {
		var slot models.Slot
		if err := rows.Scan(&slot.ID, &slot.LotID, &slot.SlotNumber, &slot.SensorID, &slot.Occupied, &slot.Status, &slot.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (p *PostgresStore) FindSlotByID(ctx context.Context, id int64) (models.Slot, error) {
	return scanSlot(p.pool.QueryRow(ctx, "SELECT "+slotColumns+" FROM parking_slot WHERE id=$1", id))
}

func (p *PostgresStore) FindSlotsBySensorID(ctx context.Context, sensorID string) ([]models.Slot, error) {
	if sensorID == "" {
		return nil, nil
	}
	return p.querySlots(ctx, "SELECT "+slotColumns+" FROM parking_slot WHERE sensor_id=$1 ORDER BY id", sensorID)
}

func (p *PostgresStore) FindSlotsByLotID(ctx context.Context, lotID int64) ([]models.Slot, error) {
	return p.querySlots(ctx, "SELECT "+slotColumns+" FROM parking_slot WHERE lot_id=$1 ORDER BY id", lotID)
}

func (p *PostgresStore) ListSlots(ctx context.Context) ([]models.Slot, error) {
	return p.querySlots(ctx, "SELECT "+slotColumns+" FROM parking_slot ORDER BY id")
}

func (p *PostgresStore) CreateSlot(ctx context.Context, slot models.Slot) (models.Slot, error) {
	if slot.Status == "" {
		slot.Status = models.StatusFromOccupied(slot.Occupied)
	}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO parking_slot (lot_id, slot_number, sensor_id, occupied, status, last_seen)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		slot.LotID, slot.SlotNumber, slot.SensorID, slot.Occupied, slot.Status, slot.LastSeen,
	).Scan(&slot.ID)
	if err != nil {
		return models.Slot{}, fmt.Errorf("insert slot: %w", err)
	}
	return slot, nil
}

func (p *PostgresStore) SaveSlot(ctx context.Context, slot models.Slot) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE parking_slot SET lot_id=$2, slot_number=$3, sensor_id=$4, occupied=$5, status=$6, last_seen=$7 WHERE id=$1`,
		slot.ID, slot.LotID, slot.SlotNumber, slot.SensorID, slot.Occupied, slot.Status, slot.LastSeen)
	if err != nil {
		return fmt.Errorf("update slot %d: %w", slot.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) SaveSlots(ctx context.Context, slots []models.Slot) error {
	for _, slot := range slots {
		if err := p.SaveSlot(ctx, slot); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresStore) DeleteSlot(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM parking_slot WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("delete slot %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const lotColumns = "id, name, address, latitude, longitude, pricing, total_slots, free_slots"

func (p *PostgresStore) FindLotByID(ctx context.Context, id int64) (models.Lot, error) {
	var lot models.Lot
	err := p.pool.QueryRow(ctx, "SELECT "+lotColumns+" FROM parking_lot WHERE id=$1", id).
		Scan(&lot.ID, &lot.Name, &lot.Address, &lot.Latitude, &lot.Longitude, &lot.Pricing, &lot.TotalSlots, &lot.FreeSlots)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Lot{}, ErrNotFound
	}
	return lot, err
}

func (p *PostgresStore) ListLots(ctx context.Context) ([]models.Lot, error) {
	rows, err := p.pool.Query(ctx, "SELECT "+lotColumns+" FROM parking_lot ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Lot
	for rows.Next() {
		var lot models.Lot
		if err := rows.Scan(&lot.ID, &lot.Name, &lot.Address, &lot.Latitude, &lot.Longitude, &lot.Pricing, &lot.TotalSlots, &lot.FreeSlots); err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateLot(ctx context.Context, lot models.Lot) (models.Lot, error) {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO parking_lot (name, address, latitude, longitude, pricing, total_slots, free_slots)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		lot.Name, lot.Address, lot.Latitude, lot.Longitude, lot.Pricing, lot.TotalSlots, lot.FreeSlots,
	).Scan(&lot.ID)
	if err != nil {
		return models.Lot{}, fmt.Errorf("insert lot: %w", err)
	}
	return lot, nil
}

func (p *PostgresStore) SaveLot(ctx context.Context, lot models.Lot) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE parking_lot SET name=$2, address=$3, latitude=$4, longitude=$5, pricing=$6, total_slots=$7, free_slots=$8 WHERE id=$1`,
		lot.ID, lot.Name, lot.Address, lot.Latitude, lot.Longitude, lot.Pricing, lot.TotalSlots, lot.FreeSlots)
	if err != nil {
		return fmt.Errorf("update lot %d: %w", lot.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) FindAdminByID(ctx context.Context, id int64) (models.Admin, error) {
	var admin models.Admin
	err := p.pool.QueryRow(ctx, "SELECT id, username, password FROM admin_account WHERE id=$1", id).
		Scan(&admin.ID, &admin.Username, &admin.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Admin{}, ErrNotFound
	}
	return admin, err
}

func (p *PostgresStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := p.pool.Query(ctx, "SELECT id, username, password FROM admin_account ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Admin
	for rows.Next() {
		var admin models.Admin
		if err := rows.Scan(&admin.ID, &admin.Username, &admin.Password); err != nil {
			return nil, err
		}
		out = append(out, admin)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error) {
	err := p.pool.QueryRow(ctx,
		"INSERT INTO admin_account (username, password) VALUES ($1,$2) RETURNING id",
		admin.Username, admin.Password,
	).Scan(&admin.ID)
	if err != nil {
		return models.Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	return admin, nil
}

func (p *PostgresStore) SaveAdmin(ctx context.Context, admin models.Admin) error {
	tag, err := p.pool.Exec(ctx,
		"UPDATE admin_account SET username=$2, password=$3 WHERE id=$1",
		admin.ID, admin.Username, admin.Password)
	if err != nil {
		return fmt.Errorf("update admin %d: %w", admin.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) DeleteAdmin(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM admin_account WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("delete admin %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
