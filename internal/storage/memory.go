// v2
// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/mtmab2408/smart-parking-backend/internal/models"
)

// MemoryStore keeps all records in mutex-guarded maps. It is the default
// driver for local runs and the store double used by the package tests.
type MemoryStore struct {
	mu          sync.RWMutex
	slots       map[int64]models.Slot
	lots        map[int64]models.Lot
	admins      map[int64]models.Admin
	lastSlotID  int64
	lastLotID   int64
	lastAdminID int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:  make(map[int64]models.Slot),
		lots:   make(map[int64]models.Lot),
		admins: make(map[int64]models.Admin),
	}
}

func (m *MemoryStore) FindSlotByID(_ context.Context, id int64) (models.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.slots[id]
	if !ok {
		return models.Slot{}, ErrNotFound
	}
	return slot, nil
}

func (m *MemoryStore) FindSlotsBySensorID(_ context.Context, sensorID string) ([]models.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Slot
	for _, slot := range m.slots {
		if slot.SensorID != "" && slot.SensorID == sensorID {
			out = append(out, slot)
		}
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStore) FindSlotsByLotID(_ context.Context, lotID int64) ([]models.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Slot
	for _, slot := range m.slots {
		if slot.LotID == lotID {
			out = append(out, slot)
		}
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStore) ListSlots(_ context.Context) ([]models.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Slot, 0, len(m.slots))
	for _, slot := range m.slots {
		out = append(out, slot)
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStore) CreateSlot(_ context.Context, slot models.Slot) (models.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot.ID == 0 {
		m.lastSlotID++
		slot.ID = m.lastSlotID
	} else if slot.ID > m.lastSlotID {
		m.lastSlotID = slot.ID
	}
	if slot.Status == "" {
		slot.Status = models.StatusFromOccupied(slot.Occupied)
	}
	m.slots[slot.ID] = slot
	return slot, nil
}

func (m *MemoryStore) SaveSlot(_ context.Context, slot models.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.ID]; !ok {
		return ErrNotFound
	}
	m.slots[slot.ID] = slot
	return nil
}

func (m *MemoryStore) SaveSlots(ctx context.Context, slots []models.Slot) error {
	for _, slot := range slots {
		if err := m.SaveSlot(ctx, slot); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) DeleteSlot(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return ErrNotFound
	}
	delete(m.slots, id)
	return nil
}

func (m *MemoryStore) FindLotByID(_ context.Context, id int64) (models.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lot, ok := m.lots[id]
	if !ok {
		return models.Lot{}, ErrNotFound
	}
	return lot, nil
}

func (m *MemoryStore) ListLots(_ context.Context) ([]models.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Lot, 0, len(m.lots))
	for _, lot := range m.lots {
		out = append(out, lot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateLot(_ context.Context, lot models.Lot) (models.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lot.ID == 0 {
		m.lastLotID++
		lot.ID = m.lastLotID
	} else if lot.ID > m.lastLotID {
		m.lastLotID = lot.ID
	}
	m.lots[lot.ID] = lot
	return lot, nil
}

func (m *MemoryStore) SaveLot(_ context.Context, lot models.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lots[lot.ID]; !ok {
		return ErrNotFound
	}
	m.lots[lot.ID] = lot
	return nil
}

func (m *MemoryStore) FindAdminByID(_ context.Context, id int64) (models.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	admin, ok := m.admins[id]
	if !ok {
		return models.Admin{}, ErrNotFound
	}
	return admin, nil
}

func (m *MemoryStore) ListAdmins(_ context.Context) ([]models.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Admin, 0, len(m.admins))
	for _, admin := range m.admins {
		out = append(out, admin)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateAdmin(_ context.Context, admin models.Admin) (models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if admin.ID == 0 {
		m.lastAdminID++
		admin.ID = m.lastAdminID
	} else if admin.ID > m.lastAdminID {
		m.lastAdminID = admin.ID
	}
	m.admins[admin.ID] = admin
	return admin, nil
}

func (m *MemoryStore) SaveAdmin(_ context.Context, admin models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[admin.ID]; !ok {
		return ErrNotFound
	}
	m.admins[admin.ID] = admin
	return nil
}

func (m *MemoryStore) DeleteAdmin(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[id]; !ok {
		return ErrNotFound
	}
	delete(m.admins, id)
	return nil
}

func sortSlots(slots []models.Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })
}
