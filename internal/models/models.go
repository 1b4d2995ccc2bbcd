// v1
// internal/models/models.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// SlotStatus is the operator-visible occupancy state of a slot. It is wider
// than the boolean sensors report so a manual override can mark a slot as
// unknown (sensor offline, disputed reading) without claiming it free.
type SlotStatus string

const (
	StatusFree     SlotStatus = "FREE"
	StatusOccupied SlotStatus = "OCCUPIED"
	StatusUnknown  SlotStatus = "UNKNOWN"
)

// ParseSlotStatus maps the textual status carried by override requests and
// gateway events onto the enum. Unrecognized values are an error so operator
// typos surface instead of silently flipping a slot.
func ParseSlotStatus(raw string) (SlotStatus, error) {
	switch SlotStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusFree:
		return StatusFree, nil
	case StatusOccupied:
		return StatusOccupied, nil
	case StatusUnknown:
		return StatusUnknown, nil
	default:
		return "", fmt.Errorf("invalid slot status %q", raw)
	}
}

// StatusFromOccupied converts the boolean reported by sensors into the enum.
func StatusFromOccupied(occupied bool) SlotStatus {
	if occupied {
		return StatusOccupied
	}
	return StatusFree
}

// Slot is one physical parking space. SensorID is optional and deliberately
// not unique: one sensor may cover several slots (double bays), so a single
// reading can fan out to every slot sharing the hardware id.
type Slot struct {
	ID         int64      `json:"id"`
	LotID      int64      `json:"lotId"`
	SlotNumber int        `json:"slotNumber"`
	SensorID   string     `json:"sensorId,omitempty"`
	Occupied   bool       `json:"occupied"`
	Status     SlotStatus `json:"status"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
}

// Lot is a named collection of slots. TotalSlots and FreeSlots are derived
// aggregates recomputed after every slot mutation; they are never hand-edited.
type Lot struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Pricing    string  `json:"pricing,omitempty"`
	TotalSlots int     `json:"totalSlots"`
	FreeSlots  int     `json:"freeSlots"`
}

// Admin is a dashboard operator account. Persistence only; request handling
// decides what to do with the credentials.
type Admin struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// NormalizedEvent is the canonical occupancy reading derived from one raw
// telemetry message. It lives only for the duration of a single pipeline
// invocation.
type NormalizedEvent struct {
	SensorID    string
	SlotHint    int64
	HasSlotHint bool
	Occupied    bool
	Timestamp   time.Time
}

// GatewayEvent is the envelope gateways POST (or relay through Kafka) when
// they pre-resolve a sensor identity themselves.
type GatewayEvent struct {
	GatewayID string     `json:"gatewayId,omitempty"`
	SensorID  string     `json:"sensorId"`
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// SlotUpdateMessage is the snapshot pushed to every live subscriber after a
// reconciled change. Always the full slot list; clients stay stateless.
type SlotUpdateMessage struct {
	Type  string `json:"type"`
	Slots []Slot `json:"slots"`
}
