// v1
// internal/ingest/resolver.go
package ingest

import "github.com/mtmab2408/smart-parking-backend/internal/models"

// TargetKind tags the resolution outcome for one normalized event.
type TargetKind int

const (
	// TargetNone means neither a sensor id nor a slot hint was derivable.
	TargetNone TargetKind = iota
	// TargetBySensor addresses every slot wired to a hardware sensor id.
	TargetBySensor
	// TargetBySlotID addresses a single slot by its numeric identifier.
	TargetBySlotID
)

// Target is the set of slots a normalized event affects.
type Target struct {
	Kind     TargetKind
	SensorID string
	SlotID   int64
}

// strategy inspects an event and either claims it or passes.
type strategy func(models.NormalizedEvent) (Target, bool)

// Strategies are evaluated in order, first match wins. Sensor identity is the
// more authoritative signal (a sensor can cover several slots); the numeric
// slot hint is a compatibility fallback for firmware that never learned its
// own sensor identity. New strategies slot into the chain without touching
// the existing ones.
var strategies = []strategy{
	func(ev models.NormalizedEvent) (Target, bool) {
		if ev.SensorID == "" {
			return Target{}, false
		}
		return Target{Kind: TargetBySensor, SensorID: ev.SensorID}, true
	},
	func(ev models.NormalizedEvent) (Target, bool) {
		if !ev.HasSlotHint {
			return Target{}, false
		}
		return Target{Kind: TargetBySlotID, SlotID: ev.SlotHint}, true
	},
}

// Resolve maps a normalized event to its target slots.
func Resolve(ev models.NormalizedEvent) Target {
	for _, s := range strategies {
		if target, ok := s(ev); ok {
			return target
		}
	}
	return Target{Kind: TargetNone}
}
