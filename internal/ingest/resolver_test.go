// v1
// internal/ingest/resolver_test.go
package ingest

import (
	"testing"

	"github.com/mtmab2408/smart-parking-backend/internal/models"
)

func TestResolveSensorWinsOverSlotHint(t *testing.T) {
	target := Resolve(models.NormalizedEvent{SensorID: "sensor-01", SlotHint: 3, HasSlotHint: true})
	if target.Kind != TargetBySensor {
		t.Fatalf("expected BySensor, got %v", target.Kind)
	}
	if target.SensorID != "sensor-01" {
		t.Fatalf("unexpected sensor id %q", target.SensorID)
	}
}

func TestResolveSlotHintFallback(t *testing.T) {
	target := Resolve(models.NormalizedEvent{SlotHint: 3, HasSlotHint: true})
	if target.Kind != TargetBySlotID {
		t.Fatalf("expected BySlotID, got %v", target.Kind)
	}
	if target.SlotID != 3 {
		t.Fatalf("unexpected slot id %d", target.SlotID)
	}
}

func TestResolveNone(t *testing.T) {
	target := Resolve(models.NormalizedEvent{})
	if target.Kind != TargetNone {
		t.Fatalf("expected None, got %v", target.Kind)
	}
}
