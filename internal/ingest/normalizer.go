// v3
// internal/ingest/normalizer.go
// Package ingest turns raw telemetry messages into reconciled slot state:
// normalize the payload, resolve the affected slots, apply the update and
// push one snapshot to live subscribers.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mtmab2408/smart-parking-backend/internal/models"
)

// DropReason labels why a message was discarded before reconciliation.
type DropReason string

const (
	DropMalformed DropReason = "malformed"
	DropNoSpot    DropReason = "no_spot"
	DropNoStatus  DropReason = "no_status"
	DropDecode    DropReason = "error"
)

// DropError reports a message that produced no event. It is terminal for that
// single message only and never propagates up the ingestion loop.
type DropError struct {
	Reason DropReason
	Cause  error
}

func (e *DropError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dropped (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("dropped (%s)", e.Reason)
}

func (e *DropError) Unwrap() error { return e.Cause }

// Normalize parses one raw telemetry message into a canonical occupancy
// reading, tolerant of the format drift seen across sensor firmware.
//
// Sensor identity comes from an explicit sensorId field, falling back to the
// last path segment of the topic. The spot field survives noisy values like
// "spot1" or "spot-2" by keeping only the digits. The status field is
// mandatory and accepts bool, number, or string encodings.
func Normalize(topic string, payload []byte) (models.NormalizedEvent, *DropError) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return models.NormalizedEvent{}, &DropError{Reason: DropMalformed, Cause: err}
	}

	ev := models.NormalizedEvent{Timestamp: time.Now().UTC()}

	if raw, ok := fields["sensorId"]; ok {
		s, ok := scalarString(raw)
		if !ok {
			return models.NormalizedEvent{}, &DropError{Reason: DropDecode, Cause: fmt.Errorf("sensorId is not a scalar")}
		}
		ev.SensorID = strings.TrimSpace(s)
	}
	if ev.SensorID == "" {
		ev.SensorID = sensorIDFromTopic(topic)
	}

	rawSpot, hasSpot := fields["spot"]
	if !hasSpot && ev.SensorID == "" {
		return models.NormalizedEvent{}, &DropError{Reason: DropNoSpot}
	}
	if hasSpot {
		s, ok := scalarString(rawSpot)
		if !ok {
			return models.NormalizedEvent{}, &DropError{Reason: DropDecode, Cause: fmt.Errorf("spot is not a scalar")}
		}
		digits := extractDigits(strings.TrimSpace(s))
		if digits != "" {
			hint, err := strconv.ParseInt(digits, 10, 64)
			if err != nil {
				return models.NormalizedEvent{}, &DropError{Reason: DropDecode, Cause: err}
			}
			ev.SlotHint = hint
			ev.HasSlotHint = true
		}
	}

	rawStatus, ok := fields["status"]
	if !ok {
		return models.NormalizedEvent{}, &DropError{Reason: DropNoStatus}
	}
	occupied, ok := occupiedFromStatus(rawStatus)
	if !ok {
		return models.NormalizedEvent{}, &DropError{Reason: DropDecode, Cause: fmt.Errorf("status is not a scalar")}
	}
	ev.Occupied = occupied

	return ev, nil
}

// sensorIDFromTopic derives the hardware id from the last non-empty topic
// path segment. A bare topic with no path carries no sensor identity.
func sensorIDFromTopic(topic string) string {
	if !strings.Contains(topic, "/") {
		return ""
	}
	segments := strings.Split(topic, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// extractDigits keeps a purely numeric value as-is and otherwise strips
// everything that is not a digit.
func extractDigits(s string) string {
	numeric := s != ""
	for _, r := range s {
		if r < '0' || r > '9' {
			numeric = false
			break
		}
	}
	if numeric {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// occupiedFromStatus resolves the occupied flag in type-priority order:
// boolean directly, number nonzero, otherwise the stringified value must be
// "1" or "true" (case-insensitive).
func occupiedFromStatus(v any) (occupied, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, false
		}
		return f != 0, true
	case string:
		s := strings.TrimSpace(t)
		return s == "1" || strings.EqualFold(s, "true"), true
	default:
		return false, false
	}
}

// scalarString stringifies a scalar JSON value. Objects and arrays are not
// scalars and report failure.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	default:
		return "", false
	}
}
