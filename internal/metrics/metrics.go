// v1
// internal/metrics/metrics.go
// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline and the broadcast hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_messages_total",
		Help: "Inbound telemetry messages consumed, by transport.",
	}, []string{"transport"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_messages_dropped_total",
		Help: "Telemetry messages dropped before reconciliation, by reason.",
	}, []string{"reason"})

	slotsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_slots_updated_total",
		Help: "Slot records mutated by the reconciler.",
	})

	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_broadcasts_total",
		Help: "Full-state snapshots pushed to subscribers.",
	})

	sendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_subscriber_send_failures_total",
		Help: "Subscriber connections evicted after a failed snapshot write.",
	})

	subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parking_subscribers",
		Help: "Currently connected live subscribers.",
	})
)

// IncConsumed counts one inbound message for the given transport label.
func IncConsumed(transport string) {
	messagesTotal.WithLabelValues(transport).Inc()
}

// IncDropped counts one dropped message for the given reason label.
func IncDropped(reason string) {
	droppedTotal.WithLabelValues(reason).Inc()
}

// AddSlotsUpdated counts slot records mutated by one reconciled update.
func AddSlotsUpdated(n int) {
	if n > 0 {
		slotsUpdatedTotal.Add(float64(n))
	}
}

// IncBroadcast counts one snapshot fan-out.
func IncBroadcast() {
	broadcastsTotal.Inc()
}

// IncSendFailure counts one evicted subscriber connection.
func IncSendFailure() {
	sendFailuresTotal.Inc()
}

// SetSubscribers records the current subscriber count.
func SetSubscribers(n int) {
	subscribers.Set(float64(n))
}
