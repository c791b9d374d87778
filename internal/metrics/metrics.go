// Package metrics exposes Prometheus metrics for the tracking relay.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_sessions_active",
			Help: "Number of connected sessions",
		},
	)

	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_subscriptions_active",
			Help: "Number of session to order subscriptions",
		},
	)

	ConnectionsRefusedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_connections_refused_total",
			Help: "Connections refused because the credential could not be resolved",
		},
	)

	SamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_location_samples_total",
			Help: "Location samples received, by outcome",
		},
		[]string{"outcome"},
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_status_transitions_total",
			Help: "Status transition requests, by target status and outcome",
		},
		[]string{"status", "outcome"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_published_total",
			Help: "Events handed to session outboxes, by kind",
		},
		[]string{"kind"},
	)

	FramesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Frames evicted from full session outboxes",
		},
	)

	SimulationsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_simulations_active",
			Help: "Simulated deliveries currently scheduled",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_ingest_duration_seconds",
			Help:    "Duration of location ingestion including persistence",
			Buckets: prometheus.DefBuckets,
		},
	)
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var registerOnce sync.Once

// Register registers all relay metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SessionsActive,
			SubscriptionsActive,
			ConnectionsRefusedTotal,
			SamplesTotal,
			TransitionsTotal,
			EventsPublishedTotal,
			FramesDroppedTotal,
			SimulationsActive,
			IngestDuration,
		)
	})
}
