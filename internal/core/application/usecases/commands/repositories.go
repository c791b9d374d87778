// Package commands contains the relay operations that modify state: location
// ingestion and order status transitions. Every command is validated on
// construction, runs inside a unit of work, and publishes its event only after
// the unit of work committed.
package commands

import (
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/model/tracking"
)

type (
	// Publisher fans an event out to the current watchers of an order.
	Publisher interface {
		Publish(orderID string, event tracking.Event) int
	}

	// TrackingStopper is told when an order reaches a terminal status so that
	// anything still producing samples for it can stop.
	TrackingStopper interface {
		StopTracking(orderID, agentID string, status order.Status)
	}
)
