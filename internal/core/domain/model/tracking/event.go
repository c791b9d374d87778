package tracking

import (
	"time"

	"tracking/internal/core/domain/model/order"
)

// Kind names an event on the wire.
type Kind string

const (
	KindLocationUpdate    Kind = "location_update"
	KindOrderStatusUpdate Kind = "order_status_update"
)

// Event is the closed set of facts fanned out to the watchers of an order:
// LocationEvent and StatusEvent.
type Event interface {
	Kind() Kind
	// Topic is the order id the event belongs to.
	Topic() string

	isEvent()
}

// LocationEvent announces an accepted sample. ReceivedAt is assigned by the relay.
type LocationEvent struct {
	OrderID    string
	AgentID    string
	Lat        float64
	Lng        float64
	ReceivedAt time.Time
}

// NewLocationEvent builds the broadcast form of an accepted sample.
func NewLocationEvent(sample Sample) LocationEvent {
	return LocationEvent{
		OrderID:    sample.OrderID(),
		AgentID:    sample.AgentID(),
		Lat:        sample.Position().Lat(),
		Lng:        sample.Position().Lng(),
		ReceivedAt: sample.CapturedAt(),
	}
}

func (LocationEvent) Kind() Kind { return KindLocationUpdate }

func (e LocationEvent) Topic() string { return e.OrderID }

func (LocationEvent) isEvent() {}

// StatusEvent announces an applied status transition.
type StatusEvent struct {
	OrderID string
	Status  order.Status
}

func (StatusEvent) Kind() Kind { return KindOrderStatusUpdate }

func (e StatusEvent) Topic() string { return e.OrderID }

func (StatusEvent) isEvent() {}
