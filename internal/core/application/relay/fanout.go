package relay

import (
	"log/slog"

	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/model/tracking"
	"tracking/internal/core/ports"
	"tracking/internal/metrics"
)

// Fanout delivers events to the sessions subscribed to an order. It resolves the
// subscriber set at publish time and never blocks on a slow session.
type Fanout struct {
	registry *Registry
	logger   *slog.Logger
}

func NewFanout(registry *Registry, logger *slog.Logger) *Fanout {
	return &Fanout{
		registry: registry,
		logger:   logger.With("component", "fanout"),
	}
}

// Publish hands the event to every current subscriber of orderID and returns how
// many outboxes accepted it. Zero subscribers is not an error.
func (f *Fanout) Publish(orderID string, event tracking.Event) int {
	frame := ports.EventFrame{Event: event}

	delivered := 0
	for _, s := range f.registry.Subscribers(orderID) {
		if s.Deliver(frame) {
			delivered++
		}
	}

	metrics.EventsPublishedTotal.WithLabelValues(string(event.Kind())).Add(float64(delivered))
	f.logger.Debug("Event published", "order", orderID, "kind", event.Kind(), "sessions", delivered)
	return delivered
}

// SendTo queues a control frame for a single session.
func (f *Fanout) SendTo(sessionID string, frame ports.Frame) bool {
	s, ok := f.registry.Session(sessionID)
	if !ok {
		return false
	}
	return s.Deliver(frame)
}

// StopTracking tells the agent's subscribed sessions that the order reached a
// terminal status and no more samples are wanted.
func (f *Fanout) StopTracking(orderID, agentID string, status order.Status) {
	if agentID == "" {
		return
	}

	frame := ports.TrackingStoppedFrame{OrderID: orderID, Status: status.String()}
	for _, s := range f.registry.Subscribers(orderID) {
		if s.Identity().UserID() == agentID {
			s.Deliver(frame)
		}
	}
}
