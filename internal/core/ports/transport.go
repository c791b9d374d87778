package ports

import (
	"context"

	"tracking/internal/core/domain/model/tracking"
)

// Frame is anything the relay writes to a client: a tracking.Event or a control frame.
type Frame interface {
	FrameType() string
}

// EventFrame wraps a fanned out event.
type EventFrame struct {
	Event tracking.Event
}

func (f EventFrame) FrameType() string { return string(f.Event.Kind()) }

// TrackingStoppedFrame tells an agent to stop emitting samples for an order.
type TrackingStoppedFrame struct {
	OrderID string
	Status  string
}

func (TrackingStoppedFrame) FrameType() string { return "tracking_stopped" }

// ErrorFrame reports a rejected request back to its sender.
type ErrorFrame struct {
	Code    string
	Message string
}

func (ErrorFrame) FrameType() string { return "error" }

// Transport is the outbound half of one persistent client connection.
// Send may block on network I/O; callers that must not block go through an outbox.
type Transport interface {
	Send(ctx context.Context, frame Frame) error
	Close() error
}

// SubscribedFrame acknowledges a subscription to its requester.
type SubscribedFrame struct {
	OrderID string
}

func (SubscribedFrame) FrameType() string { return "subscribed" }
