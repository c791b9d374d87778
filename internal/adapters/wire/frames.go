package wire

import (
	"fmt"

	"tracking/internal/core/domain/model/tracking"
	"tracking/internal/core/ports"
)

// FromFrame converts an outbound relay frame to its wire message.
func FromFrame(frame ports.Frame) (Message, error) {
	switch f := frame.(type) {
	case ports.EventFrame:
		return fromEvent(f.Event)
	case ports.SubscribedFrame:
		return &Subscribed{OrderID: f.OrderID}, nil
	case ports.TrackingStoppedFrame:
		return &TrackingStopped{OrderID: f.OrderID, Status: f.Status}, nil
	case ports.ErrorFrame:
		return &Error{Code: f.Code, Message: f.Message}, nil
	default:
		return nil, fmt.Errorf("%w: frame %T", ErrUnknownType, frame)
	}
}

func fromEvent(event tracking.Event) (Message, error) {
	switch e := event.(type) {
	case tracking.LocationEvent:
		return &LocationBroadcast{
			OrderID:   e.OrderID,
			AgentID:   e.AgentID,
			Lat:       e.Lat,
			Lng:       e.Lng,
			Timestamp: e.ReceivedAt,
		}, nil
	case tracking.StatusEvent:
		return &StatusBroadcast{OrderID: e.OrderID, Status: e.Status.String()}, nil
	default:
		return nil, fmt.Errorf("%w: event %T", ErrUnknownType, event)
	}
}
