// Package wire is the relay's client protocol: a tagged union of messages
// carried in a {"type": ..., "payload": {...}} envelope.
//
// Two encodings exist. JSON is the default; CBOR is used when the client
// negotiates the relay.cbor websocket subprotocol. Both share the field names
// below.
//
//	codec := wire.Negotiate(conn.Subprotocol())
//	msg, err := codec.DecodeFromClient(data)
//	switch m := msg.(type) {
//	case *wire.LocationUpdate:
//	    ...
//	}
package wire

import (
	"errors"
	"fmt"
	"time"

	"tracking/internal/pkg/errs"
)

// Message types.
const (
	TypeSubscribe         = "subscribe"
	TypeUnsubscribe       = "unsubscribe"
	TypeLocationUpdate    = "location_update"
	TypeOrderStatusUpdate = "order_status_update"
	TypeSimulationStart   = "simulation_start"
	TypeSimulationStop    = "simulation_stop"
	TypeSubscribed        = "subscribed"
	TypeTrackingStopped   = "tracking_stopped"
	TypeError             = "error"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Message is one member of the union.
type Message interface {
	Type() string
	Validate() error
}

// Subscribe asks for the events of an order.
type Subscribe struct {
	OrderID string `json:"orderId"`
}

func (*Subscribe) Type() string { return TypeSubscribe }

func (m *Subscribe) Validate() error { return requireOrderID(m.OrderID) }

// Unsubscribe stops the events of an order.
type Unsubscribe struct {
	OrderID string `json:"orderId"`
}

func (*Unsubscribe) Type() string { return TypeUnsubscribe }

func (m *Unsubscribe) Validate() error { return requireOrderID(m.OrderID) }

// LocationUpdate is a sample sent by a delivery partner. Coordinates are
// pointers so that a missing value is distinguishable from zero.
type LocationUpdate struct {
	AgentID string   `json:"agentId"`
	OrderID string   `json:"orderId"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

func (*LocationUpdate) Type() string { return TypeLocationUpdate }

func (m *LocationUpdate) Validate() error {
	var problems []error
	if m.AgentID == "" {
		problems = append(problems, errs.NewValueIsRequiredError("agentId"))
	}
	if m.OrderID == "" {
		problems = append(problems, errs.NewValueIsRequiredError("orderId"))
	}
	if m.Lat == nil {
		problems = append(problems, errs.NewValueIsRequiredError("lat"))
	}
	if m.Lng == nil {
		problems = append(problems, errs.NewValueIsRequiredError("lng"))
	}
	return errors.Join(problems...)
}

// StatusUpdate requests a status transition. AgentID is only read for "assigned".
type StatusUpdate struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	AgentID string `json:"agentId,omitempty"`
}

func (*StatusUpdate) Type() string { return TypeOrderStatusUpdate }

func (m *StatusUpdate) Validate() error {
	var problems []error
	if m.OrderID == "" {
		problems = append(problems, errs.NewValueIsRequiredError("orderId"))
	}
	if m.Status == "" {
		problems = append(problems, errs.NewValueIsRequiredError("status"))
	}
	return errors.Join(problems...)
}

// SimulationStart asks the relay to simulate the sender's delivery of an order.
type SimulationStart struct {
	OrderID string `json:"orderId"`
}

func (*SimulationStart) Type() string { return TypeSimulationStart }

func (m *SimulationStart) Validate() error { return requireOrderID(m.OrderID) }

// SimulationStop cancels a running simulation.
type SimulationStop struct {
	OrderID string `json:"orderId"`
}

func (*SimulationStop) Type() string { return TypeSimulationStop }

func (m *SimulationStop) Validate() error { return requireOrderID(m.OrderID) }

// LocationBroadcast is an accepted sample as seen by the watchers of an order.
type LocationBroadcast struct {
	OrderID   string    `json:"orderId"`
	AgentID   string    `json:"agentId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

func (*LocationBroadcast) Type() string { return TypeLocationUpdate }

func (m *LocationBroadcast) Validate() error { return requireOrderID(m.OrderID) }

// StatusBroadcast announces an applied transition.
type StatusBroadcast struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (*StatusBroadcast) Type() string { return TypeOrderStatusUpdate }

func (m *StatusBroadcast) Validate() error { return requireOrderID(m.OrderID) }

// Subscribed acknowledges a subscription.
type Subscribed struct {
	OrderID string `json:"orderId"`
}

func (*Subscribed) Type() string { return TypeSubscribed }

func (m *Subscribed) Validate() error { return requireOrderID(m.OrderID) }

// TrackingStopped tells a delivery partner to stop sending samples for an order.
type TrackingStopped struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (*TrackingStopped) Type() string { return TypeTrackingStopped }

func (m *TrackingStopped) Validate() error { return requireOrderID(m.OrderID) }

// Error reports a rejected request to its sender.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (*Error) Type() string { return TypeError }

func (m *Error) Validate() error {
	if m.Code == "" {
		return errs.NewValueIsRequiredError("code")
	}
	return nil
}

func requireOrderID(orderID string) error {
	if orderID == "" {
		return errs.NewValueIsRequiredError("orderId")
	}
	return nil
}

// fromClient and fromRelay map a type tag to a fresh payload, one per direction.
var (
	fromClient = map[string]func() Message{
		TypeSubscribe:         func() Message { return &Subscribe{} },
		TypeUnsubscribe:       func() Message { return &Unsubscribe{} },
		TypeLocationUpdate:    func() Message { return &LocationUpdate{} },
		TypeOrderStatusUpdate: func() Message { return &StatusUpdate{} },
		TypeSimulationStart:   func() Message { return &SimulationStart{} },
		TypeSimulationStop:    func() Message { return &SimulationStop{} },
	}

	fromRelay = map[string]func() Message{
		TypeLocationUpdate:    func() Message { return &LocationBroadcast{} },
		TypeOrderStatusUpdate: func() Message { return &StatusBroadcast{} },
		TypeSubscribed:        func() Message { return &Subscribed{} },
		TypeTrackingStopped:   func() Message { return &TrackingStopped{} },
		TypeError:             func() Message { return &Error{} },
	}
)

func newPayload(registry map[string]func() Message, typ string) (Message, error) {
	if typ == "" {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, errs.NewValueIsRequiredError("type"))
	}
	factory, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return factory(), nil
}
