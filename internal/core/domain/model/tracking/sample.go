package tracking

import (
	"errors"
	"time"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/pkg/errs"
	"tracking/internal/pkg/guard"
)

// ErrSampleIsNotConstructed is returned for zero value samples.
var ErrSampleIsNotConstructed = errors.New("Sample must be created via NewSample constructor")

// Sample is one immutable GPS fix reported by a delivery agent for an order.
// Real device fixes and simulated ones are indistinguishable.
type Sample struct { //nolint:recvcheck //using for validation
	agentID    string
	orderID    string
	position   kernel.Location
	capturedAt time.Time
	guard      guard.ConstructorGuard
}

// NewSample validates a sample. position must already be a constructed Location,
// so range checks happen in kernel.NewLocation.
func NewSample(agentID, orderID string, position kernel.Location, capturedAt time.Time) (Sample, error) {
	s := Sample{
		capturedAt: capturedAt,
		guard:      guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		s.setAgentID(agentID),
		s.setOrderID(orderID),
		s.setPosition(position),
	); err != nil {
		return Sample{}, err
	}

	return s, nil
}

func (s Sample) Validate() error {
	return s.guard.Validate(ErrSampleIsNotConstructed)
}

func (s Sample) AgentID() string {
	return s.agentID
}

func (s Sample) OrderID() string {
	return s.orderID
}

func (s Sample) Position() kernel.Location {
	return s.position
}

// CapturedAt is the time the relay received the sample.
func (s Sample) CapturedAt() time.Time {
	return s.capturedAt
}

func (s *Sample) setAgentID(agentID string) error {
	if agentID == "" {
		return errs.NewValueIsRequiredError("agentId")
	}
	s.agentID = agentID
	return nil
}

func (s *Sample) setOrderID(orderID string) error {
	if orderID == "" {
		return errs.NewValueIsRequiredError("orderId")
	}
	s.orderID = orderID
	return nil
}

func (s *Sample) setPosition(position kernel.Location) error {
	if err := position.Validate(); err != nil {
		return err
	}
	s.position = position
	return nil
}
