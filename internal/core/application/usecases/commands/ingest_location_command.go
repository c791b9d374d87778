package commands

import (
	"errors"

	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/pkg/errs"
	"tracking/internal/pkg/guard"
)

var ErrIngestLocationCommandIsNotConstructed = errors.New(
	"IngestLocationCommand must be created via NewIngestLocationCommand constructor",
)

// IngestLocationCommand carries one location sample as received from an agent
// session. Coordinates are pointers so that a missing axis can be told apart
// from a zero one.
//
// Example:
//
//	lat, lng := 28.6139, 77.2090
//	cmd, err := NewIngestLocationCommand(who, "A1", "O1", &lat, &lng)
//	if err != nil {
//	    return err // missing field or coordinate out of range
//	}
//	err = handler.Handle(ctx, cmd)
type IngestLocationCommand struct { //nolint:recvcheck //using for validation
	sender   identity.Identity
	agentID  string
	orderID  string
	position kernel.Location

	guard guard.ConstructorGuard
}

// NewIngestLocationCommand validates presence of every field and the coordinate
// ranges. All violations are joined into one error.
func NewIngestLocationCommand(
	sender identity.Identity,
	agentID, orderID string,
	lat, lng *float64,
) (IngestLocationCommand, error) {
	cmd := IngestLocationCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setSender(sender),
		cmd.setAgentID(agentID),
		cmd.setOrderID(orderID),
		cmd.setPosition(lat, lng),
	); err != nil {
		return IngestLocationCommand{}, err
	}

	return cmd, nil
}

func (c IngestLocationCommand) Validate() error {
	return c.guard.Validate(ErrIngestLocationCommandIsNotConstructed)
}

// Sender is the identity of the session the sample arrived on.
func (c IngestLocationCommand) Sender() identity.Identity {
	return c.sender
}

func (c IngestLocationCommand) AgentID() string {
	return c.agentID
}

func (c IngestLocationCommand) OrderID() string {
	return c.orderID
}

func (c IngestLocationCommand) Position() kernel.Location {
	return c.position
}

func (c *IngestLocationCommand) setSender(sender identity.Identity) error {
	if err := sender.Validate(); err != nil {
		return err
	}
	c.sender = sender
	return nil
}

func (c *IngestLocationCommand) setAgentID(agentID string) error {
	if agentID == "" {
		return errs.NewValueIsRequiredError("agentId")
	}
	c.agentID = agentID
	return nil
}

func (c *IngestLocationCommand) setOrderID(orderID string) error {
	if orderID == "" {
		return errs.NewValueIsRequiredError("orderId")
	}
	c.orderID = orderID
	return nil
}

func (c *IngestLocationCommand) setPosition(lat, lng *float64) error {
	if lat == nil || lng == nil {
		var missing []error
		if lat == nil {
			missing = append(missing, errs.NewValueIsRequiredError("lat"))
		}
		if lng == nil {
			missing = append(missing, errs.NewValueIsRequiredError("lng"))
		}
		return errors.Join(missing...)
	}

	position, err := kernel.NewLocation(*lat, *lng)
	if err != nil {
		return err
	}
	c.position = position
	return nil
}
