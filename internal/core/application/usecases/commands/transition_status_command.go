package commands

import (
	"errors"

	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/pkg/errs"
	"tracking/internal/pkg/guard"
)

var ErrTransitionStatusCommandIsNotConstructed = errors.New(
	"TransitionStatusCommand must be created via NewTransitionStatusCommand constructor",
)

// TransitionStatusCommand asks the coordinator to move an order to a new
// status on behalf of the sending identity. AgentID is only meaningful for
// assignment; a delivery partner assigning itself may leave it empty.
//
// Example:
//
//	cmd, err := NewTransitionStatusCommand(vendor, "O1", "assigned", "A1")
//	if err != nil {
//	    return err
//	}
//	err = handler.Handle(ctx, cmd)
type TransitionStatusCommand struct { //nolint:recvcheck //using for validation
	sender  identity.Identity
	orderID string
	target  order.Status
	agentID string

	guard guard.ConstructorGuard
}

func NewTransitionStatusCommand(
	sender identity.Identity,
	orderID string,
	status string,
	agentID string,
) (TransitionStatusCommand, error) {
	cmd := TransitionStatusCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setSender(sender),
		cmd.setOrderID(orderID),
		cmd.setTarget(status),
	); err != nil {
		return TransitionStatusCommand{}, err
	}

	if err := cmd.setAgentID(agentID); err != nil {
		return TransitionStatusCommand{}, err
	}

	return cmd, nil
}

func (c TransitionStatusCommand) Validate() error {
	return c.guard.Validate(ErrTransitionStatusCommandIsNotConstructed)
}

func (c TransitionStatusCommand) Sender() identity.Identity {
	return c.sender
}

func (c TransitionStatusCommand) OrderID() string {
	return c.orderID
}

func (c TransitionStatusCommand) Target() order.Status {
	return c.target
}

// AgentID is the delivery partner to assign; empty for other targets.
func (c TransitionStatusCommand) AgentID() string {
	return c.agentID
}

func (c *TransitionStatusCommand) setSender(sender identity.Identity) error {
	if err := sender.Validate(); err != nil {
		return err
	}
	c.sender = sender
	return nil
}

func (c *TransitionStatusCommand) setOrderID(orderID string) error {
	if orderID == "" {
		return errs.NewValueIsRequiredError("orderId")
	}
	c.orderID = orderID
	return nil
}

func (c *TransitionStatusCommand) setTarget(status string) error {
	if status == "" {
		return errs.NewValueIsRequiredError("status")
	}
	target, err := order.ParseStatus(status)
	if err != nil {
		return err
	}
	c.target = target
	return nil
}

func (c *TransitionStatusCommand) setAgentID(agentID string) error {
	if c.target != order.Assigned {
		return nil
	}
	if agentID == "" && c.sender.IsAgent() {
		agentID = c.sender.UserID()
	}
	if agentID == "" {
		return errs.NewValueIsRequiredError("agentId")
	}
	c.agentID = agentID
	return nil
}
