package order

import (
	"errors"
	"fmt"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned for orders not built by NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder constructor")

	// ErrOrderNotInTransit is returned when an agent position is reported for an
	// order that is not currently being delivered.
	ErrOrderNotInTransit = errors.New("order is not in transit")
)

// Parties are the users attached to an order. AgentID is empty until the order is assigned.
type Parties struct {
	VendorID   string
	CustomerID string
	AgentID    string
}

// Order is the slice of an order the relay reads and writes: its lifecycle
// status, the two fixed points of the route, the parties, and the agent's last
// known position.
type Order struct {
	id            string
	parties       Parties
	status        Status
	pickup        kernel.Location
	delivery      kernel.Location
	agentPosition *kernel.Location

	isConstructed bool
}

// NewOrder creates a pending order without an agent.
func NewOrder(id string, vendorID, customerID string, pickup, delivery kernel.Location) (*Order, error) {
	return RestoreOrder(id, Parties{VendorID: vendorID, CustomerID: customerID}, Pending, pickup, delivery, nil)
}

// RestoreOrder rebuilds an order from persistence, re-checking every invariant.
func RestoreOrder(
	id string,
	parties Parties,
	status Status,
	pickup, delivery kernel.Location,
	agentPosition *kernel.Location,
) (*Order, error) {
	o := &Order{
		parties:       parties,
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setStatus(status),
		o.setRoute(pickup, delivery),
		o.setAgentPosition(agentPosition),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the order came from a constructor.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) ID() string {
	return o.id
}

func (o *Order) Status() Status {
	return o.status
}

func (o *Order) Pickup() kernel.Location {
	return o.pickup
}

func (o *Order) Delivery() kernel.Location {
	return o.delivery
}

func (o *Order) VendorID() string {
	return o.parties.VendorID
}

func (o *Order) CustomerID() string {
	return o.parties.CustomerID
}

// AgentID returns the assigned delivery partner, empty when unassigned.
func (o *Order) AgentID() string {
	return o.parties.AgentID
}

// AgentPosition returns the last accepted agent coordinate, nil before the first sample.
func (o *Order) AgentPosition() *kernel.Location {
	return o.agentPosition
}

// IsParty reports whether userID is the vendor, customer or agent of the order.
func (o *Order) IsParty(userID string) bool {
	if userID == "" {
		return false
	}
	return userID == o.parties.VendorID || userID == o.parties.CustomerID || userID == o.parties.AgentID
}

// Assign moves a pending order to Assigned and records the delivery partner.
func (o *Order) Assign(agentID string) error {
	if agentID == "" {
		return errs.NewValueIsRequiredError("agentId")
	}

	next, err := o.status.TransitionTo(Assigned)
	if err != nil {
		return err
	}

	o.status = next
	o.parties.AgentID = agentID
	return nil
}

// Transition applies any legal move. Assignment must go through Assign since it
// needs the delivery partner.
func (o *Order) Transition(target Status) error {
	if target == Assigned {
		return errs.NewValueIsRequiredError("agentId")
	}

	next, err := o.status.TransitionTo(target)
	if err != nil {
		return err
	}

	o.status = next
	return nil
}

// MoveAgent records the agent's current position. Only in transit orders move.
func (o *Order) MoveAgent(position kernel.Location) error {
	if err := position.Validate(); err != nil {
		return err
	}

	if o.status != InTransit {
		return fmt.Errorf("%w: status is %s", ErrOrderNotInTransit, o.status)
	}

	o.agentPosition = &position
	return nil
}

func (o *Order) setID(id string) error {
	if id == "" {
		return errs.NewValueIsRequiredError("orderId")
	}
	o.id = id
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if err := status.ValidateCanHaveAgent(o.parties.AgentID != ""); err != nil {
		return err
	}
	o.status = status
	return nil
}

func (o *Order) setRoute(pickup, delivery kernel.Location) error {
	if err := errors.Join(pickup.Validate(), delivery.Validate()); err != nil {
		return err
	}
	o.pickup = pickup
	o.delivery = delivery
	return nil
}

func (o *Order) setAgentPosition(position *kernel.Location) error {
	if position == nil {
		return nil
	}
	if err := position.Validate(); err != nil {
		return err
	}
	p := *position
	o.agentPosition = &p
	return nil
}
