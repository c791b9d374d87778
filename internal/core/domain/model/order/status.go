package order

import (
	"errors"
	"fmt"

	"tracking/internal/pkg/errs"
)

// ErrInvalidTransition is returned when a target status is not an immediate
// successor of the current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// InvalidTransitionError carries both ends of a rejected transition.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Status is the delivery lifecycle of an order.
//
// State transitions:
//
//	Pending ──> Assigned ──> InTransit ──> Delivered
//	   │           │             │
//	   └───────────┴─────────────┴──────> Cancelled
//
// Delivered and Cancelled are terminal.
type Status int

const (
	// Unknown catches uninitialized Status values.
	Unknown Status = iota

	// Pending is the initial status; no delivery partner yet.
	Pending

	// Assigned means a delivery partner accepted the order.
	Assigned

	// InTransit means the partner is on the way; only now are location samples accepted.
	InTransit

	// Delivered is terminal.
	Delivered

	// Cancelled is terminal and reachable from every non-terminal status.
	Cancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "unknown",
		Pending:   "pending",
		Assigned:  "assigned",
		InTransit: "in_transit",
		Delivered: "delivered",
		Cancelled: "cancelled",
	}
}

// getSuccessors lists the legal next statuses for every valid status.
func getSuccessors() map[Status][]Status {
	//nolint:exhaustive // Unknown has no successors
	return map[Status][]Status{
		Pending:   {Assigned, Cancelled},
		Assigned:  {InTransit, Cancelled},
		InTransit: {Delivered, Cancelled},
		Delivered: {},
		Cancelled: {},
	}
}

// ParseStatus maps the wire name ("pending", "in_transit", ...) to a Status.
func ParseStatus(s string) (Status, error) {
	for status, name := range getStatusStrings() {
		if status != Unknown && name == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", s))
}

// Validate rejects Unknown and out of range values.
func (s Status) Validate() error {
	if _, ok := getSuccessors()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire name of the status, "unknown" for invalid values.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// Successors returns the statuses reachable in one step.
func (s Status) Successors() []Status {
	next := getSuccessors()[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether target is an immediate successor of s.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range getSuccessors()[s] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionTo returns target when the move is legal.
//
// Example:
//
//	next, err := order.Pending.TransitionTo(order.InTransit)
//	// errors.Is(err, order.ErrInvalidTransition) == true, must pass through Assigned
func (s Status) TransitionTo(target Status) (Status, error) {
	if err := target.Validate(); err != nil {
		return Unknown, err
	}

	if !s.CanTransitionTo(target) {
		return Unknown, &InvalidTransitionError{From: s, To: target}
	}

	return target, nil
}

// ValidateCanHaveAgent enforces that assigned, in transit and delivered orders
// always carry a delivery partner, and pending ones never do.
func (s Status) ValidateCanHaveAgent(agent bool) error {
	if agent && s == Pending {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have an agent", s),
		)
	}

	if !agent && (s == Assigned || s == InTransit || s == Delivered) {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have no agent", s),
		)
	}

	return nil
}
