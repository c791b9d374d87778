package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/model/tracking"
	"tracking/internal/core/ports"
	"tracking/internal/metrics"
)

// ErrForbidden is returned when the sender's role may not request the target status.
var ErrForbidden = errors.New("transition forbidden")

// TransitionStatusCommandHandler is the order status coordinator. Transitions
// of one order are serialized and validated against the persisted status; an
// applied transition is broadcast to the order's watchers, and a terminal one
// stops tracking for the order.
//
// Example:
//
//	handler := NewTransitionStatusCommandHandler(uowFactory, fanout, logger)
//	handler.OnTerminal(fanout)
//	handler.OnTerminal(simulations)
//
//	err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, order.ErrInvalidTransition):
//	    // not a legal successor, nothing changed
//	case errors.Is(err, ErrForbidden):
//	    // sender's role may not do this
//	}
type TransitionStatusCommandHandler struct {
	uowFactory ports.UnitOfWorkFactory
	publisher  Publisher
	stoppers   []TrackingStopper
	locks      *keyedMutex
	logger     *slog.Logger
}

func NewTransitionStatusCommandHandler(
	uowFactory ports.UnitOfWorkFactory,
	publisher Publisher,
	logger *slog.Logger,
) *TransitionStatusCommandHandler {
	return &TransitionStatusCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		locks:      newKeyedMutex(),
		logger:     logger.With("component", "status_coordinator"),
	}
}

// OnTerminal registers a stopper notified after an order reaches Delivered or
// Cancelled. Must be called before the handler serves requests.
func (h *TransitionStatusCommandHandler) OnTerminal(stopper TrackingStopper) {
	h.stoppers = append(h.stoppers, stopper)
}

// Handle returns nil when the transition was applied and broadcast.
func (h *TransitionStatusCommandHandler) Handle(ctx context.Context, command TransitionStatusCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	unlock := h.locks.Lock(command.OrderID())
	applied, err := h.apply(ctx, command)
	unlock()

	target := command.Target().String()
	switch {
	case err == nil:
		metrics.TransitionsTotal.WithLabelValues(target, metrics.OutcomeAccepted).Inc()
	case errors.Is(err, ports.ErrStoreUnavailable):
		metrics.TransitionsTotal.WithLabelValues(target, metrics.OutcomeFailed).Inc()
		h.logger.ErrorContext(ctx, "Transition not persisted", "order", command.OrderID(), "status", target, "error", err)
		return err
	default:
		metrics.TransitionsTotal.WithLabelValues(target, metrics.OutcomeRejected).Inc()
		h.logger.WarnContext(ctx, "Transition rejected",
			"order", command.OrderID(), "status", target, "sender", command.Sender().String(), "error", err)
		return err
	}

	h.logger.InfoContext(ctx, "Status changed", "order", applied.ID(), "status", target)
	h.Announce(applied.ID(), applied.AgentID(), applied.Status())
	return nil
}

// Announce broadcasts an applied status and stops tracking on terminal ones.
// Status changes written by other systems enter the relay here.
func (h *TransitionStatusCommandHandler) Announce(orderID, agentID string, status order.Status) {
	h.publisher.Publish(orderID, tracking.StatusEvent{OrderID: orderID, Status: status})

	if !status.IsTerminal() {
		return
	}
	for _, stopper := range h.stoppers {
		stopper.StopTracking(orderID, agentID, status)
	}
}

func (h *TransitionStatusCommandHandler) apply(ctx context.Context, command TransitionStatusCommand) (*order.Order, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	store := uow.OrderStore()

	o, err := store.Get(ctx, command.OrderID())
	if err != nil {
		return nil, err
	}

	if !o.Status().CanTransitionTo(command.Target()) {
		return nil, &order.InvalidTransitionError{From: o.Status(), To: command.Target()}
	}

	if err = authorize(command.Sender(), o, command.Target(), command.AgentID()); err != nil {
		return nil, err
	}

	if command.Target() == order.Assigned {
		err = o.Assign(command.AgentID())
	} else {
		err = o.Transition(command.Target())
	}
	if err != nil {
		return nil, err
	}

	if err = store.SetStatus(ctx, o.ID(), o.Status(), o.AgentID()); err != nil {
		return nil, err
	}

	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}

// authorize applies the role rules:
//
//	assigned            vendor of the order, or a delivery partner assigning itself
//	in_transit          the order's delivery partner
//	delivered           the order's delivery partner
//	cancelled           vendor or customer of the order
func authorize(sender identity.Identity, o *order.Order, target order.Status, agentID string) error {
	isVendor := sender.Role() == identity.Vendor && sender.UserID() == o.VendorID()
	isCustomer := sender.Role() == identity.Customer && sender.UserID() == o.CustomerID()
	isAgent := sender.IsAgent() && sender.UserID() == o.AgentID()

	var allowed bool
	switch target {
	case order.Assigned:
		allowed = isVendor || (sender.IsAgent() && sender.UserID() == agentID)
	case order.InTransit, order.Delivered:
		allowed = isAgent
	case order.Cancelled:
		allowed = isVendor || isCustomer
	}

	if !allowed {
		return fmt.Errorf("%w: %s may not set order %s to %s", ErrForbidden, sender, o.ID(), target)
	}
	return nil
}
