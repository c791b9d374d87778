package ws

import (
	"context"
	"errors"
	"fmt"

	"tracking/internal/adapters/wire"
	"tracking/internal/core/application/relay"
	"tracking/internal/core/application/usecases/commands"
	"tracking/internal/core/application/usecases/queries"
	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/jobs"
)

func (h *Handler) dispatch(ctx context.Context, session *relay.Session, msg wire.Message) {
	switch m := msg.(type) {
	case *wire.Subscribe:
		h.subscribe(ctx, session, m.OrderID)
	case *wire.Unsubscribe:
		h.registry.Unsubscribe(session, m.OrderID)
	case *wire.LocationUpdate:
		h.locationUpdate(ctx, session, m)
	case *wire.StatusUpdate:
		h.statusUpdate(ctx, session, m)
	case *wire.SimulationStart:
		h.simulationStart(ctx, session, m.OrderID)
	case *wire.SimulationStop:
		h.simulationStop(session, m.OrderID)
	default:
		h.reply(session, fmt.Errorf("%w: %s", wire.ErrUnknownType, msg.Type()))
	}
}

// locationUpdate never answers: a rejected sample is logged and counted by the
// ingestion handler. An accepted sample subscribes its sender to the order.
func (h *Handler) locationUpdate(ctx context.Context, session *relay.Session, m *wire.LocationUpdate) {
	cmd, err := commands.NewIngestLocationCommand(session.Identity(), m.AgentID, m.OrderID, m.Lat, m.Lng)
	if err != nil {
		h.logger.DebugContext(ctx, "Sample rejected", "session", session.ID(), "error", err)
		return
	}

	if err = h.ingest.Handle(ctx, cmd); err != nil {
		return
	}

	if !h.registry.IsSubscribed(session, m.OrderID) {
		h.subscribe(ctx, session, m.OrderID)
	}
}

func (h *Handler) statusUpdate(ctx context.Context, session *relay.Session, m *wire.StatusUpdate) {
	cmd, err := commands.NewTransitionStatusCommand(session.Identity(), m.OrderID, m.Status, m.AgentID)
	if err != nil {
		h.reply(session, err)
		return
	}

	if err = h.transition.Handle(ctx, cmd); err != nil {
		h.reply(session, err)
	}
}

// simulationStart drives the sender's own delivery along the order's route.
// The sender must be the order's delivery partner.
func (h *Handler) simulationStart(ctx context.Context, session *relay.Session, orderID string) {
	who := session.Identity()

	route, err := h.route(ctx, who, orderID)
	if err != nil {
		h.reply(session, err)
		return
	}

	if !h.registry.IsSubscribed(session, orderID) && !h.subscribe(ctx, session, orderID) {
		return
	}

	err = h.simulator.Begin(ctx, jobs.SimulationRequest{
		OrderID:  orderID,
		AgentID:  who.UserID(),
		OwnerID:  session.ID(),
		Pickup:   route.pickup,
		Delivery: route.delivery,
		Emitter:  sessionEmitter{who: who, ingest: h.ingest, transition: h.transition},
	})
	if err != nil {
		h.reply(session, err)
	}
}

func (h *Handler) simulationStop(session *relay.Session, orderID string) {
	agentID, ok := h.simulator.AgentOf(orderID)
	if !ok {
		return
	}
	if agentID != session.Identity().UserID() {
		h.reply(session, fmt.Errorf("%w: simulation of order %s belongs to %s", commands.ErrForbidden, orderID, agentID))
		return
	}
	h.simulator.Cancel(orderID)
}

type route struct {
	pickup   kernel.Location
	delivery kernel.Location
}

func (h *Handler) route(ctx context.Context, who identity.Identity, orderID string) (route, error) {
	query, err := queries.NewGetOrderTrackingQuery(orderID)
	if err != nil {
		return route{}, err
	}

	snapshot, err := h.tracking.Handle(ctx, query)
	if err != nil {
		return route{}, err
	}

	if !who.IsAgent() || snapshot.AgentID != who.UserID() {
		return route{}, fmt.Errorf("%w: order %s is assigned to %q", commands.ErrAgentMismatch, orderID, snapshot.AgentID)
	}
	if snapshot.Status != order.InTransit.String() {
		return route{}, fmt.Errorf("%w: order %s is %s", commands.ErrOrderNotInTransit, orderID, snapshot.Status)
	}

	pickup, pErr := kernel.NewLocation(snapshot.Pickup.Lat, snapshot.Pickup.Lng)
	delivery, dErr := kernel.NewLocation(snapshot.Delivery.Lat, snapshot.Delivery.Lng)
	if err = errors.Join(pErr, dErr); err != nil {
		return route{}, err
	}
	return route{pickup: pickup, delivery: delivery}, nil
}
