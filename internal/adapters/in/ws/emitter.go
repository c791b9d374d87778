package ws

import (
	"context"

	"tracking/internal/core/application/usecases/commands"
	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
)

// sessionEmitter feeds a relay-side simulation through the same handlers as a
// real device, acting as the session's identity.
type sessionEmitter struct {
	who        identity.Identity
	ingest     IngestHandler
	transition TransitionHandler
}

func (e sessionEmitter) EmitLocation(ctx context.Context, orderID string, position kernel.Location) error {
	lat, lng := position.Lat(), position.Lng()
	cmd, err := commands.NewIngestLocationCommand(e.who, e.who.UserID(), orderID, &lat, &lng)
	if err != nil {
		return err
	}
	return e.ingest.Handle(ctx, cmd)
}

func (e sessionEmitter) Arrive(ctx context.Context, orderID string) error {
	cmd, err := commands.NewTransitionStatusCommand(e.who, orderID, order.Delivered.String(), "")
	if err != nil {
		return err
	}
	return e.transition.Handle(ctx, cmd)
}
