package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/model/tracking"
	"tracking/internal/core/ports"
	"tracking/internal/metrics"
)

var (
	// ErrAgentMismatch is returned when the sample's agent is not the session's
	// identity or not the agent assigned to the order.
	ErrAgentMismatch = errors.New("agent does not match")

	// ErrOrderNotInTransit is returned for samples on orders that are not moving.
	ErrOrderNotInTransit = order.ErrOrderNotInTransit
)

// IngestLocationCommandHandler accepts a location sample, records it as the
// order's current agent position, appends it to the location log and fans it
// out. A rejected sample changes nothing and reaches no one.
//
// Example:
//
//	handler := NewIngestLocationCommandHandler(uowFactory, fanout, logger)
//	err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, ErrAgentMismatch), errors.Is(err, ErrOrderNotInTransit):
//	    // dropped
//	case errors.Is(err, ports.ErrStoreUnavailable):
//	    // persistence failed, not retried
//	}
type IngestLocationCommandHandler struct {
	uowFactory ports.UnitOfWorkFactory
	publisher  Publisher
	now        func() time.Time
	logger     *slog.Logger
}

func NewIngestLocationCommandHandler(
	uowFactory ports.UnitOfWorkFactory,
	publisher Publisher,
	logger *slog.Logger,
) IngestLocationCommandHandler {
	return IngestLocationCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With("component", "location_ingestion"),
	}
}

// WithClock replaces the receipt clock.
func (h IngestLocationCommandHandler) WithClock(now func() time.Time) IngestLocationCommandHandler {
	h.now = now
	return h
}

// Handle returns nil when the sample was accepted, persisted and published.
func (h IngestLocationCommandHandler) Handle(ctx context.Context, command IngestLocationCommand) error {
	started := time.Now()

	err := h.ingest(ctx, command)

	switch {
	case err == nil:
		metrics.SamplesTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
		metrics.IngestDuration.Observe(time.Since(started).Seconds())
	case errors.Is(err, ports.ErrStoreUnavailable):
		metrics.SamplesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		h.logger.ErrorContext(ctx, "Sample not persisted",
			"order", command.OrderID(), "agent", command.AgentID(), "error", err)
	default:
		metrics.SamplesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		h.logger.WarnContext(ctx, "Sample rejected",
			"order", command.OrderID(), "agent", command.AgentID(), "error", err)
	}

	return err
}

func (h IngestLocationCommandHandler) ingest(ctx context.Context, command IngestLocationCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	sender := command.Sender()
	if !sender.IsAgent() || sender.UserID() != command.AgentID() {
		return fmt.Errorf("%w: session is %s, sample is from %s", ErrAgentMismatch, sender, command.AgentID())
	}

	receivedAt := h.now()
	sample, err := tracking.NewSample(command.AgentID(), command.OrderID(), command.Position(), receivedAt)
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	store := uow.OrderStore()

	o, err := store.Get(ctx, command.OrderID())
	if err != nil {
		return err
	}

	if o.AgentID() != command.AgentID() {
		return fmt.Errorf("%w: order %s is assigned to %q", ErrAgentMismatch, o.ID(), o.AgentID())
	}

	if err = o.MoveAgent(sample.Position()); err != nil {
		return err
	}

	if err = store.SetAgentPosition(ctx, o.ID(), sample.Position()); err != nil {
		return err
	}

	if err = uow.LocationLog().Append(ctx, sample); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		if errors.Is(err, ports.ErrConcurrentUpdate) {
			// in_transit only moves to terminal statuses
			return fmt.Errorf("%w: %w", ErrOrderNotInTransit, err)
		}
		return err
	}

	h.publisher.Publish(o.ID(), tracking.NewLocationEvent(sample))
	return nil
}
