// Package ports defines the contracts between the relay core and its collaborators:
// the Order Store, the location log, the Identity Provider and client transports.
package ports

import (
	"context"
	"errors"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
)

// ErrStoreUnavailable wraps any I/O failure of the Order Store. The triggering
// request fails; the relay never retries on its own.
var ErrStoreUnavailable = errors.New("order store unavailable")

// ErrConcurrentUpdate is returned by UnitOfWork.Commit when an order read in the
// unit of work changed status before the commit.
var ErrConcurrentUpdate = errors.New("order changed concurrently")

// OrderStore is the minimal view of the order database the relay needs.
// Lookups of unknown orders return errs.ErrObjectNotFound.
type OrderStore interface {
	// Get returns the order with its current status, route, parties and agent position.
	Get(ctx context.Context, orderID string) (*order.Order, error)

	// SetAgentPosition overwrites the agent's current position for the order.
	// Last write wins; no ordering between samples is enforced.
	SetAgentPosition(ctx context.Context, orderID string, position kernel.Location) error

	// SetStatus persists a new status. agentID is recorded when non-empty (assignment).
	SetStatus(ctx context.Context, orderID string, status order.Status, agentID string) error
}
