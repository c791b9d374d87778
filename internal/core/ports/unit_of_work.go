package ports

import (
	"context"
)

// UnitOfWorkFactory creates a fresh UnitOfWork per request.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UnitOfWork is the transaction boundary around one ingestion or one status transition.
type UnitOfWork interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context) error

	// Commit commits the current transaction.
	// Returns error if no active transaction or commit fails.
	Commit(ctx context.Context) error

	// Rollback rolls back the current transaction.
	// Returns error if no active transaction or rollback fails.
	Rollback(ctx context.Context) error

	// OrderStore returns the store bound to the current transaction.
	OrderStore() OrderStore

	// LocationLog returns the log bound to the current transaction.
	LocationLog() LocationLog
}
