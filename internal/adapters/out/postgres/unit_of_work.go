// Package postgres provides the gorm implementation of the relay's unit of work.
//
// A unit of work wraps one ingestion or one status transition. Stores handed
// out after Begin run inside the transaction and lock the order row they read,
// so a transition and a concurrent sample for the same order see a consistent
// status.
//
//	factory := postgres.NewGormUnitOfWorkFactory(db)
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer func() { _ = uow.Rollback(ctx) }()
//
//	o, err := uow.OrderStore().Get(ctx, "O1")
//	...
//	return uow.Commit(ctx)
package postgres

import (
	"context"
	"fmt"

	"tracking/internal/adapters/out/postgres/locationlog"
	"tracking/internal/adapters/out/postgres/orderstore"
	"tracking/internal/adapters/out/postgres/tokenstore"
	"tracking/internal/core/ports"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the relay reads or writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&orderstore.OrderDTO{},
		&locationlog.LocationUpdateDTO{},
		&tokenstore.UserTokenDTO{},
	)
}

// GormUnitOfWorkFactory creates a fresh GormUnitOfWork per request.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

func (f *GormUnitOfWorkFactory) Create() ports.UnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// GormUnitOfWork coordinates one database transaction.
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin starts the transaction. Calling it twice is a no-op.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	tx := uow.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, tx.Error)
	}

	uow.tx = tx
	return nil
}

// Commit finalizes the transaction. Returns gorm.ErrInvalidTransaction when none is active.
func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	if err != nil {
		return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

// Rollback discards the transaction. Returns gorm.ErrInvalidTransaction when none
// is active, which is the normal outcome of the deferred rollback after Commit.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

// OrderStore returns a store bound to the active transaction, or to the plain
// connection when none is active.
func (uow *GormUnitOfWork) OrderStore() ports.OrderStore {
	if uow.tx != nil {
		return orderstore.NewGormOrderStore(uow.tx, true)
	}
	return orderstore.NewGormOrderStore(uow.db, false)
}

// LocationLog returns a log bound to the active transaction, if any.
func (uow *GormUnitOfWork) LocationLog() ports.LocationLog {
	if uow.tx != nil {
		return locationlog.NewGormLocationLog(uow.tx)
	}
	return locationlog.NewGormLocationLog(uow.db)
}
