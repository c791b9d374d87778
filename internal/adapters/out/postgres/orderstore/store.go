package orderstore

import (
	"context"

	"tracking/internal/adapters/out/postgres/storeerr"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderStore implements ports.OrderStore on the orders table.
type GormOrderStore struct {
	db        *gorm.DB
	forUpdate bool
}

// NewGormOrderStore creates a store on db. With forUpdate, Get locks the row
// until the surrounding transaction ends.
func NewGormOrderStore(db *gorm.DB, forUpdate bool) *GormOrderStore {
	return &GormOrderStore{db: db, forUpdate: forUpdate}
}

// Add inserts a new order. The relay itself never creates orders; seeding and
// tests do.
func (s *GormOrderStore) Add(ctx context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	dto := FromDomain(o)
	return storeerr.Wrap(s.db.WithContext(ctx).Create(&dto).Error, "orderId", o.ID())
}

// AddIfAbsent inserts the order unless one with the same id exists, which is
// left untouched. Seeding uses it on every start.
func (s *GormOrderStore) AddIfAbsent(ctx context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	dto := FromDomain(o)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&dto).Error
	return storeerr.Wrap(err, "orderId", o.ID())
}

func (s *GormOrderStore) Get(ctx context.Context, orderID string) (*order.Order, error) {
	query := s.db.WithContext(ctx)
	if s.forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var dto OrderDTO
	if err := query.First(&dto, "id = ?", orderID).Error; err != nil {
		return nil, storeerr.Wrap(err, "orderId", orderID)
	}

	return toDomain(dto)
}

func (s *GormOrderStore) SetAgentPosition(ctx context.Context, orderID string, position kernel.Location) error {
	if err := position.Validate(); err != nil {
		return err
	}

	return s.update(ctx, orderID, map[string]any{
		"agent_lat": position.Lat(),
		"agent_lng": position.Lng(),
	})
}

func (s *GormOrderStore) SetStatus(ctx context.Context, orderID string, status order.Status, agentID string) error {
	if err := status.Validate(); err != nil {
		return err
	}

	columns := map[string]any{"status": status.String()}
	if agentID != "" {
		columns["agent_id"] = agentID
	}

	return s.update(ctx, orderID, columns)
}

func (s *GormOrderStore) update(ctx context.Context, orderID string, columns map[string]any) error {
	result := s.db.WithContext(ctx).Model(&OrderDTO{}).Where("id = ?", orderID).Updates(columns)
	if result.Error != nil {
		return storeerr.Wrap(result.Error, "orderId", orderID)
	}

	if result.RowsAffected == 0 {
		return storeerr.Wrap(gorm.ErrRecordNotFound, "orderId", orderID)
	}

	return nil
}
