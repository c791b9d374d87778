package locationlog

import (
	"context"

	"tracking/internal/adapters/out/postgres/storeerr"
	"tracking/internal/core/domain/model/tracking"

	"gorm.io/gorm"
)

// GormLocationLog implements ports.LocationLog.
type GormLocationLog struct {
	db *gorm.DB
}

func NewGormLocationLog(db *gorm.DB) *GormLocationLog {
	return &GormLocationLog{db: db}
}

func (l *GormLocationLog) Append(ctx context.Context, sample tracking.Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	dto := fromDomain(sample)
	return storeerr.Wrap(l.db.WithContext(ctx).Create(&dto).Error, "orderId", sample.OrderID())
}
