// Package locationlog appends accepted samples to the location_updates table.
package locationlog

import (
	"time"

	"tracking/internal/core/domain/model/tracking"

	"github.com/google/uuid"
)

// LocationUpdateDTO is one row of the append-only sample log.
type LocationUpdateDTO struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID    string    `gorm:"size:64;index:idx_location_updates_order_captured,priority:1"`
	AgentID    string    `gorm:"size:64;index"`
	Lat        float64
	Lng        float64
	CapturedAt time.Time `gorm:"index:idx_location_updates_order_captured,priority:2"`
}

func (LocationUpdateDTO) TableName() string {
	return "location_updates"
}

func fromDomain(sample tracking.Sample) LocationUpdateDTO {
	return LocationUpdateDTO{
		ID:         uuid.New(),
		OrderID:    sample.OrderID(),
		AgentID:    sample.AgentID(),
		Lat:        sample.Position().Lat(),
		Lng:        sample.Position().Lng(),
		CapturedAt: sample.CapturedAt(),
	}
}
