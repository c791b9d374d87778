// Package orderstore persists the relay's view of orders with gorm.
package orderstore

import (
	"time"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
)

// OrderDTO is the orders row. Columns other than status and the agent fields are
// written by the order service the relay sits next to.
type OrderDTO struct {
	ID         string      `gorm:"primaryKey;size:64"`
	VendorID   string      `gorm:"size:64;index"`
	CustomerID string      `gorm:"size:64;index"`
	AgentID    *string     `gorm:"size:64;index"`
	Status     string      `gorm:"size:16;index"`
	Pickup     LocationDTO `gorm:"embedded;embeddedPrefix:pickup_"`
	Delivery   LocationDTO `gorm:"embedded;embeddedPrefix:delivery_"`
	AgentLat   *float64
	AgentLng   *float64
	UpdatedAt  time.Time
}

func (OrderDTO) TableName() string {
	return "orders"
}

type LocationDTO struct {
	Lat float64
	Lng float64
}

// FromDomain maps an order to its row.
func FromDomain(o *order.Order) OrderDTO {
	dto := OrderDTO{
		ID:         o.ID(),
		VendorID:   o.VendorID(),
		CustomerID: o.CustomerID(),
		Status:     o.Status().String(),
		Pickup:     LocationDTO{Lat: o.Pickup().Lat(), Lng: o.Pickup().Lng()},
		Delivery:   LocationDTO{Lat: o.Delivery().Lat(), Lng: o.Delivery().Lng()},
	}

	if agentID := o.AgentID(); agentID != "" {
		dto.AgentID = &agentID
	}

	if pos := o.AgentPosition(); pos != nil {
		lat, lng := pos.Lat(), pos.Lng()
		dto.AgentLat = &lat
		dto.AgentLng = &lng
	}

	return dto
}

// toDomain rebuilds the order through RestoreOrder so that a row violating an
// invariant is reported instead of served.
func toDomain(dto OrderDTO) (*order.Order, error) {
	status, err := order.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	pickup, err := kernel.NewLocation(dto.Pickup.Lat, dto.Pickup.Lng)
	if err != nil {
		return nil, err
	}

	delivery, err := kernel.NewLocation(dto.Delivery.Lat, dto.Delivery.Lng)
	if err != nil {
		return nil, err
	}

	var agentPosition *kernel.Location
	if dto.AgentLat != nil && dto.AgentLng != nil {
		pos, posErr := kernel.NewLocation(*dto.AgentLat, *dto.AgentLng)
		if posErr != nil {
			return nil, posErr
		}
		agentPosition = &pos
	}

	parties := order.Parties{VendorID: dto.VendorID, CustomerID: dto.CustomerID}
	if dto.AgentID != nil {
		parties.AgentID = *dto.AgentID
	}

	return order.RestoreOrder(dto.ID, parties, status, pickup, delivery, agentPosition)
}
