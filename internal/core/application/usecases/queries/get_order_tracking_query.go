// Package queries contains read operations for retrieving relay state.
// Queries return read models shaped for the HTTP surface.
package queries

import (
	"errors"
	"time"

	"tracking/internal/pkg/errs"
	"tracking/internal/pkg/guard"
)

var ErrGetOrderTrackingQueryIsNotConstructed = errors.New(
	"GetOrderTrackingQuery must be created via NewGetOrderTrackingQuery constructor",
)

// GetOrderTrackingQuery fetches what a watcher needs to catch up after
// (re)connecting: the current status and the agent's last known position.
//
// Example:
//
//	query, err := NewGetOrderTrackingQuery("O1")
//	if err != nil {
//	    return err
//	}
//	snapshot, err := handler.Handle(ctx, query)
type GetOrderTrackingQuery struct {
	orderID string
	guard   guard.ConstructorGuard
}

func NewGetOrderTrackingQuery(orderID string) (GetOrderTrackingQuery, error) {
	if orderID == "" {
		return GetOrderTrackingQuery{}, errs.NewValueIsRequiredError("orderId")
	}
	return GetOrderTrackingQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOrderTrackingQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderTrackingQueryIsNotConstructed)
}

func (q GetOrderTrackingQuery) OrderID() string {
	return q.orderID
}

// Position is a plain coordinate in the read model.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GetOrderTrackingQueryResponse is the tracking snapshot of one order.
// AgentPosition is nil until the first accepted sample.
type GetOrderTrackingQueryResponse struct {
	OrderID       string    `json:"orderId"`
	Status        string    `json:"status"`
	AgentID       string    `json:"agentId,omitempty"`
	Pickup        Position  `json:"pickup"`
	Delivery      Position  `json:"delivery"`
	AgentPosition *Position `json:"agentPosition,omitempty"`
	Terminal      bool      `json:"terminal"`
	ReadAt        time.Time `json:"readAt"`
}
