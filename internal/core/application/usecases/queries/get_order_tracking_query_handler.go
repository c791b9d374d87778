package queries

import (
	"context"
	"time"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/ports"
)

// GetOrderTrackingQueryHandler reads the tracking snapshot from the Order Store.
type GetOrderTrackingQueryHandler struct {
	orders ports.OrderStore
	now    func() time.Time
}

func NewGetOrderTrackingQueryHandler(orders ports.OrderStore) GetOrderTrackingQueryHandler {
	return GetOrderTrackingQueryHandler{
		orders: orders,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle returns errs.ErrObjectNotFound for unknown orders.
func (h GetOrderTrackingQueryHandler) Handle(
	ctx context.Context,
	query GetOrderTrackingQuery,
) (GetOrderTrackingQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderTrackingQueryResponse{}, err
	}

	o, err := h.orders.Get(ctx, query.OrderID())
	if err != nil {
		return GetOrderTrackingQueryResponse{}, err
	}

	response := GetOrderTrackingQueryResponse{
		OrderID:  o.ID(),
		Status:   o.Status().String(),
		AgentID:  o.AgentID(),
		Pickup:   toPosition(o.Pickup()),
		Delivery: toPosition(o.Delivery()),
		Terminal: o.Status().IsTerminal(),
		ReadAt:   h.now(),
	}

	if pos := o.AgentPosition(); pos != nil {
		p := toPosition(*pos)
		response.AgentPosition = &p
	}

	return response, nil
}

func toPosition(loc kernel.Location) Position {
	return Position{Lat: loc.Lat(), Lng: loc.Lng()}
}
