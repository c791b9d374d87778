package order_test

import (
	"testing"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func route(t *testing.T) (kernel.Location, kernel.Location) {
	t.Helper()

	pickup, err := kernel.NewLocation(40.7128, -74.0060)
	require.NoError(t, err)
	delivery, err := kernel.NewLocation(40.7306, -73.9352)
	require.NoError(t, err)

	return pickup, delivery
}

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order without agent", func(t *testing.T) {
		pickup, delivery := route(t)

		o, err := order.NewOrder("O1", "vendor-1", "customer-1", pickup, delivery)

		require.NoError(t, err)
		require.NoError(t, o.Validate())
		assert.Equal(t, "O1", o.ID())
		assert.Equal(t, order.Pending, o.Status())
		assert.Empty(t, o.AgentID())
		assert.Nil(t, o.AgentPosition())
		assert.Equal(t, "vendor-1", o.VendorID())
		assert.Equal(t, "customer-1", o.CustomerID())
	})

	t.Run("rejects empty id", func(t *testing.T) {
		pickup, delivery := route(t)

		_, err := order.NewOrder("", "vendor-1", "customer-1", pickup, delivery)

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("rejects zero value locations", func(t *testing.T) {
		_, err := order.NewOrder("O1", "vendor-1", "customer-1", kernel.Location{}, kernel.Location{})

		require.Error(t, err)
	})
}

func TestRestoreOrder(t *testing.T) {
	pickup, delivery := route(t)

	t.Run("in transit order with agent and position", func(t *testing.T) {
		position, _ := kernel.NewLocation(40.72, -74.0)

		o, err := order.RestoreOrder("O1", order.Parties{AgentID: "agent-1"}, order.InTransit, pickup, delivery, &position)

		require.NoError(t, err)
		assert.Equal(t, order.InTransit, o.Status())
		require.NotNil(t, o.AgentPosition())
		assert.InDelta(t, 40.72, o.AgentPosition().Lat(), 0)
	})

	t.Run("in transit order without agent is invalid", func(t *testing.T) {
		_, err := order.RestoreOrder("O1", order.Parties{}, order.InTransit, pickup, delivery, nil)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("unknown status is invalid", func(t *testing.T) {
		_, err := order.RestoreOrder("O1", order.Parties{}, order.Unknown, pickup, delivery, nil)

		require.Error(t, err)
	})
}

func TestOrder_Validate_ZeroValue(t *testing.T) {
	var o *order.Order
	require.ErrorIs(t, o.Validate(), order.ErrOrderIsNotConstructed)

	require.ErrorIs(t, (&order.Order{}).Validate(), order.ErrOrderIsNotConstructed)
}

func TestOrder_Lifecycle(t *testing.T) {
	pickup, delivery := route(t)
	o, err := order.NewOrder("O1", "vendor-1", "customer-1", pickup, delivery)
	require.NoError(t, err)

	require.ErrorIs(t, o.Transition(order.InTransit), order.ErrInvalidTransition)
	assert.Equal(t, order.Pending, o.Status())

	require.NoError(t, o.Assign("agent-1"))
	assert.Equal(t, order.Assigned, o.Status())
	assert.Equal(t, "agent-1", o.AgentID())

	require.NoError(t, o.Transition(order.InTransit))
	require.NoError(t, o.Transition(order.Delivered))
	assert.True(t, o.Status().IsTerminal())

	require.ErrorIs(t, o.Transition(order.Cancelled), order.ErrInvalidTransition)
	assert.Equal(t, order.Delivered, o.Status())
}

func TestOrder_Assign(t *testing.T) {
	pickup, delivery := route(t)

	t.Run("requires agent id", func(t *testing.T) {
		o, _ := order.NewOrder("O1", "vendor-1", "customer-1", pickup, delivery)

		require.ErrorIs(t, o.Assign(""), errs.ErrValueIsRequired)
		assert.Equal(t, order.Pending, o.Status())
	})

	t.Run("transition to assigned without agent is rejected", func(t *testing.T) {
		o, _ := order.NewOrder("O1", "vendor-1", "customer-1", pickup, delivery)

		require.ErrorIs(t, o.Transition(order.Assigned), errs.ErrValueIsRequired)
	})
}

func TestOrder_MoveAgent(t *testing.T) {
	pickup, delivery := route(t)
	position, _ := kernel.NewLocation(40.0, -74.0)

	t.Run("moves in transit order", func(t *testing.T) {
		o, _ := order.RestoreOrder("O1", order.Parties{AgentID: "agent-1"}, order.InTransit, pickup, delivery, nil)

		require.NoError(t, o.MoveAgent(position))

		equal, err := o.AgentPosition().IsEqual(position)
		require.NoError(t, err)
		assert.True(t, equal)
	})

	t.Run("rejects assigned order", func(t *testing.T) {
		o, _ := order.RestoreOrder("O1", order.Parties{AgentID: "agent-1"}, order.Assigned, pickup, delivery, nil)

		require.ErrorIs(t, o.MoveAgent(position), order.ErrOrderNotInTransit)
		assert.Nil(t, o.AgentPosition())
	})
}

func TestOrder_IsParty(t *testing.T) {
	pickup, delivery := route(t)
	o, _ := order.RestoreOrder("O1", order.Parties{VendorID: "v", CustomerID: "c", AgentID: "a"},
		order.Assigned, pickup, delivery, nil)

	assert.True(t, o.IsParty("v"))
	assert.True(t, o.IsParty("c"))
	assert.True(t, o.IsParty("a"))
	assert.False(t, o.IsParty("stranger"))
	assert.False(t, o.IsParty(""))
}
