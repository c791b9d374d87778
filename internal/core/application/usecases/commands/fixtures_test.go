package commands_test

import (
	"testing"

	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"

	"github.com/stretchr/testify/require"
)

func newIdentity(t *testing.T, userID string, role identity.Role) identity.Identity {
	t.Helper()
	who, err := identity.NewIdentity(userID, role)
	require.NoError(t, err)
	return who
}

func newLocation(t *testing.T, lat, lng float64) kernel.Location {
	t.Helper()
	loc, err := kernel.NewLocation(lat, lng)
	require.NoError(t, err)
	return loc
}

// newOrder builds an order with vendor V1 and customer C1, in the given status,
// assigned to agentID when non-empty.
func newOrder(t *testing.T, id string, status order.Status, agentID string) *order.Order {
	t.Helper()
	o, err := order.RestoreOrder(
		id,
		order.Parties{VendorID: "V1", CustomerID: "C1", AgentID: agentID},
		status,
		newLocation(t, 28.6139, 77.2090),
		newLocation(t, 28.7041, 77.1025),
		nil,
	)
	require.NoError(t, err)
	return o
}

func ptr(v float64) *float64 {
	return &v
}
