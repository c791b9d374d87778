package http_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "tracking/internal/adapters/in/http"
	"tracking/internal/adapters/in/ws"
	"tracking/internal/adapters/out/memory"
	"tracking/internal/core/application/relay"
	"tracking/internal/core/application/usecases/queries"
	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho(t *testing.T, partiesOnly bool) *echo.Echo {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	pickup, err := kernel.NewLocation(28.6139, 77.2090)
	require.NoError(t, err)
	delivery, err := kernel.NewLocation(28.7041, 77.1025)
	require.NoError(t, err)
	position, err := kernel.NewLocation(28.65, 77.15)
	require.NoError(t, err)

	store := memory.NewStore()
	o, err := order.RestoreOrder("O1", order.Parties{VendorID: "V1", CustomerID: "C1", AgentID: "A1"},
		order.InTransit, pickup, delivery, &position)
	require.NoError(t, err)
	require.NoError(t, store.Add(t.Context(), o))

	identities := memory.NewIdentityProvider()
	customer, err := identity.NewIdentity("C1", identity.Customer)
	require.NoError(t, err)
	stranger, err := identity.NewIdentity("C9", identity.Customer)
	require.NoError(t, err)
	require.NoError(t, identities.Issue("tok-customer", customer))
	require.NoError(t, identities.Issue("tok-stranger", stranger))

	var policy relay.SubscriptionPolicy
	if partiesOnly {
		policy = relay.PartyPolicy{Orders: store}
	}

	registry := relay.NewRegistry(identities, policy, relay.RegistryConfig{}, logger)
	wsHandler := ws.NewHandler(registry, nil, nil, nil, nil, ws.DefaultConfig(), logger)
	server := httpadapter.NewServer(queries.NewGetOrderTrackingQueryHandler(store), identities, policy,
		registry, wsHandler, logger)

	e := echo.New()
	server.Register(e)
	return e
}

func get(e *echo.Echo, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetHealth(t *testing.T) {
	e := newEcho(t, false)

	rec := get(e, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body httpadapter.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httpadapter.Health{Status: "ok", Sessions: 0}, body)
}

func TestGetMetrics(t *testing.T) {
	e := newEcho(t, false)

	rec := get(e, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOrderTracking(t *testing.T) {
	e := newEcho(t, false)

	rec := get(e, "/api/v1/orders/O1/tracking", "tok-customer")

	require.Equal(t, http.StatusOK, rec.Code)
	var body queries.GetOrderTrackingQueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "O1", body.OrderID)
	assert.Equal(t, "in_transit", body.Status)
	assert.Equal(t, "A1", body.AgentID)
	require.NotNil(t, body.AgentPosition)
	assert.InDelta(t, 28.65, body.AgentPosition.Lat, 1e-12)
	assert.False(t, body.Terminal)
}

func TestGetOrderTracking_Errors(t *testing.T) {
	tests := []struct {
		name        string
		partiesOnly bool
		target      string
		token       string
		want        int
	}{
		{"missing token", false, "/api/v1/orders/O1/tracking", "", http.StatusUnauthorized},
		{"unknown token", false, "/api/v1/orders/O1/tracking", "nope", http.StatusUnauthorized},
		{"unknown order", false, "/api/v1/orders/O404/tracking", "tok-customer", http.StatusNotFound},
		{"not a party", true, "/api/v1/orders/O1/tracking", "tok-stranger", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho(t, tt.partiesOnly)
			rec := get(e, tt.target, tt.token)

			assert.Equal(t, tt.want, rec.Code)
			var body httpadapter.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Code)
		})
	}
}
