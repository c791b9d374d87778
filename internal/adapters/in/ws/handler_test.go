package ws_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tracking/internal/adapters/in/ws"
	"tracking/internal/adapters/out/memory"
	"tracking/internal/adapters/wire"
	"tracking/internal/core/application/relay"
	"tracking/internal/core/application/usecases/commands"
	"tracking/internal/core/application/usecases/queries"
	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/ports"
	"tracking/internal/jobs"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSimulator struct {
	mu       sync.Mutex
	requests []jobs.SimulationRequest
}

func (s *fakeSimulator) Begin(_ context.Context, req jobs.SimulationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

func (s *fakeSimulator) Cancel(string) bool { return true }

func (s *fakeSimulator) AgentOf(string) (string, bool) { return "A1", true }

func (s *fakeSimulator) started() []jobs.SimulationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]jobs.SimulationRequest(nil), s.requests...)
}

type harness struct {
	url       string
	store     *memory.Store
	registry  *relay.Registry
	simulator *fakeSimulator
}

func mustLocation(t *testing.T, lat, lng float64) kernel.Location {
	t.Helper()
	loc, err := kernel.NewLocation(lat, lng)
	require.NoError(t, err)
	return loc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	store := memory.NewStore()
	for _, seed := range []struct {
		id      string
		status  order.Status
		agentID string
	}{
		{"O1", order.InTransit, "A1"},
		{"O2", order.Pending, ""},
	} {
		o, err := order.RestoreOrder(seed.id,
			order.Parties{VendorID: "V1", CustomerID: "C1", AgentID: seed.agentID},
			seed.status, mustLocation(t, 28.6139, 77.2090), mustLocation(t, 28.7041, 77.1025), nil)
		require.NoError(t, err)
		require.NoError(t, store.Add(t.Context(), o))
	}

	identities := memory.NewIdentityProvider()
	for token, who := range map[string]struct {
		id   string
		role identity.Role
	}{
		"tok-agent":    {"A1", identity.Delivery},
		"tok-customer": {"C1", identity.Customer},
	} {
		id, err := identity.NewIdentity(who.id, who.role)
		require.NoError(t, err)
		require.NoError(t, identities.Issue(token, id))
	}

	registry := relay.NewRegistry(identities, nil, relay.RegistryConfig{}, logger)
	fanout := relay.NewFanout(registry, logger)
	uowFactory := memory.NewUnitOfWorkFactory(store)
	ingest := commands.NewIngestLocationCommandHandler(uowFactory, fanout, logger)
	transition := commands.NewTransitionStatusCommandHandler(uowFactory, fanout, logger)
	transition.OnTerminal(fanout)
	simulator := &fakeSimulator{}

	handler := ws.NewHandler(registry, ingest, transition, queries.NewGetOrderTrackingQueryHandler(store),
		simulator, ws.DefaultConfig(), logger)

	e := echo.New()
	e.GET("/ws", handler.Serve)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &harness{
		url:       "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
		store:     store,
		registry:  registry,
		simulator: simulator,
	}
}

type client struct {
	t     *testing.T
	conn  *websocket.Conn
	codec wire.Codec
}

func (h *harness) dial(t *testing.T, query string, subprotocols ...string) *client {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: subprotocols, HandshakeTimeout: 2 * time.Second}

	conn, resp, err := dialer.Dial(h.url+"?"+query, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &client{t: t, conn: conn, codec: wire.Negotiate(conn.Subprotocol())}
}

func (c *client) send(msg wire.Message) {
	c.t.Helper()
	data, err := c.codec.Encode(msg)
	require.NoError(c.t, err)

	messageType := websocket.TextMessage
	if c.codec.Binary() {
		messageType = websocket.BinaryMessage
	}
	require.NoError(c.t, c.conn.WriteMessage(messageType, data))
}

func (c *client) sendRaw(data string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

func (c *client) receive() wire.Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	msg, err := c.codec.DecodeFromRelay(data)
	require.NoError(c.t, err)
	return msg
}

// expectSilence asserts nothing arrives for a short while.
func (c *client) expectSilence() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))

	_, _, err := c.conn.ReadMessage()
	var netErr net.Error
	require.True(c.t, errors.As(err, &netErr) && netErr.Timeout(), "expected no message, got %v", err)
}

func ptr(v float64) *float64 { return &v }

func TestServe_RefusesUnknownToken(t *testing.T) {
	h := newHarness(t)

	for _, query := range []string{"", "token=nope"} {
		_, resp, err := websocket.DefaultDialer.Dial(h.url+"?"+query, nil)

		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
	assert.Zero(t, h.registry.Len())
}

type unavailableIdentities struct{}

func (unavailableIdentities) Resolve(context.Context, string) (identity.Identity, error) {
	return identity.Identity{}, fmt.Errorf("%w: connection refused", ports.ErrStoreUnavailable)
}

func TestServe_IdentityStoreUnavailable(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	registry := relay.NewRegistry(unavailableIdentities{}, nil, relay.RegistryConfig{}, logger)
	handler := ws.NewHandler(registry, nil, nil, nil, nil, ws.DefaultConfig(), logger)

	e := echo.New()
	e.GET("/ws", handler.Serve)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=tok-agent"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Zero(t, registry.Len())
}

func TestServe_AcceptsBearerHeader(t *testing.T) {
	h := newHarness(t)
	header := http.Header{}
	header.Set("Authorization", "Bearer tok-customer")

	conn, resp, err := websocket.DefaultDialer.Dial(h.url, header)

	require.NoError(t, err)
	_ = resp.Body.Close()
	defer conn.Close()
	require.Eventually(t, func() bool { return h.registry.Len() == 1 }, time.Second, 10*time.Millisecond)
}

// O1 is in transit with agent A1; the customer watching O1 sees the sample.
func TestServe_LocationReachesWatcher(t *testing.T) {
	h := newHarness(t)
	customer := h.dial(t, "token=tok-customer")
	agent := h.dial(t, "token=tok-agent")

	customer.send(&wire.Subscribe{OrderID: "O1"})
	assert.Equal(t, &wire.Subscribed{OrderID: "O1"}, customer.receive())

	agent.send(&wire.LocationUpdate{AgentID: "A1", OrderID: "O1", Lat: ptr(28.6139), Lng: ptr(77.2090)})

	got, ok := customer.receive().(*wire.LocationBroadcast)
	require.True(t, ok)
	assert.Equal(t, "O1", got.OrderID)
	assert.Equal(t, "A1", got.AgentID)
	assert.InDelta(t, 28.6139, got.Lat, 1e-12)
	assert.InDelta(t, 77.2090, got.Lng, 1e-12)
	assert.False(t, got.Timestamp.IsZero())

	assert.Equal(t, &wire.Subscribed{OrderID: "O1"}, agent.receive(), "accepted sample subscribes its agent")
	o, err := h.store.Get(t.Context(), "O1")
	require.NoError(t, err)
	require.NotNil(t, o.AgentPosition())
	assert.Len(t, h.store.Samples("O1"), 1)
}

func TestServe_RejectedSampleIsSilent(t *testing.T) {
	h := newHarness(t)
	customer := h.dial(t, "token=tok-customer&order=O1")
	agent := h.dial(t, "token=tok-agent")
	assert.Equal(t, &wire.Subscribed{OrderID: "O1"}, customer.receive())

	agent.send(&wire.LocationUpdate{AgentID: "A1", OrderID: "O1", Lat: ptr(91), Lng: ptr(0)})

	customer.expectSilence()
	agent.expectSilence()
	assert.Empty(t, h.store.Samples("O1"))
}

// O2 is pending; asking for in_transit is rejected and nothing is broadcast.
func TestServe_InvalidTransitionAnswersSender(t *testing.T) {
	h := newHarness(t)
	customer := h.dial(t, "token=tok-customer&order=O2")
	agent := h.dial(t, "token=tok-agent")
	assert.Equal(t, &wire.Subscribed{OrderID: "O2"}, customer.receive())

	agent.send(&wire.StatusUpdate{OrderID: "O2", Status: "in_transit"})

	reply, ok := agent.receive().(*wire.Error)
	require.True(t, ok)
	assert.Equal(t, "invalid_transition", reply.Code)
	customer.expectSilence()

	o, err := h.store.Get(t.Context(), "O2")
	require.NoError(t, err)
	assert.Equal(t, order.Pending, o.Status())
}

func TestServe_DeliveredStopsTracking(t *testing.T) {
	h := newHarness(t)
	customer := h.dial(t, "token=tok-customer&order=O1")
	agent := h.dial(t, "token=tok-agent&order=O1")
	assert.Equal(t, &wire.Subscribed{OrderID: "O1"}, customer.receive())
	assert.Equal(t, &wire.Subscribed{OrderID: "O1"}, agent.receive())

	agent.send(&wire.StatusUpdate{OrderID: "O1", Status: "delivered"})

	want := &wire.StatusBroadcast{OrderID: "O1", Status: "delivered"}
	assert.Equal(t, want, customer.receive())
	assert.Equal(t, want, agent.receive())
	assert.Equal(t, &wire.TrackingStopped{OrderID: "O1", Status: "delivered"}, agent.receive())
	customer.expectSilence()
}

func TestServe_MalformedMessages(t *testing.T) {
	h := newHarness(t)
	customer := h.dial(t, "token=tok-customer")

	for _, raw := range []string{
		`not json`,
		`{"type":"teleport","payload":{}}`,
		`{"type":"subscribe","payload":{}}`,
	} {
		customer.sendRaw(raw)

		reply, ok := customer.receive().(*wire.Error)
		require.True(t, ok, raw)
		assert.Equal(t, "invalid_message", reply.Code, raw)
	}
}

func TestServe_CBORSubprotocol(t *testing.T) {
	h := newHarness(t)
	customer := h.dial(t, "token=tok-customer", wire.SubprotocolCBOR)
	require.Equal(t, wire.SubprotocolCBOR, customer.conn.Subprotocol())

	customer.send(&wire.Subscribe{OrderID: "O1"})

	messageType, data, err := customer.conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, messageType)
	msg, err := wire.CBOR.DecodeFromRelay(data)
	require.NoError(t, err)
	assert.Equal(t, &wire.Subscribed{OrderID: "O1"}, msg)
}

func TestServe_SimulationStart(t *testing.T) {
	h := newHarness(t)

	t.Run("agent of the order", func(t *testing.T) {
		agent := h.dial(t, "token=tok-agent")

		agent.send(&wire.SimulationStart{OrderID: "O1"})

		assert.Equal(t, &wire.Subscribed{OrderID: "O1"}, agent.receive())
		require.Eventually(t, func() bool { return len(h.simulator.started()) == 1 }, time.Second, 10*time.Millisecond)
		req := h.simulator.started()[0]
		assert.Equal(t, "O1", req.OrderID)
		assert.Equal(t, "A1", req.AgentID)
		assert.InDelta(t, 28.6139, req.Pickup.Lat(), 1e-12)
		assert.InDelta(t, 28.7041, req.Delivery.Lat(), 1e-12)
	})

	t.Run("someone else", func(t *testing.T) {
		customer := h.dial(t, "token=tok-customer")

		customer.send(&wire.SimulationStart{OrderID: "O1"})

		reply, ok := customer.receive().(*wire.Error)
		require.True(t, ok)
		assert.Equal(t, "agent_mismatch", reply.Code)
	})

	t.Run("order not moving", func(t *testing.T) {
		agent := h.dial(t, "token=tok-agent")

		agent.send(&wire.SimulationStart{OrderID: "O2"})

		reply, ok := agent.receive().(*wire.Error)
		require.True(t, ok)
		assert.Equal(t, "agent_mismatch", reply.Code)
	})
}

func TestServe_DisconnectReleasesSession(t *testing.T) {
	h := newHarness(t)
	customer := h.dial(t, "token=tok-customer&order=O1")
	assert.Equal(t, &wire.Subscribed{OrderID: "O1"}, customer.receive())
	require.Equal(t, 1, h.registry.Len())

	require.NoError(t, customer.conn.Close())

	require.Eventually(t, func() bool {
		return h.registry.Len() == 0 && len(h.registry.Subscribers("O1")) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestToken(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"query", "/ws?token=abc", "", "abc"},
		{"bearer", "/ws", "Bearer xyz", "xyz"},
		{"bearer lowercase", "/ws", "bearer xyz", "xyz"},
		{"query wins", "/ws?token=abc", "Bearer xyz", "abc"},
		{"other scheme", "/ws", "Basic xyz", ""},
		{"none", "/ws", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, ws.Token(req))
		})
	}
}
