// Package ws serves the relay's persistent client connections over websockets.
//
// A client authenticates once, at connect, with ?token= or an
// "Authorization: Bearer" header; an unknown token is answered with 401 and
// never upgraded. After that every inbound message is a wire envelope
// dispatched to the relay core, and every outbound frame goes through the
// session's outbox.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tracking/internal/adapters/wire"
	"tracking/internal/core/application/relay"
	"tracking/internal/core/application/usecases/commands"
	"tracking/internal/core/application/usecases/queries"
	"tracking/internal/core/ports"
	"tracking/internal/jobs"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// IngestHandler accepts location samples.
type IngestHandler interface {
	Handle(ctx context.Context, command commands.IngestLocationCommand) error
}

// TransitionHandler applies status transitions.
type TransitionHandler interface {
	Handle(ctx context.Context, command commands.TransitionStatusCommand) error
}

// TrackingReader reads an order's tracking snapshot.
type TrackingReader interface {
	Handle(ctx context.Context, query queries.GetOrderTrackingQuery) (queries.GetOrderTrackingQueryResponse, error)
}

// Simulator runs simulated deliveries.
type Simulator interface {
	Begin(ctx context.Context, req jobs.SimulationRequest) error
	Cancel(orderID string) bool
	AgentOf(orderID string) (string, bool)
}

// Config tunes the websocket transport.
type Config struct {
	ReadLimit      int64
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	AllowedOrigins []string
}

// DefaultConfig returns 64KiB messages, 10s writes and a ping every 54s.
func DefaultConfig() Config {
	return Config{
		ReadLimit:    64 << 10,
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		PingPeriod:   54 * time.Second,
	}
}

// Handler upgrades authenticated requests and runs one reader loop per connection.
type Handler struct {
	registry   *relay.Registry
	ingest     IngestHandler
	transition TransitionHandler
	tracking   TrackingReader
	simulator  Simulator
	upgrader   websocket.Upgrader
	config     Config
	logger     *slog.Logger
}

func NewHandler(
	registry *relay.Registry,
	ingest IngestHandler,
	transition TransitionHandler,
	tracking TrackingReader,
	simulator Simulator,
	config Config,
	logger *slog.Logger,
) *Handler {
	h := &Handler{
		registry:   registry,
		ingest:     ingest,
		transition: transition,
		tracking:   tracking,
		simulator:  simulator,
		config:     config,
		logger:     logger.With("component", "ws"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    wire.Subprotocols,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Token extracts the credential from ?token= or an Authorization bearer header.
func Token(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get(echo.HeaderAuthorization)
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// Serve handles GET /ws. An optional ?order= subscribes the session right away.
func (h *Handler) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	conn := newConn(h.config.WriteTimeout)

	session, err := h.registry.Connect(ctx, conn, Token(c.Request()))
	if err != nil {
		if errors.Is(err, ports.ErrAuthentication) {
			h.logger.WarnContext(ctx, "Connection refused", "remote", c.RealIP(), "error", err)
			return c.JSON(http.StatusUnauthorized, errorBody{Code: codeUnauthenticated, Message: "invalid or missing token"})
		}
		if errors.Is(err, ports.ErrStoreUnavailable) {
			h.logger.ErrorContext(ctx, "Identity store unavailable", "remote", c.RealIP(), "error", err)
			return c.JSON(http.StatusServiceUnavailable, errorBody{Code: codeStoreUnavailable, Message: "identity store unavailable"})
		}
		return err
	}

	socket, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.registry.Disconnect(session)
		h.logger.WarnContext(ctx, "Upgrade failed", "session", session.ID(), "error", err)
		return nil
	}
	conn.attach(socket, wire.Negotiate(socket.Subprotocol()))
	defer h.registry.Disconnect(session)

	if orderID := c.QueryParam("order"); orderID != "" {
		h.subscribe(ctx, session, orderID)
	}

	stopPing := h.keepAlive(conn, socket)
	defer stopPing()

	h.readLoop(ctx, session, conn, socket)
	return nil
}

func (h *Handler) readLoop(ctx context.Context, session *relay.Session, conn *Conn, socket *websocket.Conn) {
	socket.SetReadLimit(h.config.ReadLimit)
	_ = socket.SetReadDeadline(time.Now().Add(h.config.PongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.DebugContext(ctx, "Connection lost", "session", session.ID(), "error", err)
			}
			return
		}
		_ = socket.SetReadDeadline(time.Now().Add(h.config.PongWait))

		msg, err := conn.codec.DecodeFromClient(data)
		if err != nil {
			h.logger.DebugContext(ctx, "Message rejected", "session", session.ID(), "error", err)
			h.reply(session, err)
			continue
		}

		h.dispatch(ctx, session, msg)
	}
}

func (h *Handler) keepAlive(conn *Conn, socket *websocket.Conn) func() {
	ticker := time.NewTicker(h.config.PingPeriod)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					_ = socket.Close()
					return
				}
			}
		}
	}()

	return func() { close(done) }
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *Handler) subscribe(ctx context.Context, session *relay.Session, orderID string) bool {
	if err := h.registry.Subscribe(ctx, session, orderID); err != nil {
		h.logger.InfoContext(ctx, "Subscription refused", "session", session.ID(), "order", orderID, "error", err)
		h.reply(session, err)
		return false
	}
	session.Deliver(ports.SubscribedFrame{OrderID: orderID})
	return true
}

func (h *Handler) reply(session *relay.Session, err error) {
	session.Deliver(ports.ErrorFrame{Code: errorCode(err), Message: err.Error()})
}

// errorBody is the JSON error returned before an upgrade.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
