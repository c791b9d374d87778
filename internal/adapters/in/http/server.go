package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tracking/internal/adapters/in/ws"
	"tracking/internal/core/application/relay"
	"tracking/internal/core/application/usecases/queries"
	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/ports"
	"tracking/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error is the JSON body of every failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health is the body of GET /health.
type Health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// TrackingReader reads an order's tracking snapshot.
type TrackingReader interface {
	Handle(ctx context.Context, query queries.GetOrderTrackingQuery) (queries.GetOrderTrackingQueryResponse, error)
}

// SessionCounter reports how many clients are connected.
type SessionCounter interface {
	Len() int
}

// Server exposes the relay over HTTP: health, metrics, the tracking snapshot
// used by watchers to catch up, and the websocket endpoint.
type Server struct {
	tracking   TrackingReader
	identities ports.IdentityProvider
	policy     relay.SubscriptionPolicy
	sessions   SessionCounter
	websocket  *ws.Handler
	logger     *slog.Logger
}

// NewServer creates the HTTP surface. A nil policy lets any authenticated
// identity read any order.
func NewServer(
	tracking TrackingReader,
	identities ports.IdentityProvider,
	policy relay.SubscriptionPolicy,
	sessions SessionCounter,
	websocket *ws.Handler,
	logger *slog.Logger,
) *Server {
	if policy == nil {
		policy = relay.PermissivePolicy{}
	}
	return &Server{
		tracking:   tracking,
		identities: identities,
		policy:     policy,
		sessions:   sessions,
		websocket:  websocket,
		logger:     logger.With("component", "http"),
	}
}

// Register mounts every route on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.GetHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ws", s.websocket.Serve)

	api := e.Group("/api/v1", s.authenticate)
	api.GET("/orders/:id/tracking", s.GetOrderTracking)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Health{Status: "ok", Sessions: s.sessions.Len()})
}

// GetOrderTracking handles GET /api/v1/orders/:id/tracking - the current status
// and the agent's last known position.
func (s *Server) GetOrderTracking(ctx echo.Context) error {
	orderID := ctx.Param("id")

	query, err := queries.NewGetOrderTrackingQuery(orderID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id: " + err.Error(),
		})
	}

	who, _ := ctx.Get(identityKey).(identity.Identity)
	if err = s.policy.Authorize(ctx.Request().Context(), who, orderID); err != nil {
		return s.fail(ctx, err)
	}

	snapshot, err := s.tracking.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}

	return ctx.JSON(http.StatusOK, snapshot)
}

const identityKey = "identity"

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token := ws.Token(ctx.Request())
		if token == "" {
			return ctx.JSON(http.StatusUnauthorized, Error{
				Code:    http.StatusUnauthorized,
				Message: "Missing token",
			})
		}

		who, err := s.identities.Resolve(ctx.Request().Context(), token)
		if err != nil {
			if errors.Is(err, ports.ErrAuthentication) {
				return ctx.JSON(http.StatusUnauthorized, Error{
					Code:    http.StatusUnauthorized,
					Message: "Invalid token",
				})
			}
			return s.fail(ctx, err)
		}

		ctx.Set(identityKey, who)
		return next(ctx)
	}
}

func (s *Server) fail(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		return ctx.JSON(http.StatusNotFound, Error{Code: http.StatusNotFound, Message: "Order not found"})
	case errors.Is(err, relay.ErrSubscriptionForbidden):
		return ctx.JSON(http.StatusForbidden, Error{Code: http.StatusForbidden, Message: "Not a party of this order"})
	case errors.Is(err, ports.ErrStoreUnavailable):
		s.logger.ErrorContext(ctx.Request().Context(), "Order store unavailable", "error", err)
		return ctx.JSON(http.StatusServiceUnavailable, Error{
			Code:    http.StatusServiceUnavailable,
			Message: "Order store unavailable",
		})
	default:
		s.logger.ErrorContext(ctx.Request().Context(), "Request failed", "path", ctx.Path(), "error", err)
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to read order",
		})
	}
}
