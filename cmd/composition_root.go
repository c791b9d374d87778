package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	httpadapter "tracking/internal/adapters/in/http"
	"tracking/internal/adapters/in/pgnotify"
	"tracking/internal/adapters/in/ws"
	"tracking/internal/adapters/out/memory"
	"tracking/internal/adapters/out/postgres"
	"tracking/internal/adapters/out/postgres/orderstore"
	"tracking/internal/adapters/out/postgres/tokenstore"
	"tracking/internal/core/application/relay"
	"tracking/internal/core/application/usecases/commands"
	"tracking/internal/core/application/usecases/queries"
	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/ports"
	"tracking/internal/jobs"

	"gorm.io/gorm"
)

// CompositionRoot wires the relay. With a nil *gorm.DB every store is in memory.
type CompositionRoot struct {
	config Config
	logger *slog.Logger

	uowFactory ports.UnitOfWorkFactory
	orders     ports.OrderStore
	identities ports.IdentityProvider
	addOrder   func(ctx context.Context, o *order.Order) error
	issueToken func(ctx context.Context, token string, who identity.Identity, ttl time.Duration) error

	registry    *relay.Registry
	fanout      *relay.Fanout
	ingest      commands.IngestLocationCommandHandler
	transition  *commands.TransitionStatusCommandHandler
	simulations *jobs.SimulationManager
	background  []jobs.Job
}

func NewCompositionRoot(config Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	c := &CompositionRoot{config: config, logger: logger}

	if gormDB != nil {
		c.usePostgres(gormDB)
	} else {
		c.useMemory()
	}

	c.registry = relay.NewRegistry(c.identities, c.policy(), relay.RegistryConfig{
		OutboxSize: config.Relay.OutboxSize,
	}, logger)
	c.fanout = relay.NewFanout(c.registry, logger)

	c.ingest = commands.NewIngestLocationCommandHandler(c.uowFactory, c.fanout, logger)
	c.transition = commands.NewTransitionStatusCommandHandler(c.uowFactory, c.fanout, logger)

	simulations, err := jobs.NewSimulationManager(nil, config.Relay.Simulation, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("simulation manager: %w", err)
	}
	c.simulations = simulations

	c.transition.OnTerminal(c.fanout)
	c.transition.OnTerminal(c.simulations)
	c.registry.OnDisconnect(func(session *relay.Session, _ []string) {
		c.simulations.CancelOwnedBy(session.ID())
	})

	c.background = append(c.background, c.simulations)
	if gormDB != nil && config.Relay.ListenNotifications {
		c.background = append(c.background, pgnotify.NewListener(config.DSN(), c.transition, logger))
	}

	return c, nil
}

func (c *CompositionRoot) usePostgres(db *gorm.DB) {
	orders := orderstore.NewGormOrderStore(db, false)
	tokens := tokenstore.NewGormIdentityProvider(db)

	c.uowFactory = postgres.NewGormUnitOfWorkFactory(db)
	c.orders = orders
	c.identities = tokens
	c.addOrder = orders.AddIfAbsent
	c.issueToken = tokens.Issue
}

func (c *CompositionRoot) useMemory() {
	store := memory.NewStore()
	tokens := memory.NewIdentityProvider()

	c.uowFactory = memory.NewUnitOfWorkFactory(store)
	c.orders = store
	c.identities = tokens
	c.addOrder = store.Add
	c.issueToken = func(_ context.Context, token string, who identity.Identity, _ time.Duration) error {
		return tokens.Issue(token, who)
	}
}

func (c *CompositionRoot) policy() relay.SubscriptionPolicy {
	if c.config.Relay.SubscriptionPolicy == PolicyParty {
		return relay.PartyPolicy{Orders: c.orders}
	}
	return relay.PermissivePolicy{}
}

// Seed creates the configured orders and tokens.
func (c *CompositionRoot) Seed(ctx context.Context) error {
	seed := c.config.Relay.Seed
	var problems []error

	for _, s := range seed.Orders {
		o, err := seedOrder(s)
		if err == nil {
			err = c.addOrder(ctx, o)
		}
		if err != nil {
			problems = append(problems, fmt.Errorf("seed order %s: %w", s.ID, err))
		}
	}

	for _, s := range seed.Tokens {
		role, err := identity.ParseRole(s.Role)
		if err != nil {
			problems = append(problems, fmt.Errorf("seed token for %s: %w", s.UserID, err))
			continue
		}
		who, err := identity.NewIdentity(s.UserID, role)
		if err == nil {
			err = c.issueToken(ctx, s.Token, who, s.TTL)
		}
		if err != nil {
			problems = append(problems, fmt.Errorf("seed token for %s: %w", s.UserID, err))
		}
	}

	if err := errors.Join(problems...); err != nil {
		return err
	}

	c.logger.Info("Seed applied", "orders", len(seed.Orders), "tokens", len(seed.Tokens))
	return nil
}

func seedOrder(s SeedOrder) (*order.Order, error) {
	status := order.Pending
	if s.Status != "" {
		parsed, err := order.ParseStatus(s.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	pickup, pErr := kernel.NewLocation(s.Pickup.Lat, s.Pickup.Lng)
	delivery, dErr := kernel.NewLocation(s.Delivery.Lat, s.Delivery.Lng)
	if err := errors.Join(pErr, dErr); err != nil {
		return nil, err
	}

	return order.RestoreOrder(s.ID,
		order.Parties{VendorID: s.VendorID, CustomerID: s.CustomerID, AgentID: s.AgentID},
		status, pickup, delivery, nil)
}

func (c *CompositionRoot) CreateIngestLocationCommandHandler() commands.IngestLocationCommandHandler {
	return c.ingest
}

func (c *CompositionRoot) CreateTransitionStatusCommandHandler() *commands.TransitionStatusCommandHandler {
	return c.transition
}

func (c *CompositionRoot) CreateGetOrderTrackingQueryHandler() queries.GetOrderTrackingQueryHandler {
	return queries.NewGetOrderTrackingQueryHandler(c.orders)
}

// CreateServer builds the HTTP and websocket surface.
func (c *CompositionRoot) CreateServer() *httpadapter.Server {
	tracking := c.CreateGetOrderTrackingQueryHandler()
	wsHandler := ws.NewHandler(
		c.registry,
		c.ingest,
		c.transition,
		tracking,
		c.simulations,
		c.config.Relay.WebSocket.transport(),
		c.logger,
	)
	return httpadapter.NewServer(tracking, c.identities, c.policy(), c.registry, wsHandler, c.logger)
}

// CreateJobManager returns the manager of every background job.
func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.logger, c.background...)
}

// Registry exposes the session registry.
func (c *CompositionRoot) Registry() *relay.Registry {
	return c.registry
}
