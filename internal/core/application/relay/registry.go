package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/ports"
	"tracking/internal/metrics"
	"tracking/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	// ErrSessionClosed is returned for operations on a disconnected session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrSubscriptionForbidden is returned by restrictive subscription policies.
	ErrSubscriptionForbidden = errors.New("subscription forbidden")
)

// Session is one live client connection. Its identity never changes; its
// subscriptions live in the Registry.
type Session struct {
	id          string
	identity    identity.Identity
	outbox      *Outbox
	connectedAt time.Time
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Identity() identity.Identity {
	return s.identity
}

func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// Deliver queues a frame for the client without blocking.
func (s *Session) Deliver(frame ports.Frame) bool {
	return s.outbox.Enqueue(frame)
}

// SubscriptionPolicy decides whether an identity may watch an order.
type SubscriptionPolicy interface {
	Authorize(ctx context.Context, who identity.Identity, orderID string) error
}

// PermissivePolicy lets any identity watch any order id it knows.
type PermissivePolicy struct{}

func (PermissivePolicy) Authorize(context.Context, identity.Identity, string) error {
	return nil
}

// PartyPolicy only lets the vendor, customer or agent of an order watch it.
type PartyPolicy struct {
	Orders ports.OrderStore
}

func (p PartyPolicy) Authorize(ctx context.Context, who identity.Identity, orderID string) error {
	o, err := p.Orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.IsParty(who.UserID()) {
		return fmt.Errorf("%w: %s is not a party of order %s", ErrSubscriptionForbidden, who, orderID)
	}
	return nil
}

// DisconnectHook runs after a session was removed, with the orders it watched.
type DisconnectHook func(session *Session, orderIDs []string)

// RegistryConfig tunes the registry.
type RegistryConfig struct {
	OutboxSize int
}

// Registry tracks connected sessions and their per-order subscriptions. It is
// the single source of truth for who receives an order's events.
//
// All maps are guarded by mu. No lock is held while calling the Identity
// Provider, the subscription policy or disconnect hooks.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	byOrder   map[string]map[string]*Session
	bySession map[string]map[string]struct{}
	hooks     []DisconnectHook

	identities ports.IdentityProvider
	policy     SubscriptionPolicy
	config     RegistryConfig
	now        func() time.Time
	logger     *slog.Logger
}

// NewRegistry creates a registry. A nil policy means PermissivePolicy.
func NewRegistry(
	identities ports.IdentityProvider,
	policy SubscriptionPolicy,
	config RegistryConfig,
	logger *slog.Logger,
) *Registry {
	if policy == nil {
		policy = PermissivePolicy{}
	}
	return &Registry{
		sessions:   make(map[string]*Session),
		byOrder:    make(map[string]map[string]*Session),
		bySession:  make(map[string]map[string]struct{}),
		identities: identities,
		policy:     policy,
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With("component", "session_registry"),
	}
}

// OnDisconnect registers a hook run for every disconnected session.
func (r *Registry) OnDisconnect(hook DisconnectHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Connect resolves the credential and registers a session with no
// subscriptions. The session's outbox writer runs until Disconnect.
// ports.ErrStoreUnavailable from the Identity Provider is returned as is; any
// other failure is a ports.ErrAuthentication.
func (r *Registry) Connect(ctx context.Context, transport ports.Transport, credentialToken string) (*Session, error) {
	if credentialToken == "" {
		metrics.ConnectionsRefusedTotal.Inc()
		return nil, fmt.Errorf("%w: %w", ports.ErrAuthentication, errs.NewValueIsRequiredError("token"))
	}

	who, err := r.identities.Resolve(ctx, credentialToken)
	if err != nil {
		metrics.ConnectionsRefusedTotal.Inc()
		if errors.Is(err, ports.ErrAuthentication) || errors.Is(err, ports.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ports.ErrAuthentication, err)
	}

	session := &Session{
		id:          uuid.NewString(),
		identity:    who,
		outbox:      NewOutbox(transport, r.config.OutboxSize, r.logger),
		connectedAt: r.now(),
	}

	r.mu.Lock()
	r.sessions[session.id] = session
	r.bySession[session.id] = make(map[string]struct{})
	r.mu.Unlock()

	go session.outbox.Run(context.WithoutCancel(ctx))

	metrics.SessionsActive.Inc()
	r.logger.InfoContext(ctx, "Session connected", "session", session.id, "identity", who.String())
	return session, nil
}

// Subscribe adds orderID to the session's subscriptions. Idempotent.
func (r *Registry) Subscribe(ctx context.Context, session *Session, orderID string) error {
	if orderID == "" {
		return errs.NewValueIsRequiredError("orderId")
	}

	if err := r.policy.Authorize(ctx, session.identity, orderID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	orders, ok := r.bySession[session.id]
	if !ok {
		return ErrSessionClosed
	}
	if _, already := orders[orderID]; already {
		return nil
	}

	orders[orderID] = struct{}{}
	watchers, ok := r.byOrder[orderID]
	if !ok {
		watchers = make(map[string]*Session)
		r.byOrder[orderID] = watchers
	}
	watchers[session.id] = session

	metrics.SubscriptionsActive.Inc()
	return nil
}

// Unsubscribe removes orderID from the session's subscriptions. Unknown pairs are ignored.
func (r *Registry) Unsubscribe(session *Session, orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders, ok := r.bySession[session.id]
	if !ok {
		return
	}
	if _, subscribed := orders[orderID]; !subscribed {
		return
	}

	delete(orders, orderID)
	r.removeWatcherLocked(orderID, session.id)
}

// Disconnect removes the session and all its subscriptions, closes its outbox
// and runs disconnect hooks. It is the only path that releases a session.
func (r *Registry) Disconnect(session *Session) {
	r.mu.Lock()
	orders, ok := r.bySession[session.id]
	if !ok {
		r.mu.Unlock()
		return
	}

	orderIDs := make([]string, 0, len(orders))
	for orderID := range orders {
		orderIDs = append(orderIDs, orderID)
		r.removeWatcherLocked(orderID, session.id)
	}
	delete(r.bySession, session.id)
	delete(r.sessions, session.id)
	hooks := append([]DisconnectHook(nil), r.hooks...)
	r.mu.Unlock()

	session.outbox.Close()
	metrics.SessionsActive.Dec()

	sort.Strings(orderIDs)
	for _, hook := range hooks {
		hook(session, orderIDs)
	}

	r.logger.Info("Session disconnected", "session", session.id, "identity", session.identity.String())
}

// Subscribers returns the sessions subscribed to orderID right now.
func (r *Registry) Subscribers(orderID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	watchers := r.byOrder[orderID]
	out := make([]*Session, 0, len(watchers))
	for _, s := range watchers {
		out = append(out, s)
	}
	return out
}

// Subscriptions returns the order ids the session watches, sorted.
func (r *Registry) Subscriptions(session *Session) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := r.bySession[session.id]
	out := make([]string, 0, len(orders))
	for orderID := range orders {
		out = append(out, orderID)
	}
	sort.Strings(out)
	return out
}

// IsSubscribed reports whether the session watches orderID.
func (r *Registry) IsSubscribed(session *Session, orderID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.bySession[session.id][orderID]
	return ok
}

// Session looks up a connected session by id.
func (r *Registry) Session(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) removeWatcherLocked(orderID, sessionID string) {
	watchers := r.byOrder[orderID]
	if _, ok := watchers[sessionID]; !ok {
		return
	}
	delete(watchers, sessionID)
	if len(watchers) == 0 {
		delete(r.byOrder, orderID)
	}
	metrics.SubscriptionsActive.Dec()
}
