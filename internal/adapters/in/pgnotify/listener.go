// Package pgnotify propagates status changes written to the order database by
// other systems. They arrive as NOTIFY payloads on the order_status_changed
// channel:
//
//	SELECT pg_notify('order_status_changed',
//	    '{"orderId":"O1","status":"cancelled","agentId":"A1"}');
//
// Each valid payload is announced to the order's watchers exactly as if the
// relay had applied the transition itself. The relay does not NOTIFY its own
// transitions.
package pgnotify

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tracking/internal/core/domain/model/order"
	"tracking/internal/pkg/errs"

	"github.com/lib/pq"
)

// Channel is the NOTIFY channel the listener subscribes to.
const Channel = "order_status_changed"

// Announcer broadcasts an applied status.
type Announcer interface {
	Announce(orderID, agentID string, status order.Status)
}

// source is the part of *pq.Listener used here.
type source interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// Listener is a jobs.Job that relays NOTIFY payloads to an Announcer.
type Listener struct {
	source       source
	announcer    Announcer
	pingInterval time.Duration
	logger       *slog.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

// NewListener connects a pq.Listener to dsn. Lost connections are retried
// between 10s and 1m apart.
func NewListener(dsn string, announcer Announcer, logger *slog.Logger) *Listener {
	logger = logger.With("component", "pgnotify")
	pqListener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Listener connection event", "event", event, "error", err)
		}
	})
	return newListener(pqListener, announcer, logger)
}

func newListener(source source, announcer Announcer, logger *slog.Logger) *Listener {
	return &Listener{
		source:       source,
		announcer:    announcer,
		pingInterval: 90 * time.Second,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

func (l *Listener) Name() string {
	return "pgnotify_listener"
}

// Start subscribes to Channel and starts relaying notifications.
func (l *Listener) Start() error {
	if err := l.source.Listen(Channel); err != nil {
		return fmt.Errorf("listen %s: %w", Channel, err)
	}

	l.wg.Add(1)
	go l.run()
	return nil
}

// Stop closes the connection and waits for the relay loop to exit.
func (l *Listener) Stop() {
	close(l.done)
	l.wg.Wait()
	if err := l.source.Close(); err != nil {
		l.logger.Debug("Listener close failed", "error", err)
	}
}

func (l *Listener) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case n := <-l.source.NotificationChannel():
			// nil after a reconnect: notifications may have been missed.
			if n == nil {
				l.logger.Warn("Listener reconnected, notifications may have been lost")
				continue
			}
			l.handle(n.Extra)
		case <-ticker.C:
			if err := l.source.Ping(); err != nil {
				l.logger.Warn("Listener ping failed", "error", err)
			}
		}
	}
}

func (l *Listener) handle(payload string) {
	change, err := parse(payload)
	if err != nil {
		l.logger.Warn("Notification dropped", "payload", payload, "error", err)
		return
	}

	l.logger.Info("External status change", "order", change.orderID, "status", change.status.String())
	l.announcer.Announce(change.orderID, change.agentID, change.status)
}

type statusChange struct {
	orderID string
	agentID string
	status  order.Status
}

type notification struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	AgentID string `json:"agentId"`
}

func parse(payload string) (statusChange, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return statusChange{}, errs.NewValueIsInvalidErrorWithCause("payload", err)
	}

	var problems []error
	if n.OrderID == "" {
		problems = append(problems, errs.NewValueIsRequiredError("orderId"))
	}
	status, err := order.ParseStatus(n.Status)
	if err != nil {
		problems = append(problems, err)
	}
	if err = errors.Join(problems...); err != nil {
		return statusChange{}, err
	}

	return statusChange{orderID: n.OrderID, agentID: n.AgentID, status: status}, nil
}
