package memory

import (
	"context"
	"errors"
	"sync"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/model/tracking"
	"tracking/internal/core/ports"
	"tracking/internal/pkg/errs"
)

// ErrNoTransaction is returned by Commit and Rollback without a prior Begin.
var ErrNoTransaction = errors.New("no active transaction")

// UnitOfWorkFactory hands out units of work over one Store.
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork stages writes and applies them to the Store on Commit. Reads see
// committed state only. Commit fails with ports.ErrConcurrentUpdate when an
// order read in the transaction changed status since.
type UnitOfWork struct {
	store *Store

	mu      sync.Mutex
	active  bool
	changes []change
	samples []tracking.Sample
	read    map[string]order.Status
}

func (u *UnitOfWork) Begin(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.active = true
	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return ErrNoTransaction
	}

	err := u.store.apply(ctx, u.changes, u.samples, u.read)
	u.reset()
	return err
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return ErrNoTransaction
	}
	u.reset()
	return nil
}

func (u *UnitOfWork) OrderStore() ports.OrderStore {
	return stagedOrders{uow: u}
}

func (u *UnitOfWork) LocationLog() ports.LocationLog {
	return stagedLog{uow: u}
}

func (u *UnitOfWork) reset() {
	u.active = false
	u.changes = nil
	u.samples = nil
	u.read = nil
}

// observe remembers the status of the first read of each order in the transaction.
func (u *UnitOfWork) observe(o *order.Order) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return
	}
	if u.read == nil {
		u.read = make(map[string]order.Status)
	}
	if _, seen := u.read[o.ID()]; !seen {
		u.read[o.ID()] = o.Status()
	}
}

// stage records a write, or applies it directly outside a transaction.
func (u *UnitOfWork) stage(ctx context.Context, c *change, sample *tracking.Sample) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		var changes []change
		var samples []tracking.Sample
		if c != nil {
			changes = append(changes, *c)
		}
		if sample != nil {
			samples = append(samples, *sample)
		}
		return u.store.apply(ctx, changes, samples, nil)
	}

	if c != nil {
		if err := c.validate(); err != nil {
			return err
		}
		if _, err := u.store.Get(ctx, c.orderID); err != nil {
			return err
		}
		u.changes = append(u.changes, *c)
	}
	if sample != nil {
		if err := sample.Validate(); err != nil {
			return err
		}
		u.samples = append(u.samples, *sample)
	}
	return nil
}

type stagedOrders struct {
	uow *UnitOfWork
}

func (s stagedOrders) Get(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.uow.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.uow.observe(o)
	return o, nil
}

func (s stagedOrders) SetAgentPosition(ctx context.Context, orderID string, position kernel.Location) error {
	return s.uow.stage(ctx, &change{orderID: orderID, position: &position}, nil)
}

func (s stagedOrders) SetStatus(ctx context.Context, orderID string, status order.Status, agentID string) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if orderID == "" {
		return errs.NewValueIsRequiredError("orderId")
	}
	return s.uow.stage(ctx, &change{orderID: orderID, status: status, agentID: agentID}, nil)
}

type stagedLog struct {
	uow *UnitOfWork
}

func (l stagedLog) Append(ctx context.Context, sample tracking.Sample) error {
	return l.uow.stage(ctx, nil, &sample)
}
