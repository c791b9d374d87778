// Package memory keeps orders, the sample log and tokens in process memory. It
// backs STORE_DRIVER=memory and tests that need real semantics without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/model/tracking"
	"tracking/internal/core/ports"
	"tracking/internal/pkg/errs"
)

type orderRecord struct {
	parties       order.Parties
	status        order.Status
	pickup        kernel.Location
	delivery      kernel.Location
	agentPosition *kernel.Location
}

// Store is the committed state shared by every unit of work.
type Store struct {
	mu      sync.RWMutex
	orders  map[string]orderRecord
	samples map[string][]tracking.Sample
}

func NewStore() *Store {
	return &Store{
		orders:  make(map[string]orderRecord),
		samples: make(map[string][]tracking.Sample),
	}
}

// Add inserts or replaces an order.
func (s *Store) Add(_ context.Context, o *order.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.ID()] = orderRecord{
		parties:       order.Parties{VendorID: o.VendorID(), CustomerID: o.CustomerID(), AgentID: o.AgentID()},
		status:        o.Status(),
		pickup:        o.Pickup(),
		delivery:      o.Delivery(),
		agentPosition: o.AgentPosition(),
	}
	return nil
}

func (s *Store) Get(_ context.Context, orderID string) (*order.Order, error) {
	s.mu.RLock()
	rec, ok := s.orders[orderID]
	s.mu.RUnlock()

	if !ok {
		return nil, errs.NewObjectNotFoundError("orderId", orderID)
	}
	return order.RestoreOrder(orderID, rec.parties, rec.status, rec.pickup, rec.delivery, rec.agentPosition)
}

func (s *Store) SetAgentPosition(ctx context.Context, orderID string, position kernel.Location) error {
	return s.apply(ctx, []change{{orderID: orderID, position: &position}}, nil, nil)
}

func (s *Store) SetStatus(ctx context.Context, orderID string, status order.Status, agentID string) error {
	return s.apply(ctx, []change{{orderID: orderID, status: status, agentID: agentID}}, nil, nil)
}

func (s *Store) Append(ctx context.Context, sample tracking.Sample) error {
	return s.apply(ctx, nil, []tracking.Sample{sample}, nil)
}

// Samples returns the logged samples of an order, oldest first.
func (s *Store) Samples(orderID string) []tracking.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tracking.Sample(nil), s.samples[orderID]...)
}

// change is one staged order mutation: a position, a status, or both.
type change struct {
	orderID  string
	position *kernel.Location
	status   order.Status
	agentID  string
}

func (c change) validate() error {
	if c.position != nil {
		if err := c.position.Validate(); err != nil {
			return err
		}
	}
	if c.status != order.Unknown {
		return c.status.Validate()
	}
	return nil
}

// apply checks every change against the committed state first, so a batch is
// written entirely or not at all. read holds the status each order had when the
// batch was prepared; a different committed status fails with
// ports.ErrConcurrentUpdate.
func (s *Store) apply(_ context.Context, changes []change, samples []tracking.Sample, read map[string]order.Status) error {
	for _, c := range changes {
		if err := c.validate(); err != nil {
			return err
		}
	}
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for orderID, status := range read {
		if rec, ok := s.orders[orderID]; ok && rec.status != status {
			return fmt.Errorf("%w: order %s was %s, now %s", ports.ErrConcurrentUpdate, orderID, status, rec.status)
		}
	}

	for _, c := range changes {
		if _, ok := s.orders[c.orderID]; !ok {
			return errs.NewObjectNotFoundError("orderId", c.orderID)
		}
	}

	for _, c := range changes {
		rec := s.orders[c.orderID]
		if c.position != nil {
			p := *c.position
			rec.agentPosition = &p
		}
		if c.status != order.Unknown {
			rec.status = c.status
			if c.agentID != "" {
				rec.parties.AgentID = c.agentID
			}
		}
		s.orders[c.orderID] = rec
	}

	for _, sample := range samples {
		s.samples[sample.OrderID()] = append(s.samples[sample.OrderID()], sample)
	}

	return nil
}

var (
	_ ports.OrderStore  = (*Store)(nil)
	_ ports.LocationLog = (*Store)(nil)
)
