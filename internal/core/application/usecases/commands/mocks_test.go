package commands_test

import (
	"context"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/model/tracking"
	"tracking/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockOrderStore struct{ mock.Mock }

func (m *MockOrderStore) Get(ctx context.Context, orderID string) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderStore) SetAgentPosition(ctx context.Context, orderID string, position kernel.Location) error {
	args := m.Called(ctx, orderID, position)
	return args.Error(0)
}

func (m *MockOrderStore) SetStatus(ctx context.Context, orderID string, status order.Status, agentID string) error {
	args := m.Called(ctx, orderID, status, agentID)
	return args.Error(0)
}

type MockLocationLog struct{ mock.Mock }

func (m *MockLocationLog) Append(ctx context.Context, sample tracking.Sample) error {
	args := m.Called(ctx, sample)
	return args.Error(0)
}

type MockUoW struct{ mock.Mock }

func (m *MockUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) OrderStore() ports.OrderStore {
	args := m.Called()
	return args.Get(0).(ports.OrderStore)
}

func (m *MockUoW) LocationLog() ports.LocationLog {
	args := m.Called()
	return args.Get(0).(ports.LocationLog)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() ports.UnitOfWork {
	args := m.Called()
	return args.Get(0).(ports.UnitOfWork)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(orderID string, event tracking.Event) int {
	args := m.Called(orderID, event)
	return args.Int(0)
}

type MockTrackingStopper struct{ mock.Mock }

func (m *MockTrackingStopper) StopTracking(orderID, agentID string, status order.Status) {
	m.Called(orderID, agentID, status)
}
