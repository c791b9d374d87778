package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/model/order"
	"tracking/internal/core/domain/services"
	"tracking/internal/metrics"
	"tracking/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

// ErrSimulationRunning is returned when an order already has a simulated delivery.
var ErrSimulationRunning = errors.New("simulation already running")

// Scheduler is the part of *cron.Cron the simulation manager uses.
type Scheduler interface {
	Schedule(schedule cron.Schedule, job cron.Job) cron.EntryID
	Remove(id cron.EntryID)
	Start()
	Stop() context.Context
}

// SimulationRequest describes one simulated delivery. OwnerID identifies who
// asked for it (a session id) so that it can be cancelled when they leave.
type SimulationRequest struct {
	OrderID  string
	AgentID  string
	OwnerID  string
	Pickup   kernel.Location
	Delivery kernel.Location
	Emitter  Emitter
}

func (r SimulationRequest) validate() error {
	var problems []error
	if r.OrderID == "" {
		problems = append(problems, errs.NewValueIsRequiredError("orderId"))
	}
	if r.Emitter == nil {
		problems = append(problems, errs.NewValueIsRequiredError("emitter"))
	}
	return errors.Join(problems...)
}

type simulation struct {
	entryID cron.EntryID
	agentID string
	ownerID string
	job     *TrajectoryJob
}

// SimulationManager owns every running simulated delivery, at most one per
// order. Each is a cron entry firing at the trajectory interval; entries are
// removed on arrival, on Stop, when their owner disconnects, or when the order
// reaches a terminal status.
type SimulationManager struct {
	mu        sync.Mutex
	running   map[string]*simulation
	scheduler Scheduler
	config    services.TrajectoryConfig
	rnd       services.RandomSource
	logger    *slog.Logger
}

// NewSimulationManager creates a manager. A nil scheduler means a fresh
// cron.Cron; a nil rnd means the global random source.
func NewSimulationManager(
	scheduler Scheduler,
	config services.TrajectoryConfig,
	rnd services.RandomSource,
	logger *slog.Logger,
) (*SimulationManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger = logger.With("component", "simulation_manager")
	if scheduler == nil {
		scheduler = cron.New(cron.WithLogger(cronLogger{logger: logger}))
	}

	return &SimulationManager{
		running:   make(map[string]*simulation),
		scheduler: scheduler,
		config:    config,
		rnd:       rnd,
		logger:    logger,
	}, nil
}

func (m *SimulationManager) Name() string {
	return "simulation_manager"
}

// Start starts the scheduler.
func (m *SimulationManager) Start() error {
	m.scheduler.Start()
	return nil
}

// Stop halts every simulation and waits for running steps to finish.
func (m *SimulationManager) Stop() {
	m.mu.Lock()
	orderIDs := make([]string, 0, len(m.running))
	for orderID := range m.running {
		orderIDs = append(orderIDs, orderID)
	}
	m.mu.Unlock()

	for _, orderID := range orderIDs {
		m.Cancel(orderID)
	}

	<-m.scheduler.Stop().Done()
}

// Begin emits the pickup point immediately and schedules the remaining steps.
func (m *SimulationManager) Begin(_ context.Context, req SimulationRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	trajectory, err := services.NewTrajectory(req.Pickup, req.Delivery, m.config, m.rnd)
	if err != nil {
		return err
	}

	job := newTrajectoryJob(req.OrderID, trajectory, req.Emitter, m, m.logger)
	sim := &simulation{agentID: req.AgentID, ownerID: req.OwnerID, job: job}

	m.mu.Lock()
	if _, exists := m.running[req.OrderID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: order %s", ErrSimulationRunning, req.OrderID)
	}
	m.running[req.OrderID] = sim
	m.mu.Unlock()

	if err = job.emitStart(); err != nil {
		m.remove(req.OrderID, job)
		job.halt()
		return err
	}

	wrapped := cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: m.logger})).Then(job)

	m.mu.Lock()
	if current, ok := m.running[req.OrderID]; !ok || current.job != job {
		m.mu.Unlock()
		return nil
	}
	sim.entryID = m.scheduler.Schedule(cron.Every(m.config.Interval), wrapped)
	m.mu.Unlock()

	metrics.SimulationsActive.Inc()
	m.logger.Info("Simulation started", "order", req.OrderID, "agent", req.AgentID,
		"steps", m.config.Steps, "interval", m.config.Interval)
	return nil
}

// Cancel stops the order's simulation. Returns false if none was running.
func (m *SimulationManager) Cancel(orderID string) bool {
	m.mu.Lock()
	sim, ok := m.running[orderID]
	m.mu.Unlock()

	if !ok {
		return false
	}

	m.remove(orderID, sim.job)
	sim.job.halt()
	m.logger.Info("Simulation cancelled", "order", orderID)
	return true
}

// CancelOwnedBy stops every simulation started by ownerID.
func (m *SimulationManager) CancelOwnedBy(ownerID string) int {
	m.mu.Lock()
	var orderIDs []string
	for orderID, sim := range m.running {
		if sim.ownerID == ownerID {
			orderIDs = append(orderIDs, orderID)
		}
	}
	m.mu.Unlock()

	cancelled := 0
	for _, orderID := range orderIDs {
		if m.Cancel(orderID) {
			cancelled++
		}
	}
	return cancelled
}

// StopTracking cancels the simulation of an order that reached a terminal status.
func (m *SimulationManager) StopTracking(orderID, _ string, status order.Status) {
	if m.Cancel(orderID) {
		m.logger.Info("Simulation ended by status change", "order", orderID, "status", status.String())
	}
}

// Running reports whether the order has a simulation.
func (m *SimulationManager) Running(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[orderID]
	return ok
}

// AgentOf returns the delivery partner of the order's running simulation.
func (m *SimulationManager) AgentOf(orderID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sim, ok := m.running[orderID]
	if !ok {
		return "", false
	}
	return sim.agentID, true
}

// Len returns the number of running simulations.
func (m *SimulationManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// remove drops the job's entry if it is still the current one for orderID.
func (m *SimulationManager) remove(orderID string, job *TrajectoryJob) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sim, ok := m.running[orderID]
	if !ok || sim.job != job {
		return
	}

	delete(m.running, orderID)
	if sim.entryID != 0 {
		m.scheduler.Remove(sim.entryID)
		metrics.SimulationsActive.Dec()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
