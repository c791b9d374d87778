package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/core/domain/services"
	"tracking/internal/core/ports"
)

// Emitter is where a simulated delivery goes: the ingestion path for samples
// and the status coordinator for the final arrival.
type Emitter interface {
	EmitLocation(ctx context.Context, orderID string, position kernel.Location) error
	Arrive(ctx context.Context, orderID string) error
}

// TrajectoryJob emits one step of a simulated delivery per run. After the last
// step it removes itself from the manager and reports arrival exactly once.
type TrajectoryJob struct {
	orderID    string
	trajectory *services.Trajectory
	emitter    Emitter
	manager    *SimulationManager
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

func newTrajectoryJob(
	orderID string,
	trajectory *services.Trajectory,
	emitter Emitter,
	manager *SimulationManager,
	logger *slog.Logger,
) *TrajectoryJob {
	ctx, cancel := context.WithCancel(context.Background())
	return &TrajectoryJob{
		orderID:    orderID,
		trajectory: trajectory,
		emitter:    emitter,
		manager:    manager,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run implements cron.Job.
func (j *TrajectoryJob) Run() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.stopped {
		return
	}

	defer func() {
		if j.stopped {
			j.cancel()
		}
	}()

	position, err := j.trajectory.Next()
	if err != nil {
		j.finishLocked()
		return
	}

	if err = j.emitter.EmitLocation(j.ctx, j.orderID, position); err != nil {
		if errors.Is(err, ports.ErrStoreUnavailable) {
			j.logger.WarnContext(j.ctx, "Simulated sample not stored", "order", j.orderID,
				"step", j.trajectory.Step(), "error", err)
		} else {
			j.logger.WarnContext(j.ctx, "Simulation aborted", "order", j.orderID,
				"step", j.trajectory.Step(), "error", err)
			j.finishLocked()
			return
		}
	}

	if !j.trajectory.Done() {
		return
	}

	j.finishLocked()
	if err = j.emitter.Arrive(j.ctx, j.orderID); err != nil {
		j.logger.ErrorContext(j.ctx, "Simulated arrival rejected", "order", j.orderID, "error", err)
		return
	}
	j.logger.InfoContext(j.ctx, "Simulated delivery arrived", "order", j.orderID)
}

// emitStart sends the pickup point before the first scheduled step.
func (j *TrajectoryJob) emitStart() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.emitter.EmitLocation(j.ctx, j.orderID, j.trajectory.Start())
}

// halt stops the job from emitting anything further. In flight emissions are cancelled.
func (j *TrajectoryJob) halt() {
	j.cancel()

	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = true
}

func (j *TrajectoryJob) finishLocked() {
	j.stopped = true
	j.manager.remove(j.orderID, j)
}
