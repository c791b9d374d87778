package jobs

import (
	"fmt"
	"log/slog"
)

// Job is a long running background component with an explicit lifecycle.
type Job interface {
	Name() string
	Start() error
	Stop()
}

// JobManager coordinates all background jobs of the relay.
// Jobs start in registration order and stop in reverse.
type JobManager struct {
	jobs   []Job
	logger *slog.Logger
}

func NewJobManager(logger *slog.Logger, jobs ...Job) *JobManager {
	return &JobManager{
		jobs:   jobs,
		logger: logger.With("component", "job_manager"),
	}
}

// StartAll starts every job. If one fails, the already started ones are stopped.
func (jm *JobManager) StartAll() error {
	for i, job := range jm.jobs {
		if err := job.Start(); err != nil {
			for j := i - 1; j >= 0; j-- {
				jm.jobs[j].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", job.Name(), err)
		}
		jm.logger.Info("Job started", "job", job.Name())
	}
	return nil
}

// StopAll stops every job gracefully.
func (jm *JobManager) StopAll() {
	for i := len(jm.jobs) - 1; i >= 0; i-- {
		jm.jobs[i].Stop()
		jm.logger.Info("Job stopped", "job", jm.jobs[i].Name())
	}
}
