package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"tracking/internal/core/domain/model/kernel"
	"tracking/internal/pkg/errs"
)

const (
	// DefaultSteps is the number of samples between pickup and delivery.
	DefaultSteps = 20
	// DefaultJitterBound is the per axis jitter in degrees, drawn from [-bound, +bound].
	DefaultJitterBound = 0.00025
	// DefaultInterval is the cadence of simulated samples.
	DefaultInterval = 3 * time.Second
)

// ErrTrajectoryFinished is returned by Next once the final step was produced.
var ErrTrajectoryFinished = errors.New("trajectory finished")

// RandomSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 {
	return rand.Float64() //nolint:gosec // jitter is cosmetic
}

// TrajectoryConfig shapes a simulated delivery.
type TrajectoryConfig struct {
	Steps       int           `yaml:"steps"`
	JitterBound float64       `yaml:"jitter_bound"`
	Interval    time.Duration `yaml:"interval"`
}

// DefaultTrajectoryConfig returns 20 steps, ±0.00025° jitter, one sample every 3s.
func DefaultTrajectoryConfig() TrajectoryConfig {
	return TrajectoryConfig{
		Steps:       DefaultSteps,
		JitterBound: DefaultJitterBound,
		Interval:    DefaultInterval,
	}
}

// Validate checks the config is usable.
func (c TrajectoryConfig) Validate() error {
	if c.Steps <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("steps", fmt.Errorf("%d is not greater than 0", c.Steps))
	}
	if c.JitterBound < 0 {
		return errs.NewValueIsInvalidErrorWithCause("jitter_bound", fmt.Errorf("%f is negative", c.JitterBound))
	}
	if c.Interval <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("interval", fmt.Errorf("%s is not positive", c.Interval))
	}
	return nil
}

// Trajectory produces a plausible path from pickup to delivery when the agent's
// device cannot report its own position.
//
// Step k (1 <= k <= Steps) is at pickup + k*delta + jitter, where
// delta = (delivery - pickup) / Steps on each axis and jitter is drawn
// uniformly from [-JitterBound, +JitterBound] on each axis. Jitter does not
// accumulate, so the final step lands within JitterBound of the delivery point.
//
// A Trajectory is single use: once Done, create a new one.
//
// Example:
//
//	tr, _ := services.NewTrajectory(pickup, delivery, services.DefaultTrajectoryConfig(), nil)
//	for !tr.Done() {
//	    pos, _ := tr.Next()
//	    emit(pos)
//	}
type Trajectory struct {
	start    kernel.Location
	end      kernel.Location
	steps    int
	step     int
	jitter   float64
	deltaLat float64
	deltaLng float64
	rnd      RandomSource
}

// NewTrajectory prepares a simulation. rnd may be nil to use the global source.
func NewTrajectory(start, end kernel.Location, cfg TrajectoryConfig, rnd RandomSource) (*Trajectory, error) {
	if err := errors.Join(start.Validate(), end.Validate(), cfg.Validate()); err != nil {
		return nil, err
	}

	if rnd == nil {
		rnd = globalRandom{}
	}

	n := float64(cfg.Steps)
	return &Trajectory{
		start:    start,
		end:      end,
		steps:    cfg.Steps,
		jitter:   cfg.JitterBound,
		deltaLat: (end.Lat() - start.Lat()) / n,
		deltaLng: (end.Lng() - start.Lng()) / n,
		rnd:      rnd,
	}, nil
}

// Start returns the pickup point, emitted once before the first step.
func (t *Trajectory) Start() kernel.Location {
	return t.start
}

// Step returns how many positions Next has produced.
func (t *Trajectory) Step() int {
	return t.step
}

// Steps returns the total number of positions.
func (t *Trajectory) Steps() int {
	return t.steps
}

// Done reports whether the final position has been produced.
func (t *Trajectory) Done() bool {
	return t.step >= t.steps
}

// Next advances one step and returns the jittered position.
func (t *Trajectory) Next() (kernel.Location, error) {
	if t.Done() {
		return kernel.Location{}, ErrTrajectoryFinished
	}

	t.step++
	k := float64(t.step)

	lat := t.start.Lat() + k*t.deltaLat + t.noise()
	lng := t.start.Lng() + k*t.deltaLng + t.noise()

	return kernel.ClampedLocation(lat, lng), nil
}

func (t *Trajectory) noise() float64 {
	return (t.rnd.Float64()*2 - 1) * t.jitter
}
