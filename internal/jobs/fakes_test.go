package jobs_test

import (
	"context"
	"sort"
	"sync"

	"tracking/internal/core/domain/model/kernel"

	"github.com/robfig/cron/v3"
)

// manualScheduler records entries and lets the test fire them by hand.
type manualScheduler struct {
	mu      sync.Mutex
	next    cron.EntryID
	entries map[cron.EntryID]cron.Job
	started bool
	stopped bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{entries: make(map[cron.EntryID]cron.Job)}
}

func (s *manualScheduler) Schedule(_ cron.Schedule, job cron.Job) cron.EntryID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.entries[s.next] = job
	return s.next
}

func (s *manualScheduler) Remove(id cron.EntryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

func (s *manualScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

func (s *manualScheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// tick runs every scheduled entry once, in id order.
func (s *manualScheduler) tick() {
	s.mu.Lock()
	ids := make([]cron.EntryID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s.mu.Lock()
		job, ok := s.entries[id]
		s.mu.Unlock()
		if ok {
			job.Run()
		}
	}
}

func (s *manualScheduler) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// recordingEmitter keeps what a simulation produced. onArrive runs inside Arrive.
type recordingEmitter struct {
	mu        sync.Mutex
	positions []kernel.Location
	arrivals  int
	locErr    error
	onArrive  func()
}

func (e *recordingEmitter) EmitLocation(_ context.Context, _ string, position kernel.Location) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions = append(e.positions, position)
	return e.locErr
}

func (e *recordingEmitter) Arrive(_ context.Context, _ string) error {
	e.mu.Lock()
	e.arrivals++
	hook := e.onArrive
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (e *recordingEmitter) emitted() []kernel.Location {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]kernel.Location(nil), e.positions...)
}

func (e *recordingEmitter) arrived() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arrivals
}

type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }
