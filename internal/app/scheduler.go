package app

import (
	"context"
	"sync"
	"time"

	"github.com/vatplayback/archivist/internal/ports"
)

// TickFunc handles one tick. Returning false ends the schedule.
type TickFunc func(ctx context.Context) bool

// Scheduler fires ticks on a delay-then-fire cadence: the first tick runs
// immediately and every following one runs interval after the previous
// handler returned. Slow handlers push later ticks back; ticks never overlap.
type Scheduler struct {
	clock    ports.Clock
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewScheduler creates a scheduler. interval must be positive.
func NewScheduler(clock ports.Clock, interval time.Duration) *Scheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Scheduler{
		clock:    clock,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Run delivers ticks to fn on the calling goroutine until fn returns false,
// Stop is called, or ctx is cancelled. Cancellation and Stop pre-empt the wait
// between ticks but never interrupt a running handler.
// Returns ctx.Err() when cancellation ended the schedule, nil otherwise.
func (s *Scheduler) Run(ctx context.Context, fn TickFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		default:
		}

		if !fn(ctx) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-s.clock.After(s.interval):
		}
	}
}

// Stop prevents further ticks. It is safe to call more than once and from
// any goroutine.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
