package tracker

import (
	"context"
	"time"
)

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop cancels the callback and reports whether it was still pending.
	Stop() bool
}

// Scheduler runs f once after d. Implementations decide on which goroutine
// f runs; the tracker assumes all of its callbacks run on one goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// LoopScheduler serializes timer callbacks and nudges onto the goroutine
// that calls Run, so at most one scan is ever in flight.
type LoopScheduler struct {
	events chan func()
	nudges chan func()
	done   chan struct{}
}

// NewLoopScheduler creates a scheduler whose callbacks run inside Run.
func NewLoopScheduler() *LoopScheduler {
	return &LoopScheduler{
		events: make(chan func(), 16),
		nudges: make(chan func(), 1),
		done:   make(chan struct{}),
	}
}

// AfterFunc queues f onto the loop once d has elapsed.
func (s *LoopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() {
		s.Post(f)
	})
}

// Post queues f to run on the loop. It blocks until the loop accepts f or
// has stopped.
func (s *LoopScheduler) Post(f func()) {
	select {
	case s.events <- f:
	case <-s.done:
	}
}

// Nudge queues f unless a nudge is already waiting; bursts of filesystem
// events collapse into a single rescan.
func (s *LoopScheduler) Nudge(f func()) {
	select {
	case s.nudges <- f:
	default:
	}
}

// Run executes queued callbacks until ctx is cancelled.
func (s *LoopScheduler) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-s.events:
			f()
		case f := <-s.nudges:
			f()
		}
	}
}
