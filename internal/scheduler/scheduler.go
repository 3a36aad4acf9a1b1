// Package scheduler runs a repeating background activity.
//
// Each firing happens Interval plus a random slack in [0, Tolerance) after
// the previous firing completed. The timer is only re-armed once the
// activity reports completion, so firings missed while the host slept or
// while a slow activity was running collapse into one.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrAlreadyScheduled is returned by Schedule when the scheduler is running.
var ErrAlreadyScheduled = errors.New("scheduler: activity already scheduled")

// Result is reported by an activity when it completes.
type Result int

const (
	// Finished means the activity is done until the next interval.
	Finished Result = iota
	// Deferred asks for a retry after the tolerance instead of the full
	// interval.
	Deferred
)

func (r Result) String() string {
	if r == Deferred {
		return "deferred"
	}
	return "finished"
}

// CompletionHandler reports that an activity finished. Only the first call
// counts.
type CompletionHandler func(Result)

// Activity is the scheduled work. It must call done exactly once, from any
// goroutine. ctx is cancelled when the scheduler is invalidated.
type Activity func(ctx context.Context, done CompletionHandler)

// Scheduler fires an Activity on a repeating interval.
type Scheduler struct {
	identifier string
	interval   time.Duration
	tolerance  time.Duration
	repeats    bool
	fireFirst  bool
	jitter     func(max time.Duration) time.Duration
	logger     zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
	fires   int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRepeats controls whether the activity repeats. The default is true.
func WithRepeats(repeats bool) Option {
	return func(s *Scheduler) { s.repeats = repeats }
}

// WithFireImmediately fires once as soon as the activity is scheduled,
// before the first interval elapses.
func WithFireImmediately(fire bool) Option {
	return func(s *Scheduler) { s.fireFirst = fire }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithJitter replaces the random tolerance slack, mainly for tests.
func WithJitter(fn func(max time.Duration) time.Duration) Option {
	return func(s *Scheduler) { s.jitter = fn }
}

// New returns a scheduler for the given interval and tolerance.
func New(identifier string, interval, tolerance time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		identifier: identifier,
		interval:   interval,
		tolerance:  tolerance,
		repeats:    true,
		jitter:     randomJitter,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identifier returns the name the scheduler was created with.
func (s *Scheduler) Identifier() string {
	return s.identifier
}

// Interval returns the configured interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Tolerance returns the configured tolerance.
func (s *Scheduler) Tolerance() time.Duration {
	return s.tolerance
}

// Fires returns how many times the activity has been started.
func (s *Scheduler) Fires() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fires
}

// Schedule starts firing activity in the background until ctx is done or
// Invalidate is called.
func (s *Scheduler) Schedule(ctx context.Context, activity Activity) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler %s: interval must be positive, got %s", s.identifier, s.interval)
	}
	if s.tolerance < 0 {
		return fmt.Errorf("scheduler %s: tolerance cannot be negative, got %s", s.identifier, s.tolerance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyScheduled
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx, activity)
	return nil
}

// Invalidate stops the scheduler, cancels the running activity's context,
// and waits for it to return. It is safe to call more than once.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.mu.Unlock()
}

func (s *Scheduler) loop(ctx context.Context, activity Activity) {
	defer s.wg.Done()

	delay := s.nextDelay()
	if s.fireFirst {
		delay = 0
	}

	for {
		s.logger.Debug().Str("scheduler", s.identifier).Dur("in", delay).Msg("Next firing scheduled")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		result := s.fire(ctx, activity)
		if ctx.Err() != nil {
			return
		}

		switch {
		case result == Deferred:
			delay = s.tolerance
			if delay <= 0 || delay > s.interval {
				delay = s.interval
			}
		case !s.repeats:
			return
		default:
			delay = s.nextDelay()
		}
	}
}

// fire starts the activity on its own goroutine and waits for its
// completion handler or for cancellation.
func (s *Scheduler) fire(ctx context.Context, activity Activity) Result {
	s.mu.Lock()
	s.fires++
	s.mu.Unlock()

	results := make(chan Result, 1)
	var once sync.Once
	done := func(r Result) {
		once.Do(func() { results <- r })
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		activity(ctx, done)
	}()

	select {
	case r := <-results:
		s.logger.Debug().Str("scheduler", s.identifier).Stringer("result", r).Msg("Activity completed")
		return r
	case <-ctx.Done():
		return Finished
	}
}

func (s *Scheduler) nextDelay() time.Duration {
	if s.tolerance <= 0 {
		return s.interval
	}
	return s.interval + s.jitter(s.tolerance)
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
