// Package scheduler paces the engine against wall-clock time and drives
// drawing once per animation frame.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxDelta bounds how much emulated time a single tick may advance.
// It keeps the engine from bursting after the host was suspended.
const DefaultMaxDelta = 100 * time.Millisecond

// Unit is the engine's pacing unit; advance(n) runs n units.
const Unit = time.Millisecond

// ErrStopped is reported by Err after Stop
var ErrStopped = errors.New("scheduler stopped")

// FrameRequester is the host's animation-frame facility. The callback is
// invoked once, on the host's frame, with a monotonic timestamp.
type FrameRequester interface {
	RequestAnimationFrame(callback func(now time.Duration))
}

// Target is what the scheduler drives each tick
type Target interface {
	Advance(ctx context.Context, units uint32) error
	Draw(ctx context.Context) error
}

// Observer is called after every drawn frame with the frame number (from 1)
type Observer func(frame uint64)

// Option configures a Scheduler
type Option func(*Scheduler)

// WithMaxDelta overrides DefaultMaxDelta
func WithMaxDelta(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.maxDelta = d
		}
	}
}

// WithObserver registers a per-frame observer
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

// Scheduler drives a Target from host animation frames.
//
// Tick runs on the host's frame callback and is not safe for concurrent use.
// Stop, Pause, Resume and the Frames/FrameRate/Jitter readers may be called
// from any goroutine.
type Scheduler struct {
	host   FrameRequester
	target Target

	maxDelta  time.Duration
	observers []Observer

	// Time cursor
	hasBaseline bool
	last        time.Duration
	remainder   time.Duration

	frames  atomic.Uint64
	running atomic.Bool
	paused  atomic.Bool
	rebase  atomic.Bool

	errMu sync.Mutex
	err   error

	timing *CircularTimingBuffer
}

// New creates a stopped scheduler
func New(host FrameRequester, target Target, opts ...Option) *Scheduler {
	s := &Scheduler{
		host:     host,
		target:   target,
		maxDelta: DefaultMaxDelta,
		timing:   NewCircularTimingBuffer(60),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxDelta returns the per-tick advance bound
func (s *Scheduler) MaxDelta() time.Duration {
	return s.maxDelta
}

// Frames returns how many frames have been drawn
func (s *Scheduler) Frames() uint64 {
	return s.frames.Load()
}

// FrameRate returns the measured frames per second over the recent window
func (s *Scheduler) FrameRate() float64 {
	avg := s.timing.GetAverage()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

// Jitter returns the mean deviation of recent frame intervals
func (s *Scheduler) Jitter() time.Duration {
	return s.timing.GetJitter()
}

// Tick runs one frame at timestamp now. The first tick, and the first tick
// after Resume, only establishes the baseline and draws. Later ticks advance
// the target by the elapsed time, clamped to MaxDelta, before drawing.
// Time below one Unit carries over to the next tick.
func (s *Scheduler) Tick(ctx context.Context, now time.Duration) error {
	if s.rebase.Swap(false) {
		s.hasBaseline = false
		s.timing.Reset()
	}

	if !s.hasBaseline {
		s.hasBaseline = true
		s.last = now
		s.remainder = 0
		return s.draw(ctx)
	}

	delta := now - s.last
	if delta < 0 {
		delta = 0
	}
	s.last = now
	s.timing.Add(delta)

	if !s.paused.Load() {
		delta += s.remainder
		if delta > s.maxDelta {
			delta = s.maxDelta
		}
		units := delta / Unit
		s.remainder = delta - units*Unit
		if units > 0 {
			if err := s.target.Advance(ctx, uint32(units)); err != nil {
				return fmt.Errorf("failed to advance engine: %w", err)
			}
		}
	}

	return s.draw(ctx)
}

func (s *Scheduler) draw(ctx context.Context) error {
	if err := s.target.Draw(ctx); err != nil {
		return fmt.Errorf("failed to draw frame: %w", err)
	}
	n := s.frames.Add(1)
	for _, o := range s.observers {
		o(n)
	}
	return nil
}

// Start begins requesting animation frames. It returns immediately; the loop
// continues until Stop, ctx cancellation, or a tick error (see Err).
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	s.setErr(nil)
	s.host.RequestAnimationFrame(s.frameCallback(ctx))
	return nil
}

func (s *Scheduler) frameCallback(ctx context.Context) func(now time.Duration) {
	var callback func(now time.Duration)
	callback = func(now time.Duration) {
		if !s.running.Load() {
			return
		}
		if err := ctx.Err(); err != nil {
			s.halt(err)
			return
		}
		if err := s.Tick(ctx, now); err != nil {
			log.Printf("[SCHEDULER] Frame loop stopped: %v", err)
			s.halt(err)
			return
		}
		s.host.RequestAnimationFrame(callback)
	}
	return callback
}

func (s *Scheduler) halt(err error) {
	s.setErr(err)
	s.running.Store(false)
}

func (s *Scheduler) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// Stop ends the loop; no further frame is requested.
func (s *Scheduler) Stop() {
	if s.running.Swap(false) {
		s.setErr(ErrStopped)
	}
}

// Running reports whether the loop is active
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Err returns why the loop ended, or nil while it is running
func (s *Scheduler) Err() error {
	if s.running.Load() {
		return nil
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Pause keeps drawing but stops advancing the engine
func (s *Scheduler) Pause() {
	s.paused.Store(true)
}

// Resume restarts advancing. The next tick re-establishes the baseline so
// the paused interval is not replayed.
func (s *Scheduler) Resume() {
	if s.paused.Swap(false) {
		s.rebase.Store(true)
	}
}

// Paused reports whether advancing is paused
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}
