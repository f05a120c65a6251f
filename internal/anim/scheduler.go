// Package anim drives the mascot effects over the base grid.
//
// The Scheduler owns the padded base grid and at most one running effect
// loop. Frames are computed from elapsed wall-clock time so the effective
// animation speed does not depend on loop scheduling jitter, and are
// published on a latest-wins channel for the UI to drain. The Director is
// the randomized policy deciding which effect runs and for how long.
package anim

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/grokgates/gateview/internal/grid"
)

const (
	// framesPerSecond fixes the effect frame clock.
	framesPerSecond = 20
	// framePeriod is the wall-clock duration of one effect frame.
	framePeriod = time.Second / framesPerSecond
	// displayTick caps how often the loop re-checks the frame clock.
	displayTick = 16 * time.Millisecond
)

// FrameIndex converts elapsed wall-clock time into a discrete frame number.
func FrameIndex(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start) / framePeriod)
}

// Scheduler runs zero or one effect loop over a fixed base grid.
type Scheduler struct {
	mu      sync.Mutex
	base    grid.Grid
	frames  chan grid.Grid
	rng     *rand.Rand
	now     func() time.Time
	tick    time.Duration
	effect  string
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewScheduler creates an idle scheduler for the given base grid.
func NewScheduler(base grid.Grid) *Scheduler {
	return &Scheduler{
		base:   base.Clone(),
		frames: make(chan grid.Grid, 1),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		tick:   displayTick,
	}
}

// Frames returns the latest-wins frame channel. The base grid is re-published
// on Stop, so a consumer always converges to the unmodified art when idle.
func (s *Scheduler) Frames() <-chan grid.Grid { return s.frames }

// Base returns a copy of the padded base grid.
func (s *Scheduler) Base() grid.Grid { return s.base.Clone() }

// Running reports the active effect name, if any.
func (s *Scheduler) Running() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effect, s.cancel != nil
}

// Start begins the named effect, cancelling any running loop first and
// resetting the frame clock to zero. Unknown effect names are ignored with a
// log line; the previous loop is still torn down.
func (s *Scheduler) Start(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.startLocked(name)
}

// SetBase swaps in a new base grid. A running effect is restarted over the
// new grid; an idle scheduler publishes it directly.
func (s *Scheduler) SetBase(base grid.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.effect
	wasRunning := s.stopLocked()
	s.base = base.Clone()
	if wasRunning {
		s.startLocked(name)
		return
	}
	s.publish(s.base.Clone())
}

// startLocked spawns the effect loop. Callers must hold mu with no loop
// running.
func (s *Scheduler) startLocked(name string) {
	fn, ok := grid.Effects[name]
	if !ok {
		slog.Warn("unknown effect", "name", name)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.effect = name
	s.stopped = make(chan struct{})
	go s.loop(ctx, fn, s.stopped)
}

// Stop cancels the running loop, if any, and restores the base grid.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		s.publish(s.base.Clone())
	}
}

// stopLocked cancels the current loop and waits for it to exit. Reports
// whether a loop was running. Callers must hold mu.
func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.stopped
	s.cancel = nil
	s.effect = ""
	s.stopped = nil
	return true
}

func (s *Scheduler) loop(ctx context.Context, fn grid.Effect, stopped chan struct{}) {
	defer close(stopped)

	start := s.now()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	// Frame 0 renders immediately.
	last := -1
	for {
		frame := FrameIndex(start, s.now())
		if frame != last {
			last = frame
			s.publish(fn(s.base, frame, s.rng))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// publish replaces any unconsumed frame so the loop never blocks on a slow
// consumer.
func (s *Scheduler) publish(f grid.Grid) {
	for {
		select {
		case s.frames <- f:
			return
		default:
			select {
			case <-s.frames:
			default:
			}
		}
	}
}
