package anim

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/grokgates/gateview/internal/grid"
)

// Director repeatedly picks a random effect, runs it for a random span, and
// rests for a random delay before the next pick. It is a delay-chained loop,
// not a fixed-period timer.
type Director struct {
	sched *Scheduler
	rng   *rand.Rand

	// Run and rest windows; the defaults match the production policy.
	MinRun  time.Duration
	MaxRun  time.Duration
	MinRest time.Duration
	MaxRest time.Duration
}

// NewDirector creates a director for the scheduler with the default policy:
// run an effect for 5-15s, rest 5-60s between effects.
func NewDirector(s *Scheduler) *Director {
	return &Director{
		sched:   s,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		MinRun:  5 * time.Second,
		MaxRun:  15 * time.Second,
		MinRest: 5 * time.Second,
		MaxRest: 60 * time.Second,
	}
}

// Run drives the scheduler until ctx is cancelled. The running effect is
// stopped on the way out.
func (d *Director) Run(ctx context.Context) {
	for {
		name := grid.EffectNames[d.rng.Intn(len(grid.EffectNames))]
		slog.Debug("director starting effect", "effect", name)
		d.sched.Start(name)

		if !sleepCtx(ctx, d.uniform(d.MinRun, d.MaxRun)) {
			d.sched.Stop()
			return
		}
		d.sched.Stop()

		if !sleepCtx(ctx, d.uniform(d.MinRest, d.MaxRest)) {
			return
		}
	}
}

// uniform draws a duration in [lo, hi).
func (d *Director) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(d.rng.Int63n(int64(hi-lo)))
}

// sleepCtx waits for dur or cancellation; reports whether the full duration
// elapsed.
func sleepCtx(ctx context.Context, dur time.Duration) bool {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
