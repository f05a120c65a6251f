package anim

import (
	"context"
	"testing"
	"time"

	"github.com/grokgates/gateview/internal/grid"
)

func testBase(t *testing.T) grid.Grid {
	t.Helper()
	return grid.Load(" /\\_/\\\n( o.o )\n > ^ <")
}

// drain reads all buffered frames and returns the most recent one.
func drain(t *testing.T, s *Scheduler) grid.Grid {
	t.Helper()
	var last grid.Grid
	for {
		select {
		case f := <-s.Frames():
			last = f
		default:
			return last
		}
	}
}

func TestFrameIndex(t *testing.T) {
	start := time.Unix(0, 0)
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{49 * time.Millisecond, 0},
		{50 * time.Millisecond, 1},
		{99 * time.Millisecond, 1},
		{time.Second, 20},
		{-time.Second, 0},
	}
	for _, tt := range tests {
		if got := FrameIndex(start, start.Add(tt.elapsed)); got != tt.want {
			t.Errorf("FrameIndex(+%v) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}

func TestStartThenStopRestoresBase(t *testing.T) {
	base := testBase(t)
	s := NewScheduler(base)

	s.Start("wave")
	s.Stop()

	last := drain(t, s)
	if last == nil {
		t.Fatal("expected at least one frame after stop")
	}
	if last.String() != base.String() {
		t.Errorf("stop should restore the base grid byte-for-byte:\ngot:\n%s\nwant:\n%s", last, base)
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	s := NewScheduler(testBase(t))
	s.Stop()
	if f := drain(t, s); f != nil {
		t.Error("stop on an idle scheduler should publish nothing")
	}
}

func TestAtMostOneLoop(t *testing.T) {
	s := NewScheduler(testBase(t))
	for i := 0; i < 10; i++ {
		s.Start("wave")
		s.Start("blink")
	}
	name, running := s.Running()
	if !running || name != "blink" {
		t.Errorf("expected blink running, got %q running=%v", name, running)
	}
	s.Stop()
	if _, running := s.Running(); running {
		t.Error("scheduler should be idle after stop")
	}
}

func TestStartUnknownEffectStopsPrevious(t *testing.T) {
	s := NewScheduler(testBase(t))
	s.Start("wave")
	s.Start("nope")
	if _, running := s.Running(); running {
		t.Error("unknown effect should leave the scheduler idle")
	}
}

func TestSetBaseWhileIdlePublishesNewGrid(t *testing.T) {
	s := NewScheduler(testBase(t))
	next := grid.Load("@@@\n@@@")

	s.SetBase(next)

	last := drain(t, s)
	if last == nil {
		t.Fatal("expected the new base to be published")
	}
	if last.String() != next.String() {
		t.Errorf("published grid differs from the new base:\n%s", last.String())
	}
}

func TestSetBaseKeepsEffectRunning(t *testing.T) {
	s := NewScheduler(testBase(t))
	s.Start("wave")
	defer s.Stop()

	s.SetBase(grid.Load("@@@@@\n@@@@@"))

	name, running := s.Running()
	if !running || name != "wave" {
		t.Errorf("Running() = %q, %v after SetBase, want wave running", name, running)
	}
}

func TestLoopProducesAdvancingFrames(t *testing.T) {
	base := testBase(t)
	s := NewScheduler(base)
	s.tick = time.Millisecond

	s.Start("wave")
	defer s.Stop()

	// Assert the loop produces more than one distinct frame within a few
	// frame periods.
	seen := map[string]bool{}
	deadline := time.After(time.Second)
	for len(seen) < 2 {
		select {
		case f := <-s.Frames():
			seen[f.String()] = true
		case <-deadline:
			t.Fatalf("expected at least 2 distinct frames, saw %d", len(seen))
		}
	}
}

func TestFramesKeepDimensions(t *testing.T) {
	base := testBase(t)
	s := NewScheduler(base)
	s.tick = time.Millisecond

	s.Start("bounce")
	deadline := time.After(time.Second)
	for i := 0; i < 5; i++ {
		select {
		case f := <-s.Frames():
			if f.Height() > base.Height() {
				t.Fatalf("frame has %d rows, want <= %d", f.Height(), base.Height())
			}
		case <-deadline:
			t.Fatal("timed out waiting for frames")
		}
	}
	s.Stop()
}

func TestDirectorStopsOnCancel(t *testing.T) {
	s := NewScheduler(testBase(t))
	d := NewDirector(s)
	d.MinRun, d.MaxRun = 10*time.Millisecond, 20*time.Millisecond
	d.MinRest, d.MaxRest = 10*time.Millisecond, 20*time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("director did not exit on cancel")
	}
	if _, running := s.Running(); running {
		t.Error("scheduler should be idle after director exit")
	}
}

func TestDirectorUniformBounds(t *testing.T) {
	d := NewDirector(NewScheduler(testBase(t)))
	lo, hi := 5*time.Second, 15*time.Second
	for i := 0; i < 1000; i++ {
		got := d.uniform(lo, hi)
		if got < lo || got >= hi {
			t.Fatalf("uniform draw %v outside [%v, %v)", got, lo, hi)
		}
	}
}
