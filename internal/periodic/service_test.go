package periodic

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"taskmill/pkg/pool"

	logx "taskmill/pkg/logx"
)

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.New(pool.WithWorkers(2))
	if err != nil {
		t.Fatalf("pool.New error: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestRegisterRejectsBadInput(t *testing.T) {
	t.Parallel()
	s := New(Config{}, newTestPool(t), logx.Nop())

	if err := s.Register("", "1m", func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := s.Register("x", "1m", nil); err == nil {
		t.Fatal("expected error for nil action")
	}
	if err := s.Register("x", "garbage", func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRegisterUpsertsByName(t *testing.T) {
	t.Parallel()
	s := New(Config{}, newTestPool(t), logx.Nop())

	noop := func(ctx context.Context) error { return nil }
	if err := s.Register("job", "1m", noop); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := s.Register("job", "2m", noop); err != nil {
		t.Fatalf("re-Register error: %v", err)
	}
	if names := s.Names(); len(names) != 1 || names[0] != "job" {
		t.Fatalf("Names = %v, want [job]", names)
	}
	if !s.Remove("job") {
		t.Fatal("Remove reported nothing removed")
	}
	if s.Remove("job") {
		t.Fatal("second Remove must report false")
	}
}

func TestIntervalJobFiresThroughPool(t *testing.T) {
	t.Parallel()
	p := newTestPool(t)
	s := New(Config{}, p, logx.Nop())

	var fired atomic.Int64
	if err := s.Register("ticker", "interval:1s", func(ctx context.Context) error {
		fired.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	deadline := time.After(10 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never fired")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestOverlappingFiringIsSkipped(t *testing.T) {
	t.Parallel()
	p := newTestPool(t)
	s := New(Config{}, p, logx.Nop())

	release := make(chan struct{})
	var started atomic.Int64
	if err := s.Register("slow", "interval:1s", func(ctx context.Context) error {
		started.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	// Wait until the first firing is running, then let more trigger ticks
	// pass; they must all be skipped while the job holds its run state.
	deadline := time.After(10 * time.Second)
	for started.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never started")
		case <-time.After(20 * time.Millisecond):
		}
	}
	time.Sleep(2500 * time.Millisecond)
	if got := started.Load(); got != 1 {
		t.Fatalf("job started %d times while still running, want 1", got)
	}
	if snap := s.SnapshotNow(); snap.Skipped == 0 {
		t.Fatal("snapshot must count skipped firings")
	}

	close(release)
	s.Stop(context.Background())
}

func TestJobErrorDoesNotUnregister(t *testing.T) {
	t.Parallel()
	p := newTestPool(t)
	s := New(Config{}, p, logx.Nop())

	var runs atomic.Int64
	if err := s.Register("flaky", "interval:1s", func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("always fails")
	}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	deadline := time.After(15 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want repeated firing despite errors", runs.Load())
		case <-time.After(50 * time.Millisecond):
		}
	}
}
