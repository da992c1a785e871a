package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGoRecoversPanicAndRecordsError(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go("boomer", func(ctx context.Context) error {
		panic("boom")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil {
		t.Fatal("Wait must surface the panic as an error")
	}

	snap := s.SnapshotNow()
	if snap.FirstError == "" {
		t.Fatal("snapshot missing first error")
	}
	found := false
	for _, l := range snap.Loops {
		if l.Name == "boomer" && l.Panics == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("loop stats missing panic record: %+v", snap.Loops)
	}
}

func TestCancelOnErrorStopsSiblings(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))

	blocked := make(chan struct{})
	s.Go("waiter", func(ctx context.Context) error {
		defer close(blocked)
		<-ctx.Done()
		return ctx.Err()
	})
	s.Go("failer", func(ctx context.Context) error {
		return errors.New("fatal")
	})

	select {
	case <-blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("sibling goroutine was not canceled after error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatal("Wait must return the first error")
	}
}

func TestGoRestartRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	s := New(context.Background())

	attempts := 0
	done := make(chan struct{})
	s.GoRestart("flaky", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, WithRestartBackoff(time.Millisecond, 5*time.Millisecond))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("restart loop never reached a clean exit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait error after clean exit: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestStopCancelsAndWaits(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go0("sleeper", func(ctx context.Context) {
		<-ctx.Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if c := s.CountersNow(); c.Active != 0 || c.Started != 1 {
		t.Fatalf("counters = %+v, want active 0 started 1", c)
	}
}
