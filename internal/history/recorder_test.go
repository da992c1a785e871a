package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskmill/internal/eventbus"
	"taskmill/pkg/logx"
	"taskmill/pkg/pool"
)

type memStore struct {
	mu   sync.Mutex
	recs []Record
}

func (m *memStore) Append(ctx context.Context, r Record) error {
	m.mu.Lock()
	m.recs = append(m.recs, r)
	m.mu.Unlock()
	return nil
}

func (m *memStore) Recent(ctx context.Context, n int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.recs))
	copy(out, m.recs)
	return out, nil
}

func (m *memStore) Prune(ctx context.Context) error { return nil }
func (m *memStore) Close() error                    { return nil }

func TestRecorderPersistsTaskDoneEvents(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	store := &memStore{}
	rec := NewRecorder(store, bus, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rec.Run(ctx)
	}()

	// Give the subscriber a moment to attach before publishing.
	time.Sleep(20 * time.Millisecond)
	bus.Publish(eventbus.Event{
		Type: pool.EventTaskDone,
		Data: pool.TaskEvent{Worker: 1, Duration: time.Millisecond, Error: "x"},
	})
	bus.Publish(eventbus.Event{Type: pool.EventPoolStarted}) // ignored
	bus.Publish(eventbus.Event{
		Type: pool.EventTaskDone,
		Data: pool.TaskEvent{Worker: 2, Duration: 2 * time.Millisecond},
	})

	deadline := time.After(5 * time.Second)
	for {
		recs, _ := store.Recent(context.Background(), 0)
		if len(recs) == 2 {
			if recs[0].Worker != 1 || recs[0].Error != "x" || recs[1].Worker != 2 {
				t.Fatalf("records = %+v", recs)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("recorder persisted %d records, want 2", len(recs))
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not stop on cancel")
	}
}
