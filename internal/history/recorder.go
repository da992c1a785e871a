package history

import (
	"context"
	"time"

	"taskmill/internal/eventbus"
	"taskmill/pkg/pool"

	logx "taskmill/pkg/logx"
)

// Recorder consumes task completion events from the bus and persists them.
// It is intended to run under a supervisor restart loop; Run returns when
// ctx is canceled.
type Recorder struct {
	store Store
	bus   eventbus.Bus
	log   logx.Logger
}

func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	return &Recorder{store: store, bus: bus, log: log}
}

func (r *Recorder) Run(ctx context.Context) error {
	if r.store == nil || r.bus == nil {
		<-ctx.Done()
		return nil
	}
	ch, unsub := r.bus.Subscribe(256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if e.Type != pool.EventTaskDone {
				continue
			}
			te, ok := e.Data.(pool.TaskEvent)
			if !ok {
				continue
			}
			rec := Record{
				At:       e.Time,
				Worker:   te.Worker,
				Duration: te.Duration,
				Error:    te.Error,
			}
			wctx, cancel := context.WithTimeout(context.Background(), time.Second)
			err := r.store.Append(wctx, rec)
			cancel()
			if err != nil && !r.log.IsZero() {
				r.log.Warn("history append failed", logx.Err(err))
			}
		}
	}
}
