package pool

import (
	"sync"
	"sync/atomic"
	"time"

	"taskmill/internal/eventbus"
	logx "taskmill/pkg/logx"
)

// Event types published on the pool's bus.
const (
	EventTaskDone    = "task.done"
	EventTaskDropped = "task.dropped"
	EventPoolStarted = "pool.started"
	EventPoolStopped = "pool.stopped"
)

// TaskEvent is the payload of task.done and task.dropped events.
type TaskEvent struct {
	Worker   int           // executing worker id; -1 for dropped tasks
	Duration time.Duration // execution time; 0 for dropped tasks
	Error    string        // error or panic text; "" on success
}

// Pool is a fixed-size work-stealing task pool.
//
// Each worker owns a private task queue. Submissions pick their target worker
// by rotating a queue of worker ids: the front id gets the task and moves to
// the back, approximating round-robin. Idle workers steal from the back of
// their peers' queues while any submitted task anywhere is still unclaimed.
//
// Two global counters drive coordination: unassigned counts tasks pushed but
// not yet claimed by a worker, inFlight counts tasks pushed but not yet
// finished. The pool is idle exactly when inFlight is zero; WaitForIdle
// blocks on that condition.
type Pool struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	workers  []*worker
	rotation *Deque[int]

	unassigned atomic.Int64
	inFlight   atomic.Int64

	// idleMu serializes the idle broadcast against waiters; the counter
	// itself stays lock-free on the submit/execute paths.
	idleMu   sync.Mutex
	idleCond *sync.Cond

	stop      atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup

	metrics poolMetrics
}

type poolMetrics struct {
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	stolen    atomic.Uint64
}

// New creates a pool and starts its workers. The per-worker init callback
// (if any) runs inside each worker before it first waits for work.
func New(opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:      cfg,
		log:      cfg.Logger,
		bus:      cfg.Bus,
		rotation: NewDeque[int](cfg.Workers),
	}
	p.idleCond = sync.NewCond(&p.idleMu)

	for i := 0; i < cfg.Workers; i++ {
		p.workers = append(p.workers, newWorker(i, p))
		p.rotation.PushBack(i)
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			w.run()
		}(w)
	}

	if !p.log.IsZero() {
		p.log.Info("pool started", logx.Int("workers", len(p.workers)))
	}
	p.publish(EventPoolStarted, nil)
	return p, nil
}

// Size returns the number of running workers.
func (p *Pool) Size() int { return len(p.workers) }

// submit assigns fn to the current front-of-rotation worker and wakes it.
// It reports false when the rotation queue was observed empty, in which case
// the task is dropped without a trace beyond the drop counter. That is the
// degenerate-pool behavior, preserved rather than promoted to an error.
func (p *Pool) submit(fn task) bool {
	p.metrics.submitted.Add(1)

	id, ok := p.rotation.RotateFrontToBack()
	if !ok {
		p.metrics.dropped.Add(1)
		if !p.log.IsZero() {
			p.log.Debug("task dropped: no assignable worker", logx.Int("workers", len(p.workers)))
		}
		p.publish(EventTaskDropped, TaskEvent{Worker: -1})
		return false
	}

	p.unassigned.Add(1)
	// inFlight going 0->1 is what clears the derived idle state; no separate
	// flag is stored, WaitForIdle re-reads the counter under idleMu.
	p.inFlight.Add(1)

	w := p.workers[id]
	w.queue.PushBack(fn)
	w.wake()
	return true
}

// WaitForIdle blocks until no submitted task is queued or executing. Tasks
// submitted concurrently with the return may already have made the pool busy
// again; the only promise is that everything submitted before the call began
// has completed.
func (p *Pool) WaitForIdle() {
	p.idleMu.Lock()
	for p.inFlight.Load() > 0 {
		p.idleCond.Wait()
	}
	p.idleMu.Unlock()
}

// notifyIdle wakes WaitForIdle callers. The broadcast happens under idleMu so
// a waiter between its counter check and cond.Wait cannot miss it.
func (p *Pool) notifyIdle() {
	p.idleMu.Lock()
	p.idleCond.Broadcast()
	p.idleMu.Unlock()
}

// signalCompletion is called by a worker after a full drain+steal pass found
// no unassigned work.
func (p *Pool) signalCompletion() {
	if p.inFlight.Load() == 0 {
		p.notifyIdle()
	}
}

// Close drains and stops the pool: it waits for every task submitted before
// the call to finish, then stops and joins all workers. Already-queued tasks
// are never dropped by a graceful close. Close is idempotent; submitting
// after Close has begun is undefined (tasks may be queued but never run).
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.WaitForIdle()
		p.stop.Store(true)
		for _, w := range p.workers {
			w.wake()
		}
		p.wg.Wait()
		if !p.log.IsZero() {
			p.log.Info("pool stopped",
				logx.Uint64("completed", p.metrics.completed.Load()),
				logx.Uint64("dropped", p.metrics.dropped.Load()),
			)
		}
		p.publish(EventPoolStopped, nil)
	})
}

func (p *Pool) publish(typ string, data any) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

func (p *Pool) publishDone(workerID int, took time.Duration, err error) {
	if p.bus == nil {
		return
	}
	ev := TaskEvent{Worker: workerID, Duration: took}
	if err != nil {
		ev.Error = err.Error()
	}
	p.bus.Publish(eventbus.Event{Type: EventTaskDone, Data: ev})
}
