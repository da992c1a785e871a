package pool

import (
	"runtime"
	"sync/atomic"
	"time"

	logx "taskmill/pkg/logx"
)

// worker is one member of the pool. It owns a private task queue (it pops
// the front; thieves pop the back) and a binary wake signal the pool sets
// after assigning it work.
type worker struct {
	id   int
	pool *Pool

	queue  *Deque[task]
	signal chan struct{} // cap 1: a binary semaphore

	executed atomic.Uint64
	stolen   atomic.Uint64
}

func newWorker(id int, p *Pool) *worker {
	return &worker{
		id:     id,
		pool:   p,
		queue:  NewDeque[task](p.cfg.QueueCapacity),
		signal: make(chan struct{}, 1),
	}
}

// wake sets the worker's binary signal. Multiple wakes before the worker
// observes one collapse into a single wakeup, which is fine: a woken worker
// drains everything visible, not just one task.
func (w *worker) wake() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// run is the worker loop: wait for the signal, drain and steal until no
// unassigned work remains anywhere, report completion, then check the stop
// request. The stop check sits between drain bursts only, so a closing pool
// never abandons visible work.
func (w *worker) run() {
	if w.pool.cfg.PinWorkerThreads {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	if init := w.pool.cfg.OnWorkerStart; init != nil {
		func() {
			defer func() {
				if r := recover(); r != nil && !w.pool.log.IsZero() {
					w.pool.log.Debug("worker init callback panicked",
						logx.Int("worker", w.id), logx.Any("panic", r))
				}
			}()
			init(w.id)
		}()
	}

	for {
		<-w.signal
		w.drain()
		w.pool.signalCompletion()
		if w.pool.stop.Load() {
			return
		}
	}
}

// drain empties the worker's own queue front-first, then tries one steal,
// and repeats while the global unassigned counter shows work left anywhere.
// Gating on the global counter lets a single woken worker chew through a
// burst spread across peers that have not woken up yet.
func (w *worker) drain() {
	for {
		for {
			fn, ok := w.queue.PopFront()
			if !ok {
				break
			}
			w.execute(fn)
		}
		w.steal()
		if w.pool.unassigned.Load() <= 0 {
			return
		}
	}
}

// steal probes every peer queue once, in a fixed rotation starting at the
// next id, and executes the first task found. It pops the victim's back end;
// the victim itself always pops its front, so contention meets only on the
// last element.
func (w *worker) steal() {
	workers := w.pool.workers
	for j := 1; j < len(workers); j++ {
		victim := workers[(w.id+j)%len(workers)]
		if fn, ok := victim.queue.PopBack(); ok {
			w.stolen.Add(1)
			w.pool.metrics.stolen.Add(1)
			w.execute(fn)
			return
		}
	}
}

// execute claims the task (unassigned--), runs it, and retires it
// (inFlight--), signaling idle waiters when the last in-flight task
// finishes. Task wrappers have already converted panics into errors by the
// time fn returns.
func (w *worker) execute(fn task) {
	w.pool.unassigned.Add(-1)

	start := time.Now()
	err := fn()

	w.executed.Add(1)
	w.pool.metrics.completed.Add(1)
	if err != nil {
		w.pool.metrics.failed.Add(1)
	}
	w.pool.publishDone(w.id, time.Since(start), err)

	if w.pool.inFlight.Add(-1) == 0 {
		w.pool.notifyIdle()
	}
}
