package pool

import (
	"context"
	"runtime/debug"
)

// task is the uniform unit of work a worker executes. The returned error is
// observational only (stats, history events); result-bearing submissions have
// already routed it into their Future by the time the task returns.
type task func() error

// Result holds the outcome of a result-bearing task: a value or an error,
// never both meaningfully set.
type Result[T any] struct {
	Value T
	Err   error
}

// Future is a one-shot, single-consumer handle for the outcome of a
// submitted task. It is resolved exactly once by whichever worker executes
// the task. A future for a task that was never assigned (see Submit on a
// zero-worker pool) never resolves.
type Future[T any] struct {
	done chan struct{}
	res  Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve must be called at most once.
func (f *Future[T]) resolve(v T, err error) {
	f.res = Result[T]{Value: v, Err: err}
	close(f.done)
}

// Done returns a channel that is closed once the task has finished.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Get blocks until the task finishes or ctx is canceled. On cancelation the
// task keeps running; only the wait is abandoned.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryGet returns the result without blocking. ok is false while the task has
// not finished.
func (f *Future[T]) TryGet() (Result[T], bool) {
	select {
	case <-f.done:
		return f.res, true
	default:
		return Result[T]{}, false
	}
}

// Submit wraps fn into a task whose outcome (return value, error, or panic)
// is captured into the returned Future. It never blocks the caller.
//
// Submit is a package function rather than a method because methods cannot
// introduce type parameters.
//
// If the pool's rotation queue is empty (a zero-worker pool, or the pool is
// mid-teardown), the task is dropped and the Future never resolves. Callers
// that cannot tolerate this should pass a context to Future.Get.
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	fut := newFuture[T]()
	if fn == nil {
		var zero T
		fut.resolve(zero, ErrNilTask)
		return fut
	}
	p.submit(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				err = &PanicError{Value: r, Stack: string(debug.Stack())}
				fut.resolve(zero, err)
			}
		}()
		v, err := fn()
		fut.resolve(v, err)
		return err
	})
	return fut
}

// SubmitDetached runs fn with no result handle. Panics are swallowed after
// being counted; detached outcomes are unobservable to the submitter. It
// never blocks.
func (p *Pool) SubmitDetached(fn func()) {
	if fn == nil {
		return
	}
	p.submit(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: string(debug.Stack())}
			}
		}()
		fn()
		return nil
	})
}

// SubmitDetachedErr runs fn with no result handle, recording a returned error
// or panic in the pool's counters and run events only. The submitter never
// observes the outcome.
func (p *Pool) SubmitDetachedErr(fn func() error) {
	if fn == nil {
		return
	}
	p.submit(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: string(debug.Stack())}
			}
		}()
		return fn()
	})
}
