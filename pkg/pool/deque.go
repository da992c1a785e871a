package pool

import "sync"

const minDequeCapacity = 16

// Deque is a concurrent double-ended queue backed by a growable ring buffer.
//
// Every operation is individually linearizable; pops never block and report
// emptiness as observed at the moment of the call. A pop racing with an
// in-flight push may see the queue empty; callers that care retry from their
// outer loop, which is exactly what the pool's workers do.
//
// The pool uses one Deque per worker (producer pushes to the back, the owner
// pops from the front, thieves pop from the back) and one Deque of worker ids
// as the rotation queue. Both access patterns need independent ends plus the
// atomic rotate below, which rules out an owner/thief split like Chase-Lev;
// a single short critical section covers all four ends instead.
type Deque[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int
	size int
}

// NewDeque creates a deque with at least the given initial capacity.
func NewDeque[T any](capacity int) *Deque[T] {
	if capacity < minDequeCapacity {
		capacity = minDequeCapacity
	}
	return &Deque[T]{buf: make([]T, capacity)}
}

// PushBack appends v at the back.
func (d *Deque[T]) PushBack(v T) {
	d.mu.Lock()
	d.growLocked()
	d.buf[(d.head+d.size)%len(d.buf)] = v
	d.size++
	d.mu.Unlock()
}

// PushFront prepends v at the front.
func (d *Deque[T]) PushFront(v T) {
	d.mu.Lock()
	d.growLocked()
	d.head = (d.head - 1 + len(d.buf)) % len(d.buf)
	d.buf[d.head] = v
	d.size++
	d.mu.Unlock()
}

// PopFront removes and returns the front element.
// It reports false immediately when the deque is observed empty.
func (d *Deque[T]) PopFront() (T, bool) {
	var zero T
	d.mu.Lock()
	if d.size == 0 {
		d.mu.Unlock()
		return zero, false
	}
	v := d.buf[d.head]
	d.buf[d.head] = zero
	d.head = (d.head + 1) % len(d.buf)
	d.size--
	d.mu.Unlock()
	return v, true
}

// PopBack removes and returns the back element.
// It reports false immediately when the deque is observed empty.
func (d *Deque[T]) PopBack() (T, bool) {
	var zero T
	d.mu.Lock()
	if d.size == 0 {
		d.mu.Unlock()
		return zero, false
	}
	i := (d.head + d.size - 1) % len(d.buf)
	v := d.buf[i]
	d.buf[i] = zero
	d.size--
	d.mu.Unlock()
	return v, true
}

// RotateFrontToBack atomically moves the front element to the back and
// returns it. No concurrent operation can observe the deque without the
// rotated element. Reports false when the deque is observed empty.
func (d *Deque[T]) RotateFrontToBack() (T, bool) {
	var zero T
	d.mu.Lock()
	if d.size == 0 {
		d.mu.Unlock()
		return zero, false
	}
	v := d.buf[d.head]
	d.buf[d.head] = zero
	d.head = (d.head + 1) % len(d.buf)
	d.buf[(d.head+d.size-1)%len(d.buf)] = v
	d.mu.Unlock()
	return v, true
}

// Len returns a point-in-time element count. It may be stale immediately.
func (d *Deque[T]) Len() int {
	d.mu.Lock()
	n := d.size
	d.mu.Unlock()
	return n
}

// growLocked doubles the buffer when full. Caller holds d.mu.
func (d *Deque[T]) growLocked() {
	if d.size < len(d.buf) {
		return
	}
	next := make([]T, len(d.buf)*2)
	for i := 0; i < d.size; i++ {
		next[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = next
	d.head = 0
}
