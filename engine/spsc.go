package engine

import "sync/atomic"

// SpscQueue is a lock-free single-producer single-consumer queue with
// fixed capacity and no allocation after construction. Push may only
// be called from one goroutine (the control thread) and Pop from one
// other (the audio thread). One slot is kept empty internally so a
// full queue is distinguishable from an empty one.
type SpscQueue[T any] struct {
	buf  []T
	head atomic.Uint64 // next write slot, producer-owned
	tail atomic.Uint64 // next read slot, consumer-owned
}

// NewSpscQueue creates a queue that accepts capacity items.
func NewSpscQueue[T any](capacity int) *SpscQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &SpscQueue[T]{buf: make([]T, capacity+1)}
}

// Push enqueues an item, returning false without blocking when the
// queue is full.
func (q *SpscQueue[T]) Push(item T) bool {
	head := q.head.Load()
	next := (head + 1) % uint64(len(q.buf))
	if next == q.tail.Load() {
		return false // full
	}
	q.buf[head] = item
	q.head.Store(next)
	return true
}

// Pop dequeues an item, returning false without blocking when the
// queue is empty.
func (q *SpscQueue[T]) Pop() (T, bool) {
	tail := q.tail.Load()
	if tail == q.head.Load() {
		var zero T
		return zero, false // empty
	}
	item := q.buf[tail]
	q.tail.Store((tail + 1) % uint64(len(q.buf)))
	return item, true
}
