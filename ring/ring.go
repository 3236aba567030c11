// Package ring is a fixed-size single-producer single-consumer queue. Push
// and Pop never block or allocate, so either side may sit on the audio path.
package ring

import "sync/atomic"

// Ring holds up to Cap() values. One goroutine pushes and one goroutine pops;
// additional producers must serialise among themselves.
type Ring[T any] struct {
	buf     []T
	mask    uint64
	head    atomic.Uint64 // next slot to read
	tail    atomic.Uint64 // next slot to write
	dropped atomic.Uint64
}

// New returns a ring whose capacity is size rounded up to a power of two.
func New[T any](size int) *Ring[T] {
	n := 1
	for n < size {
		n <<= 1
	}
	return &Ring[T]{buf: make([]T, n), mask: uint64(n - 1)}
}

// Push appends v. It returns false and counts a drop when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() > r.mask {
		r.dropped.Add(1)
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest value.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	v := r.buf[head&r.mask]
	r.buf[head&r.mask] = zero
	r.head.Store(head + 1)
	return v, true
}

// Peek returns the oldest value without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	return r.buf[head&r.mask], true
}

// Len returns the number of queued values.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Dropped returns how many pushes were refused because the ring was full.
func (r *Ring[T]) Dropped() uint64 {
	return r.dropped.Load()
}
