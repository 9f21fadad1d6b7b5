// Package history keeps a bounded, time-ordered window of recent samples.
package history

import "sync"

// DefaultCapacity is the window used when none is configured.
const DefaultCapacity = 20

// Buffer is a fixed-capacity FIFO. Append evicts the oldest entry once the
// buffer is full. It is safe for one writer and many readers.
type Buffer[T any] struct {
	mu    sync.RWMutex
	items []T
	cap   int
}

// New returns an empty buffer. A non-positive capacity uses DefaultCapacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{items: make([]T, 0, capacity), cap: capacity}
}

// Append pushes v to the tail, dropping from the head past capacity.
func (b *Buffer[T]) Append(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, v)
	if over := len(b.items) - b.cap; over > 0 {
		// Shift in place so the backing array does not grow unbounded.
		n := copy(b.items, b.items[over:])
		var zero T
		for i := n; i < len(b.items); i++ {
			b.items[i] = zero
		}
		b.items = b.items[:n]
	}
}

// Snapshot returns a copy of the entries, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Last returns the newest entry.
func (b *Buffer[T]) Last() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	return b.items[len(b.items)-1], true
}

// Len is the number of entries held.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Cap is the configured capacity.
func (b *Buffer[T]) Cap() int { return b.cap }
