// Package queue provides a bounded producer/consumer FIFO.
package queue

import (
	"context"
	"sync"
)

// Queue is a FIFO shared between producers and consumers. When full, Push
// drops the oldest item so consumers always see recent data.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	onDrop   func(T)
	ready    chan struct{}
}

// New returns a queue holding at most capacity items. A capacity below 1 is
// treated as 1. onDrop, if not nil, is called with every item dropped by Push
// or Clear, for example to release frame memory.
func New[T any](capacity int, onDrop func(T)) *Queue[T] {
	return &Queue[T]{
		capacity: max(capacity, 1),
		onDrop:   onDrop,
		ready:    make(chan struct{}, 1),
	}
}

// Push appends v, dropping the oldest item if the queue is full.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	var dropped []T
	for len(q.items) >= q.capacity {
		dropped = append(dropped, q.items[0])
		q.items = q.items[1:]
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.drop(dropped)
	q.signal()
}

// Poll removes and returns the oldest item. ok is false if the queue is empty.
func (q *Queue[T]) Poll() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		// Pushes that found the signal already set were coalesced; pass the
		// wakeup on to the next waiter.
		q.signal()
	}
	return v, true
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Wait blocks until an item is available or ctx is done.
func (q *Queue[T]) Wait(ctx context.Context) (T, error) {
	for {
		if v, ok := q.Poll(); ok {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every queued item.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	dropped := q.items
	q.items = nil
	q.mu.Unlock()

	q.drop(dropped)
}

func (q *Queue[T]) drop(items []T) {
	if q.onDrop == nil {
		return
	}
	for _, v := range items {
		q.onDrop(v)
	}
}
