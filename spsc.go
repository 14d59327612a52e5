// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import "code.hybscloud.com/atomix"

// SPSC is a single-producer single-consumer bounded queue.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's tail, and the consumer caches the
// producer's head, so the shared counters are only reloaded when the
// cached view says the queue is full or empty.
//
// One slot is kept as a sentinel to tell full from empty, so at most
// Cap()-1 elements are resident at once.
//
// An SPSC must not be copied after first use.
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // Producer publishes here
	_          pad
	tail       atomix.Uint64 // Consumer publishes here
	_          pad
	cachedTail uint64 // Producer's view of tail
	_          pad
	cachedHead uint64 // Consumer's view of head
	_          pad
	ring       ring[T]
}

// NewSPSC creates a new SPSC queue.
// Capacity rounds up to the next power of 2, with a minimum of 2.
// Panics if capacity < 1.
func NewSPSC[T any](capacity int) *SPSC[T] {
	return newSPSC[T](capacity, 0)
}

// newSPSC creates an empty queue whose counters start at start.
func newSPSC[T any](capacity int, start uint64) *SPSC[T] {
	q := &SPSC[T]{ring: newRing[T](capacity)}
	q.head.StoreRelaxed(start)
	q.tail.StoreRelaxed(start)
	q.cachedHead = start
	q.cachedTail = start
	return q
}

// TryPush copies v into the queue (producer only).
// Returns false if the queue is full.
func (q *SPSC[T]) TryPush(v T) bool {
	slot, head, ok := q.reserve()
	if !ok {
		return false
	}
	*slot = v
	q.head.StoreRelease(head + 1)
	return true
}

// Emplace constructs an element in place (producer only).
// init is called with the slot to fill; it must not retain the pointer.
// Returns false without calling init if the queue is full.
func (q *SPSC[T]) Emplace(init func(slot *T)) bool {
	slot, head, ok := q.reserve()
	if !ok {
		return false
	}
	init(slot)
	q.head.StoreRelease(head + 1)
	return true
}

func (q *SPSC[T]) reserve() (*T, uint64, bool) {
	head := q.head.LoadRelaxed()
	next := q.ring.index(head + 1)
	if next == q.ring.index(q.cachedTail) {
		q.cachedTail = q.tail.LoadAcquire()
		if next == q.ring.index(q.cachedTail) {
			return nil, 0, false
		}
	}
	return q.ring.at(head), head, true
}

// TryPop moves the oldest element into out (consumer only).
// Returns false and leaves out untouched if the queue is empty.
func (q *SPSC[T]) TryPop(out *T) bool {
	tail := q.tail.LoadRelaxed()
	if q.ring.index(tail) == q.ring.index(q.cachedHead) {
		q.cachedHead = q.head.LoadAcquire()
		if q.ring.index(tail) == q.ring.index(q.cachedHead) {
			return false
		}
	}

	*out = *q.ring.at(tail)
	q.ring.clear(tail)
	q.tail.StoreRelease(tail + 1)
	return true
}

// Enqueue adds an element to the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *SPSC[T]) Enqueue(elem *T) error {
	if !q.TryPush(*elem) {
		return ErrWouldBlock
	}
	return nil
}

// Dequeue removes and returns an element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPSC[T]) Dequeue() (T, error) {
	var elem T
	if !q.TryPop(&elem) {
		return elem, ErrWouldBlock
	}
	return elem, nil
}

// Len returns the number of resident elements.
// Exact when called from the producer or the consumer, approximate
// from any other goroutine.
func (q *SPSC[T]) Len() int {
	return ringLen(q.head.LoadAcquire(), q.tail.LoadAcquire())
}

// Empty reports whether the queue appears empty.
func (q *SPSC[T]) Empty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int {
	return int(q.ring.size())
}
