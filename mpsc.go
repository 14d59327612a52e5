// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPSC is a CAS-based multi-producer single-consumer bounded queue.
//
// Every slot carries a sequence ticket. For logical position p mapped to
// the slot, the ticket reads:
//
//	p            free, producers may claim p
//	p+1          published, the consumer may read p
//	p+capacity   consumed, free for the next lap
//
// Producers claim a position with CAS on head and publish by storing the
// ticket with release ordering. Fullness is detected from the ticket, not
// from a spare slot, so all Cap() slots are usable.
//
// Delivery follows position order. A producer stalled between claiming and
// publishing hides later positions from the consumer until it publishes.
//
// An MPSC must not be copied after first use.
type MPSC[T any] struct {
	_    pad
	head atomix.Uint64 // Producers CAS here
	_    pad
	tail atomix.Uint64 // Consumer reads from here
	_    pad
	ring ring[mpscSlot[T]]
}

// mpscSlot pairs an element with its ticket. Slots are not padded: a
// generic T has no constant size to pad against, so neighbouring slots may
// share a cache line.
type mpscSlot[T any] struct {
	seq  atomix.Uint64
	data T
}

// NewMPSC creates a new MPSC queue.
// Capacity rounds up to the next power of 2, with a minimum of 2.
// Panics if capacity < 1.
func NewMPSC[T any](capacity int) *MPSC[T] {
	return newMPSC[T](capacity, 0)
}

// newMPSC creates an empty queue whose counters start at start.
func newMPSC[T any](capacity int, start uint64) *MPSC[T] {
	q := &MPSC[T]{ring: newRing[mpscSlot[T]](capacity)}
	for pos := start; pos != start+q.ring.size(); pos++ {
		q.ring.at(pos).seq.StoreRelaxed(pos)
	}
	q.head.StoreRelaxed(start)
	q.tail.StoreRelaxed(start)
	return q
}

// TryPush copies v into the queue (multiple producers safe).
// Returns false if the queue is full.
func (q *MPSC[T]) TryPush(v T) bool {
	slot, head, ok := q.claim()
	if !ok {
		return false
	}
	slot.data = v
	slot.seq.StoreRelease(head + 1)
	return true
}

// Emplace constructs an element in place (multiple producers safe).
// init is called with the claimed slot; it must not retain the pointer.
// Returns false without calling init if the queue is full.
func (q *MPSC[T]) Emplace(init func(slot *T)) bool {
	slot, head, ok := q.claim()
	if !ok {
		return false
	}
	init(&slot.data)
	slot.seq.StoreRelease(head + 1)
	return true
}

// claim reserves the next position for the calling producer.
func (q *MPSC[T]) claim() (*mpscSlot[T], uint64, bool) {
	sw := spin.Wait{}
	head := q.head.LoadRelaxed()
	for {
		slot := q.ring.at(head)
		seq := slot.seq.LoadAcquire()
		diff := int64(seq - head)

		switch {
		case diff == 0:
			if q.head.CompareAndSwapRelaxed(head, head+1) {
				return slot, head, true
			}
			head = q.head.LoadRelaxed()
		case diff < 0:
			// The consumer has not freed this slot from the previous lap.
			return nil, 0, false
		default:
			// Another producer already took this position.
			sw.Once()
			head = q.head.LoadRelaxed()
		}
	}
}

// TryPop moves the oldest published element into out (single consumer only).
// Returns false and leaves out untouched if the next position is not
// published yet.
func (q *MPSC[T]) TryPop(out *T) bool {
	tail := q.tail.LoadRelaxed()
	slot := q.ring.at(tail)
	seq := slot.seq.LoadAcquire()
	if int64(seq-(tail+1)) != 0 {
		return false
	}

	*out = slot.data
	var zero T
	slot.data = zero
	slot.seq.StoreRelease(tail + q.ring.size())
	q.tail.StoreRelaxed(tail + 1)
	return true
}

// Enqueue adds an element to the queue (multiple producers safe).
// Returns ErrWouldBlock if the queue is full.
func (q *MPSC[T]) Enqueue(elem *T) error {
	if !q.TryPush(*elem) {
		return ErrWouldBlock
	}
	return nil
}

// Dequeue removes and returns an element (single consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPSC[T]) Dequeue() (T, error) {
	var elem T
	if !q.TryPop(&elem) {
		return elem, ErrWouldBlock
	}
	return elem, nil
}

// Len returns the approximate number of claimed, unconsumed positions.
// Positions claimed but not yet published are counted.
func (q *MPSC[T]) Len() int {
	return ringLen(q.head.LoadAcquire(), q.tail.LoadAcquire())
}

// Empty reports whether the queue appears empty.
func (q *MPSC[T]) Empty() bool {
	return q.Len() == 0
}

// Cap returns the queue capacity.
func (q *MPSC[T]) Cap() int {
	return int(q.ring.size())
}
