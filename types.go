// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

// Queue is the combined producer-consumer interface implemented by SPSC and
// MPSC.
//
// Enqueue and Dequeue never block. Both return ErrWouldBlock when they
// cannot proceed (queue full or empty).
//
// Example:
//
//	q := lfsync.NewMPSC[int](1024)
//
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Handle full queue
//	}
//
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	Len() int
	Cap() int
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs on the
// call. The queue stores a copy, so the original can be modified after
// Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking).
	// Returns nil on success, ErrWouldBlock if the queue is full.
	//
	// Thread safety depends on queue type:
	//   - SPSC: single producer only
	//   - MPSC: multiple producers safe
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// The slot an element is taken from is cleared so referenced objects can
// be collected.
type Consumer[T any] interface {
	// Dequeue removes and returns an element from the queue (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	//
	// Both SPSC and MPSC allow a single consumer only.
	Dequeue() (T, error)
}

// Pusher is the boolean-outcome producer side shared by SPSC and MPSC.
type Pusher[T any] interface {
	TryPush(v T) bool
	Emplace(init func(slot *T)) bool
}

// Popper is the boolean-outcome consumer side shared by SPSC and MPSC.
type Popper[T any] interface {
	TryPop(out *T) bool
}

var (
	_ Queue[int]  = (*SPSC[int])(nil)
	_ Queue[int]  = (*MPSC[int])(nil)
	_ Pusher[int] = (*SPSC[int])(nil)
	_ Pusher[int] = (*MPSC[int])(nil)
	_ Popper[int] = (*SPSC[int])(nil)
	_ Popper[int] = (*MPSC[int])(nil)
)
