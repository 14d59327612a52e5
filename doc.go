// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfsync provides bounded lock-free queues and the blocking
// primitives used to build on top of them.
//
//   - SPSC: Single-Producer Single-Consumer queue (Lamport ring)
//   - MPSC: Multi-Producer Single-Consumer queue (sequence tickets)
//   - IOLock: guard for closing an I/O resource under a blocked worker
//   - Semaphore: counting semaphore with a lock-free fast path
//
// # Quick Start
//
//	q := lfsync.NewSPSC[Event](1024)
//	q := lfsync.NewMPSC[*Request](4096)
//
// Builder API selects the queue from the declared constraints:
//
//	q := lfsync.Build[Event](lfsync.New(1024).SingleProducer().SingleConsumer())  // → SPSC
//	q := lfsync.Build[Event](lfsync.New(1024).SingleConsumer())                   // → MPSC
//
// # Basic Usage
//
// Queues report full and empty as boolean outcomes:
//
//	q := lfsync.NewMPSC[int](1024)
//
//	if !q.TryPush(42) {
//	    // Queue is full - handle backpressure
//	}
//
//	var v int
//	if q.TryPop(&v) {
//	    fmt.Println(v)
//	}
//
// Emplace fills the slot in place, avoiding a copy of large elements:
//
//	q.Emplace(func(m *Message) {
//	    m.ID = id
//	    m.Payload = append(m.Payload[:0], data...)
//	})
//
// Both queues also implement [Queue], whose Enqueue and Dequeue return
// [ErrWouldBlock] instead of false.
//
// # Capacity and Length
//
// Capacity rounds up to the next power of 2, with a minimum of 2:
//
//	lfsync.NewSPSC[int](1)     // Cap() == 2
//	lfsync.NewSPSC[int](3)     // Cap() == 4
//	lfsync.NewMPSC[int](1000)  // Cap() == 1024
//
// The two queues differ in usable slots:
//
//	SPSC: Cap()-1 elements (one slot tells full from empty)
//	MPSC: Cap() elements   (tickets tell full from empty)
//
// Len reports head minus tail. It is exact on the producer or consumer of
// an SPSC and approximate anywhere else.
//
// # Ordering
//
// SPSC is strictly FIFO. MPSC delivers in position order: producers race
// for positions with CAS, so there is no FIFO across producers, but each
// producer's own elements keep their order. A producer paused between
// claiming and publishing a position stalls delivery of later positions
// until it publishes.
//
// # Blocking Consumption
//
// The queues never block. Pair them with a [Semaphore] to sleep on empty:
//
//	q := lfsync.NewMPSC[Job](4096)
//	sem := lfsync.NewSemaphore(0)
//
//	// Producers
//	for !q.TryPush(job) {
//	    backoff.Wait()
//	}
//	sem.Signal(1)
//
//	// Consumer
//	for {
//	    if err := sem.Wait(); err != nil {
//	        return err
//	    }
//	    var job Job
//	    for !q.TryPop(&job) {
//	        // Permit arrived before the producer's slot was published.
//	        runtime.Gosched()
//	    }
//	    job.Run()
//	}
//
// # Semaphore
//
// [Semaphore] keeps a signed count. TryWait and TryWaitMany only CAS the
// count. Wait spins up to the configured budget ([WithMaxSpins], default
// [DefaultMaxSpins]) and then parks on a kernel semaphore. Signal posts to
// the kernel once per parked waiter and never otherwise.
//
// Timed waits return [ErrTimedOut]. A non-nil error other than
// ErrTimedOut means the kernel semaphore failed persistently; the count is
// left consistent and the error is logged through [WithLogger].
//
// # IOLock
//
// [IOLock] separates "closed" from "operation in progress" so a closer can
// refuse new operations, unblock the current one by closing the resource,
// and then wait for it to leave:
//
//	// Closer
//	l.MarkClosed()
//	fd.Close()  // unblocks the worker's read
//	l.Wait()
//
// [IOLock.Scoped] and [IOLock.Do] tie Enter and Leave to a scope.
//
// # Thread Safety
//
//   - SPSC: One producer goroutine, one consumer goroutine
//   - MPSC: Multiple producer goroutines, one consumer goroutine
//   - IOLock: One guarded operation at a time, plus one closer
//   - Semaphore: Any number of goroutines
//
// Violating these constraints causes undefined behavior including data
// corruption. It is not detected.
//
// # Race Detection
//
// The race detector cannot observe happens-before edges established through
// acquire/release on atomics that guard separate, non-atomic slot data.
// Concurrent queue tests are skipped when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause instructions,
// [golang.org/x/sys] for futexes and cache line sizes, and
// [github.com/rs/zerolog] for slow-path diagnostics.
package lfsync
