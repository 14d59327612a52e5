// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

// Options configures queue creation and algorithm selection.
type Options struct {
	// Producer/Consumer constraints (determines queue type)
	singleProducer bool
	singleConsumer bool

	// Capacity (rounds up to next power of 2)
	capacity int
}

// Builder creates queues with fluent configuration.
//
// The builder selects the algorithm from the declared producer/consumer
// constraints. Only single-consumer queues exist, so SingleConsumer is
// mandatory.
//
// Example:
//
//	// SPSC queue (Lamport ring, Cap()-1 usable slots)
//	q := lfsync.BuildSPSC[Event](lfsync.New(1024).SingleProducer().SingleConsumer())
//
//	// MPSC queue (sequence tickets, Cap() usable slots)
//	q := lfsync.BuildMPSC[Request](lfsync.New(4096).SingleConsumer())
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity rounds up to the next power of 2 with a minimum of 2.
// For example, capacity=1 results in actual capacity=2, capacity=1000
// results in actual capacity=1024.
//
// Panics if capacity < 1.
func New(capacity int) *Builder {
	if capacity < 1 {
		panic("lfsync: capacity must be >= 1")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will enqueue.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Capacity returns the capacity the built queue will report.
func (b *Builder) Capacity() int {
	return roundToPow2(b.opts.capacity)
}

// Build creates a Queue[T] with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleProducer + SingleConsumer → SPSC (Lamport ring buffer)
//	SingleConsumer only             → MPSC (sequence tickets)
//
// Panics without SingleConsumer: multi-consumer queues are not provided.
func Build[T any](b *Builder) Queue[T] {
	switch {
	case b.opts.singleProducer && b.opts.singleConsumer:
		return NewSPSC[T](b.opts.capacity)
	case b.opts.singleConsumer:
		return NewMPSC[T](b.opts.capacity)
	default:
		panic("lfsync: Build requires SingleConsumer()")
	}
}

// BuildSPSC creates an SPSC queue with compile-time type safety.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func BuildSPSC[T any](b *Builder) *SPSC[T] {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("lfsync: BuildSPSC requires SingleProducer().SingleConsumer()")
	}
	return NewSPSC[T](b.opts.capacity)
}

// BuildMPSC creates an MPSC queue with compile-time type safety.
// Panics if builder is not configured with SingleConsumer().
// SingleProducer is allowed: an MPSC serves one producer correctly.
func BuildMPSC[T any](b *Builder) *MPSC[T] {
	if !b.opts.singleConsumer {
		panic("lfsync: BuildMPSC requires SingleConsumer()")
	}
	return NewMPSC[T](b.opts.capacity)
}
