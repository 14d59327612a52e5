// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// ring is the fixed-capacity slot storage shared by SPSC and MPSC.
//
// Positions are monotonically increasing logical indices; index maps them
// onto a physical slot. Only slots in [tail, head) hold live values. A slot
// is constructed by writing through at and destroyed by clear, which stores
// the zero value so referenced objects become collectable.
type ring[S any] struct {
	slots []S
	mask  uint64
}

func newRing[S any](capacity int) ring[S] {
	if capacity < 1 {
		panic("lfsync: capacity must be >= 1")
	}
	n := uint64(roundToPow2(capacity))
	return ring[S]{
		slots: make([]S, n),
		mask:  n - 1,
	}
}

func (r *ring[S]) index(pos uint64) uint64 {
	return pos & r.mask
}

// at returns the slot backing pos. The mask keeps the index in bounds.
func (r *ring[S]) at(pos uint64) *S {
	return &r.slots[pos&r.mask]
}

func (r *ring[S]) clear(pos uint64) {
	var zero S
	r.slots[pos&r.mask] = zero
}

func (r *ring[S]) size() uint64 {
	return r.mask + 1
}

// ringLen returns head-tail, clamped at zero for racy snapshots.
func ringLen(head, tail uint64) int {
	if n := int64(head - tail); n > 0 {
		return int(n)
	}
	return 0
}

// roundToPow2 rounds n up to the next power of 2, with a minimum of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// cacheLineSize is the destructive interference size of the target CPU.
const cacheLineSize = int(unsafe.Sizeof(cpu.CacheLinePad{}))

// pad is cache line padding to prevent false sharing.
type pad = cpu.CacheLinePad

// padWord fills the rest of a cache line after a 4-byte field.
type padWord [cacheLineSize - 4]byte
