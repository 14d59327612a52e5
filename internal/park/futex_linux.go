// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package park

import (
	"fmt"
	"math"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	futexWaitOp  = 0
	futexWakeOp  = 1
	futexPrivate = 128
)

// futexWait sleeps while *addr == val. A negative timeout waits forever.
// A changed word (EAGAIN) and a delivered wake both return nil.
func futexWait(addr *uint32, val uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitOp|futexPrivate,
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0, 0,
	)
	switch errno {
	case 0, unix.EAGAIN:
		return nil
	case unix.EINTR:
		return ErrInterrupted
	case unix.ETIMEDOUT:
		return ErrTimedOut
	default:
		return fmt.Errorf("park: futex wait: %w", errno)
	}
}

// futexWake wakes up to n goroutines sleeping on addr.
func futexWake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakeOp|futexPrivate,
		uintptr(n),
		0, 0, 0,
	)
	switch errno {
	case 0:
		return nil
	case unix.EINTR, unix.EAGAIN:
		return ErrInterrupted
	default:
		return fmt.Errorf("park: futex wake: %w", errno)
	}
}

// Wait parks the caller while *addr == val, for at most timeout
// (negative means no bound).
func Wait(addr *uint32, val uint32, timeout time.Duration) error {
	return futexWait(addr, val, timeout)
}

// Wake wakes every goroutine parked on addr.
func Wake(addr *uint32) error {
	return futexWake(addr, math.MaxInt32)
}
