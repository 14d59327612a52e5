// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package park provides the kernel-facing blocking layer used by lfsync.
//
// Two facilities are offered:
//
//   - Wait/Wake park a goroutine on a 32-bit word until another goroutine
//     changes it. Linux uses a private futex; other platforms fall back to
//     a short spin-sleep loop and Wake is a no-op.
//   - Sema is a counting semaphore owned by the kernel on Linux (futex) and
//     by golang.org/x/sync/semaphore elsewhere.
//
// Every call returns its outcome as an error value instead of retrying:
// ErrTimedOut when the timeout elapsed, ErrInterrupted for transient
// failures the caller should retry, anything else is fatal. Wait may also
// return nil spuriously; callers always re-check their condition.
package park

import (
	"errors"
	"time"
)

var (
	// ErrTimedOut reports that the timeout elapsed before a wake-up.
	ErrTimedOut = errors.New("park: timed out")

	// ErrInterrupted reports a transient failure (signal delivery,
	// spurious kernel return). The operation may be retried.
	ErrInterrupted = errors.New("park: interrupted")
)

// IsTransient reports whether err may be cured by retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// NapInterval is the sleep slice of the spin-sleep fallback.
const NapInterval = 50 * time.Microsecond

// Nap sleeps for NapInterval, or for timeout when it is shorter and
// non-negative.
func Nap(timeout time.Duration) {
	d := NapInterval
	if timeout >= 0 && timeout < d {
		d = timeout
	}
	if d > 0 {
		time.Sleep(d)
	}
}
