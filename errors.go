// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Enqueue: the queue is full (backpressure)
// For Dequeue: the queue is empty (no data available)
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry later (with backoff or yield) or apply its own flow-control policy.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrTimedOut is returned by the timed Semaphore waits when no permit
// arrived before the deadline. Like ErrWouldBlock it is an outcome, not a
// failure; the caller decides whether a timeout is fatal.
var ErrTimedOut = errors.New("lfsync: timed out")

// ErrClosed is returned by [IOLock.Do] when the lock was closed before or
// during the guarded operation.
var ErrClosed = errors.New("lfsync: closed")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsTimedOut reports whether err is or wraps ErrTimedOut.
func IsTimedOut(err error) bool {
	return errors.Is(err, ErrTimedOut)
}

// IsClosed reports whether err is or wraps ErrClosed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// ErrTimedOut and ErrClosed count as control flow alongside the iox set.
func IsSemantic(err error) bool {
	return IsTimedOut(err) || IsClosed(err) || iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, ErrMore and ErrTimedOut.
func IsNonFailure(err error) bool {
	return IsTimedOut(err) || iox.IsNonFailure(err)
}
