// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/lfsync/internal/park"
)

// waitSpins bounds the spin phase of IOLock waits before parking.
const waitSpins = 16

// IOLock lets a closer tear down an I/O resource while a worker may be
// blocked inside a system call on it.
//
// The worker brackets each operation with Enter and Leave. The closer
// calls MarkClosed, unblocks the worker by closing the underlying
// resource, then calls Wait. Once Close (or MarkClosed followed by Wait)
// has returned, every later Enter fails, and everything the worker did
// inside Enter/Leave happened before Wait returned.
//
//	// worker
//	if !l.Enter() {
//	    return ErrClosed
//	}
//	n, err := conn.Read(buf)
//	l.Leave()
//	if l.IsClosed() {
//	    // closed while reading
//	}
//
//	// closer
//	l.MarkClosed()
//	conn.Close()
//	l.Wait()
//
// IOLock supports one in-flight guarded operation plus one closer. It is
// not a mutex and must not coordinate several concurrent operations on the
// same resource.
//
// An IOLock must not be copied after first use.
type IOLock struct {
	_          pad
	closed     atomix.Bool
	_          pad
	inProgress uint32 // futex word: 1 while an operation is entered
	_          padWord
	waiters    atomix.Int32
	_          pad
}

// Enter marks an operation as in progress.
// Returns false if the lock is closed; the caller must then skip the
// operation and must not call Leave.
func (l *IOLock) Enter() bool {
	// Sequentially consistent store-then-load, paired with MarkClosed
	// followed by Wait: at least one side sees the other.
	atomic.StoreUint32(&l.inProgress, 1)
	if l.closed.Load() {
		l.Leave()
		return false
	}
	return true
}

// Leave ends the operation started by a successful Enter and wakes a
// waiting closer.
func (l *IOLock) Leave() {
	atomic.StoreUint32(&l.inProgress, 0)
	if l.waiters.Load() > 0 {
		_ = park.Wake(&l.inProgress)
	}
}

// MarkClosed latches the closed flag without waiting.
func (l *IOLock) MarkClosed() {
	l.closed.Store(true)
}

// IsClosed reports whether the lock has been closed. Valid at any time,
// including after Leave, to detect a close during the operation.
func (l *IOLock) IsClosed() bool {
	return l.closed.Load()
}

// Wait blocks until no operation is in progress.
func (l *IOLock) Wait() {
	l.wait(-1)
}

// TryWait blocks for at most timeout until no operation is in progress.
// Returns false if an operation is still in progress at the deadline.
func (l *IOLock) TryWait(timeout time.Duration) bool {
	return l.wait(max(timeout, 0))
}

// Close marks the lock closed and waits for the in-flight operation.
func (l *IOLock) Close() {
	l.MarkClosed()
	l.Wait()
}

func (l *IOLock) idle() bool {
	return atomic.LoadUint32(&l.inProgress) == 0
}

func (l *IOLock) wait(timeout time.Duration) bool {
	if l.idle() {
		return true
	}
	sw := spin.Wait{}
	for range waitSpins {
		sw.Once()
		if l.idle() {
			return true
		}
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	// Registered before re-reading the word, paired with Leave's store
	// then load of waiters.
	l.waiters.Add(1)
	defer l.waiters.Add(-1)
	for {
		if l.idle() {
			return true
		}
		remaining := time.Duration(-1)
		if timeout >= 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return false
			}
		}
		err := park.Wait(&l.inProgress, 1, remaining)
		if err != nil && !park.IsTransient(err) && !errors.Is(err, park.ErrTimedOut) {
			// Kernel parking is unavailable; poll instead.
			park.Nap(remaining)
		}
	}
}

// ScopedIOLock binds Enter and Leave to a scope.
//
//	g := l.Scoped()
//	defer g.Release()
//	if !g.Entered() {
//	    return ErrClosed
//	}
//	n, err := conn.Read(buf)
//	if g.IsClosed() {
//	    // closed while reading
//	}
type ScopedIOLock struct {
	l       *IOLock
	entered bool
}

// Scoped calls Enter and returns a guard recording the outcome.
func (l *IOLock) Scoped() ScopedIOLock {
	return ScopedIOLock{l: l, entered: l.Enter()}
}

// Entered reports whether Enter succeeded and Release has not run yet.
func (g *ScopedIOLock) Entered() bool {
	return g.entered
}

// IsClosed reports whether the underlying lock is closed.
func (g *ScopedIOLock) IsClosed() bool {
	return g.l.IsClosed()
}

// Release calls Leave if Enter succeeded. Safe to call more than once.
func (g *ScopedIOLock) Release() {
	if g.entered {
		g.entered = false
		g.l.Leave()
	}
}

// Do runs fn as a guarded operation.
//
// Returns ErrClosed without calling fn if the lock is closed. If the lock
// was closed while fn ran and fn failed, the error wraps both ErrClosed
// and fn's error, so a read aborted by Close is told apart from a genuine
// I/O failure.
func (l *IOLock) Do(fn func() error) error {
	g := l.Scoped()
	defer g.Release()
	if !g.Entered() {
		return ErrClosed
	}
	err := fn()
	if err != nil && g.IsClosed() {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
