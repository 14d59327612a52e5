// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package park

import (
	"sync/atomic"
	"time"
)

// Sema is a futex-backed counting semaphore.
//
// The futex word is the count itself: Post increments it and wakes one
// sleeper, Wait decrements it when positive and sleeps on zero.
// A Sema must not be copied after first use.
type Sema struct {
	count uint32
}

// NewSema returns a semaphore holding no permits.
func NewSema() *Sema {
	return &Sema{}
}

// TryWait takes one permit if available without sleeping.
func (s *Sema) TryWait() bool {
	for {
		c := atomic.LoadUint32(&s.count)
		if c == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&s.count, c, c-1) {
			return true
		}
	}
}

// Wait takes one permit, sleeping for at most timeout (negative means no
// bound). Returns ErrTimedOut, ErrInterrupted, or a fatal kernel error
// when no permit was taken.
func (s *Sema) Wait(timeout time.Duration) error {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if s.TryWait() {
			return nil
		}
		remaining := time.Duration(-1)
		if timeout >= 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return ErrTimedOut
			}
		}
		if err := futexWait(&s.count, 0, remaining); err != nil && err != ErrTimedOut {
			return err
		}
	}
}

// Post adds one permit and wakes one sleeper. The permit is counted even
// when the wake-up fails, so only fatal errors are returned; a caller must
// not retry Post on error.
func (s *Sema) Post() error {
	atomic.AddUint32(&s.count, 1)
	for {
		err := futexWake(&s.count, 1)
		if !IsTransient(err) {
			return err
		}
	}
}
