// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package park

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/semaphore"
)

// Sema is a counting semaphore built on a weighted semaphore.
//
// The weighted semaphore starts fully held; Post releases one unit and
// Wait acquires one, so the free weight is the permit count.
type Sema struct {
	w *semaphore.Weighted
}

// NewSema returns a semaphore holding no permits.
func NewSema() *Sema {
	w := semaphore.NewWeighted(math.MaxInt64)
	w.TryAcquire(math.MaxInt64)
	return &Sema{w: w}
}

// TryWait takes one permit if available without sleeping.
func (s *Sema) TryWait() bool {
	return s.w.TryAcquire(1)
}

// Wait takes one permit, sleeping for at most timeout (negative means no
// bound).
func (s *Sema) Wait(timeout time.Duration) error {
	if timeout == 0 {
		if s.TryWait() {
			return nil
		}
		return ErrTimedOut
	}
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.w.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimedOut
		}
		return fmt.Errorf("park: semaphore wait: %w", err)
	}
	return nil
}

// Post adds one permit and wakes one sleeper.
func (s *Sema) Post() error {
	s.w.Release(1)
	return nil
}
