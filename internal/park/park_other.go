// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package park

import (
	"sync/atomic"
	"time"
)

// Wait naps for a short interval unless *addr already differs from val.
// Without a futex there is no wake-up channel; callers poll.
func Wait(addr *uint32, val uint32, timeout time.Duration) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	if timeout == 0 {
		return ErrTimedOut
	}
	Nap(timeout)
	return nil
}

// Wake is a no-op: waiters observe the word on their next poll.
func Wake(addr *uint32) error {
	return nil
}
