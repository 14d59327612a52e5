// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import (
	"errors"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
	"github.com/rs/zerolog"

	"code.hybscloud.com/lfsync/internal/park"
)

// DefaultMaxSpins is the spin budget used when WithMaxSpins is not given.
const DefaultMaxSpins = 10000

// Semaphore is a counting semaphore with a lock-free fast path.
//
// A positive count is the number of available permits. A negative count
// is the number of waiters that committed to sleeping on the kernel
// semaphore. Acquisition first tries a CAS on the count, then spins up to
// the configured budget, and only then decrements unconditionally and
// parks. Signal posts to the kernel only as many times as there are
// committed waiters, so the uncontended path never enters the kernel.
//
// A Semaphore is safe for any number of waiters and signalers.
// A Semaphore must not be copied after first use.
type Semaphore struct {
	_        pad
	count    atomix.Int64
	_        pad
	kernel   kernelSema
	maxSpins int
	logger   zerolog.Logger
}

// kernelSema is the blocking fallback. park.Sema implements it.
type kernelSema interface {
	Wait(timeout time.Duration) error
	TryWait() bool
	Post() error
}

// SemaphoreOption configures a Semaphore.
type SemaphoreOption func(*Semaphore)

// WithMaxSpins sets how many fast-path retries a blocking wait makes
// before parking. Zero parks immediately. Panics if n < 0.
func WithMaxSpins(n int) SemaphoreOption {
	if n < 0 {
		panic("lfsync: max spins must be >= 0")
	}
	return func(s *Semaphore) {
		s.maxSpins = n
	}
}

// WithLogger sets the logger for kernel-level failures on the slow path.
// The default discards everything.
func WithLogger(logger zerolog.Logger) SemaphoreOption {
	return func(s *Semaphore) {
		s.logger = logger
	}
}

// withKernel replaces the kernel semaphore (for testing).
func withKernel(k kernelSema) SemaphoreOption {
	return func(s *Semaphore) {
		s.kernel = k
	}
}

// NewSemaphore creates a semaphore holding initial permits.
// Panics if initial < 0.
func NewSemaphore(initial int64, opts ...SemaphoreOption) *Semaphore {
	if initial < 0 {
		panic("lfsync: initial count must be >= 0")
	}
	s := &Semaphore{
		maxSpins: DefaultMaxSpins,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.kernel == nil {
		// The kernel side starts empty: initial permits live in count only.
		s.kernel = park.NewSema()
	}
	s.count.StoreRelaxed(initial)
	return s
}

// TryWait takes one permit if one is available. Never enters the kernel.
func (s *Semaphore) TryWait() bool {
	old := s.count.LoadRelaxed()
	for old > 0 {
		if s.count.CompareAndSwapAcqRel(old, old-1) {
			return true
		}
		old = s.count.LoadRelaxed()
	}
	return false
}

// Wait blocks until a permit is taken.
//
// The returned error is non-nil only when the kernel semaphore failed
// persistently; the count is restored before returning it.
func (s *Semaphore) Wait() error {
	if s.TryWait() {
		return nil
	}
	return s.waitSlow(-1)
}

// WaitTimeout blocks for at most timeout until a permit is taken.
// Returns ErrTimedOut if none arrived in time. A timeout <= 0 spins but
// does not sleep.
func (s *Semaphore) WaitTimeout(timeout time.Duration) error {
	if s.TryWait() {
		return nil
	}
	return s.waitSlow(max(timeout, 0))
}

func (s *Semaphore) waitSlow(timeout time.Duration) error {
	for spins := s.maxSpins; spins > 0; spins-- {
		old := s.count.LoadRelaxed()
		if old > 0 && s.count.CompareAndSwapAcqRel(old, old-1) {
			return nil
		}
	}
	if s.count.AddAcqRel(-1) >= 0 {
		return nil
	}
	if err := s.park(timeout); err != nil {
		return s.abandon(err)
	}
	return nil
}

// TryWaitMany takes between 0 and limit permits, as many as are available.
// Never enters the kernel.
func (s *Semaphore) TryWaitMany(limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	old := s.count.LoadRelaxed()
	for old > 0 {
		next := old - min(old, limit)
		if s.count.CompareAndSwapAcqRel(old, next) {
			return old - next
		}
		old = s.count.LoadRelaxed()
	}
	return 0
}

// WaitMany blocks until at least one permit is taken and returns how many
// (at most limit) were taken. Returns (0, nil) when limit <= 0.
func (s *Semaphore) WaitMany(limit int64) (int64, error) {
	return s.waitMany(limit, -1)
}

// WaitManyTimeout is WaitMany bounded by timeout. Returns (0, ErrTimedOut)
// if no permit arrived in time.
func (s *Semaphore) WaitManyTimeout(limit int64, timeout time.Duration) (int64, error) {
	return s.waitMany(limit, max(timeout, 0))
}

func (s *Semaphore) waitMany(limit int64, timeout time.Duration) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	if n := s.TryWaitMany(limit); n > 0 {
		return n, nil
	}
	for spins := s.maxSpins; spins > 0; spins-- {
		old := s.count.LoadRelaxed()
		if old > 0 {
			next := old - min(old, limit)
			if s.count.CompareAndSwapAcqRel(old, next) {
				return old - next, nil
			}
		}
	}
	if s.count.AddAcqRel(-1) < 0 {
		if err := s.park(timeout); err != nil {
			if err = s.abandon(err); err != nil {
				return 0, err
			}
		}
	}
	// One permit is ours; top up without blocking.
	return 1 + s.TryWaitMany(limit-1), nil
}

// park sleeps on the kernel semaphore after the caller committed as a
// waiter. Transient kernel failures are retried until the deadline.
// A negative timeout sleeps without bound.
func (s *Semaphore) park(timeout time.Duration) error {
	if timeout == 0 {
		return ErrTimedOut
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		remaining := time.Duration(-1)
		if timeout > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return ErrTimedOut
			}
		}
		err := s.kernel.Wait(remaining)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, park.ErrTimedOut):
			return ErrTimedOut
		case park.IsTransient(err):
			s.logger.Debug().Err(err).Msg("lfsync: semaphore wait interrupted, retrying")
		default:
			s.logger.Error().Err(err).Msg("lfsync: semaphore wait failed")
			return err
		}
	}
}

// abandon withdraws a committed waiter whose park failed with err.
//
// A non-negative count means a Signal already counted this waiter and
// owes it a kernel post; the post is consumed and the wait succeeds.
// Otherwise the waiter's decrement is undone and err is returned.
func (s *Semaphore) abandon(err error) error {
	sw := spin.Wait{}
	for {
		old := s.count.LoadAcquire()
		if old >= 0 && s.kernel.TryWait() {
			return nil
		}
		if old < 0 && s.count.CompareAndSwapRelaxed(old, old+1) {
			return err
		}
		sw.Once()
	}
}

// Signal adds n permits and wakes up to n parked waiters.
// Panics if n < 0.
func (s *Semaphore) Signal(n int64) {
	if n < 0 {
		panic("lfsync: signal count must be >= 0")
	}
	if n == 0 {
		return
	}
	old := s.count.AddAcqRel(n) - n
	for release := min(-old, n); release > 0; release-- {
		s.post()
	}
}

// post delivers one wake-up that Signal already counted. It retries until
// the kernel accepts it: giving up would strand a parked waiter.
func (s *Semaphore) post() {
	backoff := iox.Backoff{}
	for {
		err := s.kernel.Post()
		if err == nil {
			return
		}
		if !park.IsTransient(err) {
			s.logger.Error().Err(err).Msg("lfsync: semaphore post failed, retrying")
			backoff.Wait()
			continue
		}
		s.logger.Debug().Err(err).Msg("lfsync: semaphore post interrupted, retrying")
	}
}

// Available returns the number of free permits, or 0 while waiters are
// parked. Approximate under concurrency.
func (s *Semaphore) Available() int64 {
	return max(s.count.LoadRelaxed(), 0)
}
