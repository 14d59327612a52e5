// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"
	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"code.hybscloud.com/lfsync"
)

// ErrViolation is returned when a scenario observes a broken guarantee.
var ErrViolation = errors.New("stress: invariant violated")

// pollInterval bounds semaphore waits so goroutines notice cancellation.
const pollInterval = time.Millisecond

// Scenario is one named workload.
type Scenario struct {
	Name        string
	Description string
	run         func(ctx context.Context, cfg Config, logger zerolog.Logger) (int64, error)
}

var scenarios = []Scenario{
	{"spsc", "SPSC producer/consumer round trip with strict FIFO check", spscRoundTrip},
	{"mpsc", "MPSC fan-in with semaphore-blocked consumer and per-producer order check", mpscFanIn},
	{"sema", "Semaphore ping-pong between two goroutines", semaphorePingPong},
	{"iolock", "IOLock close racing a worker blocked in a read", ioLockCloseRace},
}

// Scenarios returns every scenario in run order.
func Scenarios() []Scenario {
	return append([]Scenario(nil), scenarios...)
}

// Names returns the scenario names in run order.
func Names() []string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	return names
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// jitter yields the processor now and then to shake up interleavings.
func jitter() {
	if fastrand.Uint32n(64) == 0 {
		runtime.Gosched()
	}
}

// newLimiter returns nil when perSec is zero.
func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

// spscRoundTrip streams sequence numbers through an SPSC until ctx ends.
// Ops is the number of elements delivered.
func spscRoundTrip(ctx context.Context, cfg Config, _ zerolog.Logger) (int64, error) {
	q := lfsync.NewSPSC[uint64](cfg.Capacity)
	var produced atomix.Uint64
	var done atomix.Bool

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer done.Store(true)
		backoff := iox.Backoff{}
		var next uint64
		for ctx.Err() == nil {
			if !q.TryPush(next) {
				backoff.Wait()
				continue
			}
			backoff.Reset()
			next++
			produced.Store(next)
			jitter()
		}
		return nil
	})

	var consumed uint64
	g.Go(func() error {
		backoff := iox.Backoff{}
		var v uint64
		for {
			finished := done.Load()
			if q.TryPop(&v) {
				if v != consumed {
					return fmt.Errorf("%w: spsc delivered %d, want %d", ErrViolation, v, consumed)
				}
				consumed++
				backoff.Reset()
				continue
			}
			if finished {
				return nil
			}
			backoff.Wait()
		}
	})

	if err := g.Wait(); err != nil {
		return int64(consumed), err
	}
	if consumed != produced.Load() {
		return int64(consumed), fmt.Errorf("%w: spsc delivered %d of %d", ErrViolation, consumed, produced.Load())
	}
	return int64(consumed), nil
}

// mpscFanIn runs cfg.Producers producers into one MPSC. The consumer blocks
// on a semaphore signaled once per push. Ops is the number of elements
// delivered.
func mpscFanIn(ctx context.Context, cfg Config, logger zerolog.Logger) (int64, error) {
	q := lfsync.NewMPSC[uint64](cfg.Capacity)
	sem := lfsync.NewSemaphore(0, lfsync.WithMaxSpins(cfg.Spins), lfsync.WithLogger(logger))

	var pushed atomix.Int64
	var running atomix.Int32
	running.Add(int32(cfg.Producers))

	g, ctx := errgroup.WithContext(ctx)
	for id := range cfg.Producers {
		g.Go(func() error {
			defer running.Add(-1)
			limiter := newLimiter(cfg.Rate)
			backoff := iox.Backoff{}
			var seq uint64
			for ctx.Err() == nil {
				if limiter != nil && limiter.Wait(ctx) != nil {
					return nil
				}
				if !q.TryPush(uint64(id)<<32 | seq) {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seq++
				pushed.Add(1)
				sem.Signal(1)
				jitter()
			}
			return nil
		})
	}

	var popped int64
	g.Go(func() error {
		next := make([]uint64, cfg.Producers)
		var v uint64
		for {
			stopped := running.Load() == 0
			err := sem.WaitTimeout(pollInterval)
			if err != nil {
				if !lfsync.IsTimedOut(err) {
					return err
				}
				if stopped {
					return nil
				}
				continue
			}
			// The permit was signaled after a completed push.
			for !q.TryPop(&v) {
				runtime.Gosched()
			}
			id, seq := v>>32, v&(1<<32-1)
			if seq != next[id] {
				return fmt.Errorf("%w: producer %d delivered seq %d, want %d", ErrViolation, id, seq, next[id])
			}
			next[id]++
			popped++
		}
	})

	if err := g.Wait(); err != nil {
		return popped, err
	}
	if popped != pushed.Load() {
		return popped, fmt.Errorf("%w: mpsc delivered %d of %d", ErrViolation, popped, pushed.Load())
	}
	return popped, nil
}

// semaphorePingPong bounces a permit between two semaphores. Ops is the
// number of completed round trips.
func semaphorePingPong(ctx context.Context, cfg Config, logger zerolog.Logger) (int64, error) {
	opts := []lfsync.SemaphoreOption{lfsync.WithMaxSpins(cfg.Spins), lfsync.WithLogger(logger)}
	ping := lfsync.NewSemaphore(0, opts...)
	pong := lfsync.NewSemaphore(0, opts...)

	// await takes one permit from s, or reports false once ctx is done.
	await := func(ctx context.Context, s *lfsync.Semaphore) (bool, error) {
		for {
			err := s.WaitTimeout(pollInterval)
			if err == nil {
				return true, nil
			}
			if !lfsync.IsTimedOut(err) {
				return false, err
			}
			if ctx.Err() != nil {
				return false, nil
			}
		}
	}

	var rounds int64
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			ok, err := await(ctx, ping)
			if !ok {
				return err
			}
			pong.Signal(1)
		}
	})
	g.Go(func() error {
		for ctx.Err() == nil {
			ping.Signal(1)
			ok, err := await(ctx, pong)
			if !ok {
				return err
			}
			rounds++
		}
		return nil
	})

	err := g.Wait()
	return rounds, err
}

// ioLockCloseRace repeatedly closes an IOLock while a worker is reading from
// a pipe under it, and checks that no operation starts after Wait returns.
// Ops is the number of completed close cycles.
func ioLockCloseRace(ctx context.Context, _ Config, _ zerolog.Logger) (int64, error) {
	var cycles int64
	for ctx.Err() == nil {
		if err := ioLockCycle(); err != nil {
			return cycles, err
		}
		cycles++
	}
	return cycles, nil
}

func ioLockCycle() error {
	var l lfsync.IOLock
	r, w := io.Pipe()
	defer w.Close()

	var ops atomix.Int64
	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			err := l.Do(func() error {
				ops.Add(1)
				_, err := r.Read(buf)
				return err
			})
			if err != nil {
				if lfsync.IsClosed(err) {
					err = nil
				}
				done <- err
				return
			}
		}
	}()

	// Let the worker complete a random number of reads first
	for range fastrand.Uint32n(4) {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}

	l.MarkClosed()
	_ = r.Close()
	l.Wait()
	frozen := ops.Load()

	if err := <-done; err != nil {
		return fmt.Errorf("iolock worker: %w", err)
	}
	if n := ops.Load(); n != frozen {
		return fmt.Errorf("%w: %d operations entered after close", ErrViolation, n-frozen)
	}
	return nil
}
