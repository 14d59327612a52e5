// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package park

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	if !IsTransient(ErrInterrupted) {
		t.Fatalf("IsTransient(ErrInterrupted): got false")
	}
	if !IsTransient(fmt.Errorf("futex: %w", ErrInterrupted)) {
		t.Fatalf("IsTransient(wrapped ErrInterrupted): got false")
	}
	if IsTransient(ErrTimedOut) || IsTransient(nil) || IsTransient(errors.New("x")) {
		t.Fatalf("IsTransient: true for a non-transient error")
	}
}

func TestNap(t *testing.T) {
	start := time.Now()
	Nap(0)
	if d := time.Since(start); d > time.Second {
		t.Fatalf("Nap(0) slept %v", d)
	}
	start = time.Now()
	Nap(-1)
	if d := time.Since(start); d < NapInterval {
		t.Fatalf("Nap(-1) slept %v, want >= %v", d, NapInterval)
	}
}

// =============================================================================
// Wait / Wake
// =============================================================================

func TestWaitChangedWord(t *testing.T) {
	var word uint32
	if err := Wait(&word, 1, -1); err != nil {
		t.Fatalf("Wait on a changed word: %v", err)
	}
}

// TestWaitWake parks a goroutine on a word and releases it by changing the
// word and waking.
func TestWaitWake(t *testing.T) {
	word := uint32(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for atomic.LoadUint32(&word) == 1 {
			if err := Wait(&word, 1, -1); err != nil && !IsTransient(err) {
				t.Errorf("Wait: %v", err)
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	atomic.StoreUint32(&word, 0)
	if err := Wake(&word); err != nil {
		t.Fatalf("Wake: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("waiter not released")
	}
}

func TestWaitZeroTimeout(t *testing.T) {
	word := uint32(1)
	for {
		err := Wait(&word, 1, 0)
		if errors.Is(err, ErrTimedOut) {
			return
		}
		if err != nil && !IsTransient(err) {
			t.Fatalf("Wait(timeout=0): %v", err)
		}
	}
}

// =============================================================================
// Sema
// =============================================================================

func TestSemaTryWait(t *testing.T) {
	s := NewSema()
	if s.TryWait() {
		t.Fatalf("TryWait on a new Sema: got true")
	}
	for range 3 {
		if err := s.Post(); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	for i := range 3 {
		if !s.TryWait() {
			t.Fatalf("TryWait(%d): got false", i)
		}
	}
	if s.TryWait() {
		t.Fatalf("TryWait past posted permits: got true")
	}
}

func TestSemaWaitTimeout(t *testing.T) {
	s := NewSema()
	const timeout = 20 * time.Millisecond

	if err := s.Wait(0); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("Wait(0): got %v, want ErrTimedOut", err)
	}

	start := time.Now()
	var err error
	for {
		remaining := timeout - time.Since(start)
		err = s.Wait(max(remaining, 0))
		if !IsTransient(err) {
			break
		}
	}
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("Wait(%v): got %v, want ErrTimedOut", timeout, err)
	}
	if d := time.Since(start); d < timeout {
		t.Fatalf("Wait(%v) returned after %v", timeout, d)
	}
}

func TestSemaWakesSleeper(t *testing.T) {
	s := NewSema()
	done := make(chan error, 1)
	go func() {
		for {
			err := s.Wait(-1)
			if !IsTransient(err) {
				done <- err
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	if err := s.Post(); err != nil {
		t.Fatalf("Post: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("sleeper not woken by Post")
	}
	if s.TryWait() {
		t.Fatalf("permit consumed twice")
	}
}
