// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/valyala/fastrand"

	"code.hybscloud.com/lfsync"
)

// =============================================================================
// Test Helpers
// =============================================================================

// retryWithTimeout retries f until it returns true or timeout expires.
// Reports failure with the given message if timeout is reached.
func retryWithTimeout(t *testing.T, timeout time.Duration, f func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s", timeout, msg)
		}
		backoff.Wait()
	}
}

// waitForCount waits until counter reaches target or timeout expires.
func waitForCount(t *testing.T, timeout time.Duration, counter *atomix.Int64, target int64, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for counter.Load() < target {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s (got %d, want %d)", timeout, msg, counter.Load(), target)
		}
		backoff.Wait()
	}
}

// =============================================================================
// FIFO Ordering Tests
// =============================================================================

// TestSPSCFIFOOrdering verifies strict FIFO ordering for SPSC queues.
func TestSPSCFIFOOrdering(t *testing.T) {
	if lfsync.RaceEnabled {
		t.Skip("skip: SPSC uses cross-variable memory ordering not understood by race detector")
	}

	q := lfsync.NewSPSC[int](64)
	const n = 20000

	var wg sync.WaitGroup
	results := make([]int, 0, n)
	var timedOut atomix.Bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		deadline := time.Now().Add(5 * time.Second)
		backoff := iox.Backoff{}
		var v int
		for len(results) < n {
			if time.Now().After(deadline) {
				timedOut.Store(true)
				return
			}
			if q.TryPop(&v) {
				results = append(results, v)
				backoff.Reset()
			} else {
				backoff.Wait()
			}
		}
	}()

	// Producer (in main goroutine for SPSC)
	for i := range n {
		retryWithTimeout(t, 3*time.Second, func() bool {
			return q.TryPush(i)
		}, fmt.Sprintf("producer: push item %d", i))
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("consumer timeout: consumed %d/%d", len(results), n)
	}
	for i := range n {
		if results[i] != i {
			t.Fatalf("FIFO violation at %d: got %d, want %d", i, results[i], i)
		}
	}
	if !q.Empty() {
		t.Fatalf("queue not empty after drain: Len=%d", q.Len())
	}
}

// TestSPSCSmallestRing runs a capacity-1 queue (one usable slot) through a
// producer/consumer pair, so every push waits on the previous pop.
func TestSPSCSmallestRing(t *testing.T) {
	if lfsync.RaceEnabled {
		t.Skip("skip: SPSC uses cross-variable memory ordering not understood by race detector")
	}

	q := lfsync.NewSPSC[int](1)
	const n = 5000

	var wg sync.WaitGroup
	var sum atomix.Int64
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		var v int
		for want := range n {
			for !q.TryPop(&v) {
				backoff.Wait()
			}
			backoff.Reset()
			if v != want {
				t.Errorf("pop %d: got %d", want, v)
				return
			}
			sum.Add(int64(v))
		}
	}()

	for i := range n {
		retryWithTimeout(t, 3*time.Second, func() bool {
			return q.TryPush(i)
		}, fmt.Sprintf("producer: push item %d", i))
		if q.Len() > 1 {
			t.Fatalf("Len: got %d with one usable slot", q.Len())
		}
	}
	wg.Wait()

	if want := int64(n * (n - 1) / 2); sum.Load() != want {
		t.Fatalf("sum: got %d, want %d", sum.Load(), want)
	}
}

// TestMPSCFIFOOrderingPerProducer verifies FIFO ordering per producer in MPSC.
// Each producer's items should maintain relative order.
func TestMPSCFIFOOrderingPerProducer(t *testing.T) {
	if lfsync.RaceEnabled {
		t.Skip("skip: FIFO test requires precise timing")
	}

	q := lfsync.NewMPSC[int](256)
	const (
		numProducers = 4
		itemsPerProd = 5000
	)

	var wg sync.WaitGroup

	// Item format: producerID * 100000 + sequence
	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			deadline := time.Now().Add(5 * time.Second)
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				for !q.TryPush(id*100000 + i) {
					if time.Now().After(deadline) {
						return // Let test detect via count mismatch
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	// Single consumer in the test goroutine
	results := make([][]int, numProducers)
	collected := 0
	deadline := time.Now().Add(5 * time.Second)
	backoff := iox.Backoff{}
	var v int
	for collected < numProducers*itemsPerProd {
		if time.Now().After(deadline) {
			break
		}
		if q.TryPop(&v) {
			results[v/100000] = append(results[v/100000], v%100000)
			collected++
			backoff.Reset()
		} else {
			backoff.Wait()
		}
	}
	wg.Wait()

	if collected != numProducers*itemsPerProd {
		t.Fatalf("consumer timeout: collected %d/%d", collected, numProducers*itemsPerProd)
	}
	for p, seqs := range results {
		if len(seqs) != itemsPerProd {
			t.Errorf("Producer %d: got %d items, want %d", p, len(seqs), itemsPerProd)
			continue
		}
		for i := range seqs {
			if seqs[i] != i {
				t.Errorf("Producer %d: FIFO violation at index %d: got %d", p, i, seqs[i])
				break
			}
		}
	}
}

// =============================================================================
// Exactly-Once Delivery
// =============================================================================

// TestMPSCExactlyOnce checks that under heavy producer contention on a small
// ring every pushed value is popped exactly once and nothing is invented.
func TestMPSCExactlyOnce(t *testing.T) {
	if lfsync.RaceEnabled {
		t.Skip("skip: exactly-once test requires concurrent access")
	}

	q := lfsync.NewMPSC[int](8)
	const (
		numProducers = 8
		itemsPerProd = 2000
		total        = numProducers * itemsPerProd
	)

	var wg sync.WaitGroup
	var pushed atomix.Int64
	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				// Mix copy and in-place construction
				push := func() bool { return q.TryPush(v) }
				if i%2 == 1 {
					push = func() bool { return q.Emplace(func(slot *int) { *slot = v }) }
				}
				for !push() {
					backoff.Wait()
				}
				backoff.Reset()
				pushed.Add(1)
			}
		}(p)
	}

	seen := make([]int32, total)
	deadline := time.Now().Add(10 * time.Second)
	backoff := iox.Backoff{}
	var v int
	for got := 0; got < total; {
		if time.Now().After(deadline) {
			t.Fatalf("consumer timeout: popped %d/%d (pushed %d)", got, total, pushed.Load())
		}
		if !q.TryPop(&v) {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if v < 0 || v >= total {
			t.Fatalf("popped value %d was never pushed", v)
		}
		seen[v]++
		got++
	}
	wg.Wait()

	for i, n := range seen {
		if n != 1 {
			t.Fatalf("value %d popped %d times, want 1", i, n)
		}
	}
	if q.TryPop(&v) {
		t.Fatalf("extra value %d after all pushes were consumed", v)
	}
	waitForCount(t, time.Second, &pushed, total, "producers finished")
}

// TestRandomInterleaving drives both queues with a random mix of pushes and
// pops from a single goroutine and checks them against a reference slice.
func TestRandomInterleaving(t *testing.T) {
	tests := []struct {
		name   string
		q      lfsync.Queue[int]
		usable int
	}{
		{"SPSC", lfsync.NewSPSC[int](16), 15},
		{"MPSC", lfsync.NewMPSC[int](16), 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rng fastrand.RNG
			var model []int
			next := 0
			for step := range 100000 {
				if rng.Uint32n(2) == 0 {
					v := next
					err := tt.q.Enqueue(&v)
					if len(model) == tt.usable {
						if !lfsync.IsWouldBlock(err) {
							t.Fatalf("step %d: Enqueue on full: got %v", step, err)
						}
						continue
					}
					if err != nil {
						t.Fatalf("step %d: Enqueue: %v", step, err)
					}
					model = append(model, v)
					next++
				} else {
					v, err := tt.q.Dequeue()
					if len(model) == 0 {
						if !lfsync.IsWouldBlock(err) {
							t.Fatalf("step %d: Dequeue on empty: got (%d, %v)", step, v, err)
						}
						continue
					}
					if err != nil || v != model[0] {
						t.Fatalf("step %d: Dequeue: got (%d, %v), want %d", step, v, err, model[0])
					}
					model = model[1:]
				}
				if tt.q.Len() != len(model) {
					t.Fatalf("step %d: Len: got %d, want %d", step, tt.q.Len(), len(model))
				}
			}
		})
	}
}
