// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/studyhall-tui/internal/store"
)

type counterList struct {
	Values []int
}

func (c *counterList) CloneValue() any {
	out := &counterList{Values: make([]int, len(c.Values))}
	copy(out.Values, c.Values)
	return out
}

func TestMutateSuccess(t *testing.T) {
	cache := store.New()
	cache.Write("k", &counterList{Values: []int{1, 2}})
	coord := NewCoordinator(cache)

	err := coord.Mutate(context.Background(), "k",
		func(old any) any {
			next := old.(*counterList).CloneValue().(*counterList)
			next.Values[0] = 99
			return next
		},
		func(ctx context.Context) error { return nil },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, _ := cache.Read("k")
	if got := v.(*counterList).Values[0]; got != 99 {
		t.Errorf("applied value not kept after success: %d", got)
	}
}

func TestMutateRollbackRestoresSnapshot(t *testing.T) {
	cache := store.New()
	cache.Write("k", &counterList{Values: []int{1, 2, 3}})
	coord := NewCoordinator(cache)

	callErr := errors.New("server said no")
	err := coord.Mutate(context.Background(), "k",
		func(old any) any {
			// Mutate the old value in place and return it, worst case for
			// rollback fidelity.
			cl := old.(*counterList)
			cl.Values[1] = -1
			return cl
		},
		func(ctx context.Context) error { return callErr },
	)
	if !errors.Is(err, callErr) {
		t.Fatalf("expected call error, got %v", err)
	}

	v, ok := cache.Read("k")
	if !ok {
		t.Fatal("value missing after rollback")
	}
	got := v.(*counterList).Values
	want := []int{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rollback mismatch: got %v, want %v", got, want)
		}
	}
}

func TestMutateRollbackInvalidatesWhenAbsent(t *testing.T) {
	cache := store.New()
	coord := NewCoordinator(cache)

	err := coord.Mutate(context.Background(), "k",
		func(old any) any {
			if old != nil {
				t.Errorf("expected nil old value, got %v", old)
			}
			return &counterList{Values: []int{7}}
		},
		func(ctx context.Context) error { return errors.New("boom") },
	)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := cache.Read("k"); ok {
		t.Error("key should be absent after rollback of an uncached mutation")
	}
}

// Mutations on the same key run one at a time, in arrival order, so a slow
// failing mutation cannot roll back over a later one's write.
func TestMutateSerializesPerKey(t *testing.T) {
	cache := store.New()
	cache.Write("k", &counterList{Values: []int{0}})
	coord := NewCoordinator(cache)

	var mu sync.Mutex
	var order []string

	firstInCall := make(chan struct{})
	releaseFirst := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		_ = coord.Mutate(context.Background(), "k",
			func(old any) any { return old },
			func(ctx context.Context) error {
				close(firstInCall)
				<-releaseFirst
				mu.Lock()
				order = append(order, "first")
				mu.Unlock()
				return errors.New("fail after delay")
			},
		)
	}()

	<-firstInCall
	go func() {
		defer wg.Done()
		_ = coord.Mutate(context.Background(), "k",
			func(old any) any { return old },
			func(ctx context.Context) error {
				mu.Lock()
				order = append(order, "second")
				mu.Unlock()
				return nil
			},
		)
	}()

	// Give the second mutation a chance to run early if serialization were
	// broken.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	ran := len(order)
	mu.Unlock()
	if ran != 0 {
		t.Fatal("second mutation ran while first held the key")
	}

	close(releaseFirst)
	wg.Wait()

	if order[0] != "first" || order[1] != "second" {
		t.Errorf("mutations out of order: %v", order)
	}
}

// Mutations on different keys do not block each other.
func TestMutateIndependentKeys(t *testing.T) {
	cache := store.New()
	coord := NewCoordinator(cache)

	blockA := make(chan struct{})
	aStarted := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = coord.Mutate(context.Background(), "a",
			func(old any) any { return 1 },
			func(ctx context.Context) error {
				close(aStarted)
				<-blockA
				return nil
			},
		)
	}()
	<-aStarted

	go func() {
		_ = coord.Mutate(context.Background(), "b",
			func(old any) any { return 2 },
			func(ctx context.Context) error { return nil },
		)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutation on independent key blocked")
	}
	close(blockA)
}

func TestMutateQueueIsFIFO(t *testing.T) {
	cache := store.New()
	coord := NewCoordinator(cache)

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = coord.Mutate(context.Background(), "k",
			func(old any) any { return old },
			func(ctx context.Context) error {
				close(started)
				<-block
				return nil
			},
		)
	}()
	<-started

	const n = 8
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = coord.Mutate(context.Background(), "k",
				func(old any) any { return old },
				func(ctx context.Context) error {
					mu.Lock()
					order = append(order, i)
					mu.Unlock()
					return nil
				},
			)
		}(i)
		// Stagger arrivals so the queue order is deterministic.
		time.Sleep(10 * time.Millisecond)
	}

	close(block)
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("queue not FIFO: %v", order)
		}
	}
}

func TestMutateContextCancelledWhileQueued(t *testing.T) {
	cache := store.New()
	coord := NewCoordinator(cache)

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = coord.Mutate(context.Background(), "k",
			func(old any) any { return old },
			func(ctx context.Context) error {
				close(started)
				<-block
				return nil
			},
		)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- coord.Mutate(ctx, "k",
			func(old any) any { return old },
			func(ctx context.Context) error {
				t.Error("cancelled mutation should not run")
				return nil
			},
		)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter never returned")
	}

	// The key must still be usable after the waiter abandoned its slot.
	close(block)
	err := coord.Mutate(context.Background(), "k",
		func(old any) any { return old },
		func(ctx context.Context) error { return nil },
	)
	if err != nil {
		t.Fatalf("key unusable after cancelled waiter: %v", err)
	}
}

func TestMutateConcurrentStress(t *testing.T) {
	cache := store.New()
	cache.Write("k", &counterList{Values: []int{0}})
	coord := NewCoordinator(cache)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = coord.Mutate(context.Background(), key,
				func(old any) any {
					if old == nil {
						return &counterList{Values: []int{1}}
					}
					next := old.(*counterList).CloneValue().(*counterList)
					next.Values[0]++
					return next
				},
				func(ctx context.Context) error {
					if i%7 == 0 {
						return errors.New("intermittent")
					}
					return nil
				},
			)
		}(i)
	}
	wg.Wait()
}
