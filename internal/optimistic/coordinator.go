// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package optimistic implements the optimistic mutation recipe used for
// assignment toggles and question votes.
//
// A mutation snapshots the cached value for a key, applies the expected
// result locally so the UI updates immediately, then performs the server
// call. On failure the snapshot is restored and the error surfaces to the
// caller. Mutations against the same key run strictly one at a time, in
// arrival order, so a rollback can never clobber a later mutation's write.
//
// # Key Types
//
//   - Coordinator: serializes mutations per cache key
//   - Store: the cache surface the coordinator reads and writes
//   - Cloner: implemented by cached values that support snapshotting
//
// # Usage
//
//	coord := optimistic.NewCoordinator(cache)
//	err := coord.Mutate(ctx, "questions:cs101",
//	    func(old any) any { return applyVote(old) },
//	    func(ctx context.Context) error { return client.Send(ctx, req, nil) },
//	)
package optimistic

import (
	"context"
	"sync"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Store is the cache surface a Coordinator operates on.
type Store interface {
	Read(key string) (any, bool)
	Write(key string, value any)
	Invalidate(key string)
}

// Cloner is implemented by cached values that can produce a structural copy
// of themselves. Snapshots taken by the coordinator use CloneValue so a
// rollback restores the value as it was, untouched by the applied mutation.
type Cloner interface {
	CloneValue() any
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator runs optimistic mutations against a Store, one at a time per
// key. Mutations on different keys proceed independently.
type Coordinator struct {
	store Store

	mu     sync.Mutex
	queues map[string]*keyQueue
}

// keyQueue is the FIFO wait queue for a single key. held marks the key as
// busy; waiters are woken in arrival order.
type keyQueue struct {
	held    bool
	waiters []chan struct{}
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store:  store,
		queues: make(map[string]*keyQueue),
	}
}

// Mutate runs one optimistic mutation against key.
//
// The sequence is: snapshot the cached value, write apply(old) into the
// cache, run call, and on error restore the snapshot (or invalidate the key
// if no value was cached when the mutation started). The whole sequence
// holds the key's queue slot, so concurrent mutations on the same key are
// serialized in arrival order.
//
// apply receives the current cached value (nil when absent) and returns the
// value to cache. call performs the server request; its error is returned
// unchanged after rollback.
func (c *Coordinator) Mutate(ctx context.Context, key string, apply func(old any) any, call func(ctx context.Context) error) error {
	if err := c.acquire(ctx, key); err != nil {
		return err
	}
	defer c.release(key)

	old, had := c.store.Read(key)

	var snapshot any
	if had {
		snapshot = cloneValue(old)
	}

	c.store.Write(key, apply(old))

	if err := call(ctx); err != nil {
		if had {
			c.store.Write(key, snapshot)
		} else {
			c.store.Invalidate(key)
		}
		return err
	}
	return nil
}

// acquire claims the queue slot for key, waiting in FIFO order behind any
// mutation already running or queued.
func (c *Coordinator) acquire(ctx context.Context, key string) error {
	c.mu.Lock()
	q, ok := c.queues[key]
	if !ok {
		q = &keyQueue{}
		c.queues[key] = q
	}
	if !q.held {
		q.held = true
		c.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	q.waiters = append(q.waiters, ready)
	c.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		c.abandon(key, ready)
		return ctx.Err()
	}
}

// release hands the slot to the oldest waiter, or retires the queue when
// no one is waiting.
func (c *Coordinator) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.queues[key]
	if len(q.waiters) == 0 {
		delete(c.queues, key)
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(next)
}

// abandon removes a cancelled waiter from the queue. If the slot was handed
// to the waiter in the race between cancellation and release, pass it on.
func (c *Coordinator) abandon(key string, ready chan struct{}) {
	c.mu.Lock()
	q, ok := c.queues[key]
	if ok {
		for i, w := range q.waiters {
			if w == ready {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				c.mu.Unlock()
				return
			}
		}
	}
	c.mu.Unlock()

	// Not found in the queue: release already handed us the slot.
	c.release(key)
}

// cloneValue copies v for the rollback snapshot. Values that implement
// Cloner are copied structurally; anything else is assumed to be treated as
// immutable by callers and is kept as-is.
func cloneValue(v any) any {
	if c, ok := v.(Cloner); ok {
		return c.CloneValue()
	}
	return v
}
