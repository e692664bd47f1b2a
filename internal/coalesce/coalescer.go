// Package coalesce deduplicates concurrent asynchronous work by key: for a
// given key at most one unit of work is in flight, and every caller that
// arrives during the flight receives the same result.
//
// This is not a cache. Once a flight completes its entry is cleared, and a
// later call for the same key runs the work again.
package coalesce

import (
	"context"
	"sync"
)

type flight[V any] struct {
	done    chan struct{}
	value   V
	err     error
	waiters int
	cancel  context.CancelFunc
}

// Coalescer fans a single in-flight result out to all concurrent callers of
// the same key. Safe for concurrent use. The zero value is not usable; use
// New.
type Coalescer[K comparable, V any] struct {
	mu      sync.Mutex
	flights map[K]*flight[V]
}

// New creates an empty coalescer.
func New[K comparable, V any]() *Coalescer[K, V] {
	return &Coalescer[K, V]{flights: make(map[K]*flight[V])}
}

// Do returns the result of work for the key. If a flight for the key is
// already running, the caller waits for it instead of starting another; the
// work function is invoked at most once per flight.
//
// The work runs detached from any single caller's context: a caller whose
// ctx is cancelled stops waiting and gets ctx.Err(), but the work itself is
// only cancelled when the last remaining waiter has gone.
func (c *Coalescer[K, V]) Do(ctx context.Context, key K, work func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	if f, ok := c.flights[key]; ok {
		f.waiters++
		c.mu.Unlock()
		return c.wait(ctx, key, f)
	}

	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight[V]{
		done:    make(chan struct{}),
		waiters: 1,
		cancel:  cancel,
	}
	c.flights[key] = f
	c.mu.Unlock()

	go func() {
		value, err := work(workCtx)

		c.mu.Lock()
		f.value, f.err = value, err
		// Clear the entry before resuming waiters so that a call arriving
		// after completion starts a fresh flight. Guard against the entry
		// having been replaced after an all-waiters cancellation.
		if current, ok := c.flights[key]; ok && current == f {
			delete(c.flights, key)
		}
		c.mu.Unlock()

		close(f.done)
		cancel()
	}()

	return c.wait(ctx, key, f)
}

// InFlight reports the number of keys with work currently in flight.
func (c *Coalescer[K, V]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.flights)
}

func (c *Coalescer[K, V]) wait(ctx context.Context, key K, f *flight[V]) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		c.mu.Lock()
		f.waiters--
		if f.waiters == 0 {
			select {
			case <-f.done:
				// Work finished between the caller's cancellation and
				// acquiring the lock; nothing to tear down.
			default:
				f.cancel()
				if current, ok := c.flights[key]; ok && current == f {
					delete(c.flights, key)
				}
			}
		}
		c.mu.Unlock()

		var zero V
		return zero, ctx.Err()
	}
}
