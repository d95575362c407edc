// Copyright 2026 Franklin "Snaipe" Mathieu.
//
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package transport

import (
	"context"
	"sync"
)

// cond is like sync.Cond, but Wait takes a context so a blocked host
// loop can be unblocked by cancellation rather than only by Signal or
// Broadcast.
//
// Grounded in the teacher's cond (sync.go), unchanged.
type cond struct {
	L    sync.Locker
	wake chan struct{}
}

func makeCond(l sync.Locker) cond {
	return cond{L: l, wake: make(chan struct{})}
}

// Broadcast wakes every goroutine currently blocked in Wait.
func (c *cond) Broadcast() {
	close(c.wake)
	c.wake = make(chan struct{})
}

// Signal wakes at least one goroutine currently blocked in Wait.
// Because wake is a closed-channel broadcast under the hood, Signal and
// Broadcast behave identically here; Signal exists to document intent
// at call sites.
func (c *cond) Signal() {
	c.Broadcast()
}

// Wait releases L, blocks until Signal, Broadcast, or ctx is done, then
// reacquires L before returning.
func (c *cond) Wait(ctx context.Context) error {
	wake := c.wake
	c.L.Unlock()
	defer c.L.Lock()

	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
