// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package shutdown releases process resources (journal handles, trace
// exporters, listeners) once, newest first, when a command finishes or the
// process is interrupted.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dotandev/tzsubmit/internal/logger"
)

type HookFunc func(context.Context) error

type hook struct {
	name string
	fn   HookFunc
}

// Coordinator runs registered hooks exactly once in LIFO order. Hooks
// registered after Run are executed immediately.
type Coordinator struct {
	mu    sync.Mutex
	hooks []hook
	ran   bool
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

func (c *Coordinator) Register(name string, fn HookFunc) {
	if fn == nil {
		return
	}

	c.mu.Lock()
	if !c.ran {
		c.hooks = append(c.hooks, hook{name: name, fn: fn})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := fn(context.Background()); err != nil {
		logger.Logger.Warn("Late shutdown hook failed", "hook", name, "error", err)
	}
}

// RegisterCloser closes cl during shutdown.
func (c *Coordinator) RegisterCloser(name string, cl io.Closer) {
	if cl == nil {
		return
	}
	c.Register(name, func(context.Context) error { return cl.Close() })
}

// Len reports how many hooks are pending.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ran {
		return 0
	}
	return len(c.hooks)
}

// Run executes the hooks, splitting any deadline on ctx evenly among those
// still to run. Errors are joined; every hook runs regardless.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil
	}
	c.ran = true
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]

		hookCtx, cancel := perHookContext(ctx, i+1)
		start := time.Now()
		err := h.fn(hookCtx)
		cancel()
		logger.Logger.Debug("Shutdown hook finished", "hook", h.name, "duration", time.Since(start), "error", err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}

	return errors.Join(errs...)
}

// RunWithTimeout runs the hooks under a fresh deadline, for use after the
// command context has already been cancelled.
func (c *Coordinator) RunWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Run(ctx)
}

func perHookContext(ctx context.Context, remainingHooks int) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok || remainingHooks <= 0 {
		return ctx, func() {}
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return context.WithTimeout(ctx, time.Millisecond)
	}
	return context.WithTimeout(ctx, remaining/time.Duration(remainingHooks))
}
