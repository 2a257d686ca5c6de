// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"io"
	"sync"
	"time"

	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/shutdown"
)

const shutdownTimeout = 3 * time.Second

var shutdownState struct {
	mu          sync.RWMutex
	coordinator *shutdown.Coordinator
}

func setShutdownCoordinator(c *shutdown.Coordinator) {
	shutdownState.mu.Lock()
	defer shutdownState.mu.Unlock()
	shutdownState.coordinator = c
}

func clearShutdownCoordinator() {
	shutdownState.mu.Lock()
	defer shutdownState.mu.Unlock()
	shutdownState.coordinator = nil
}

func currentCoordinator() *shutdown.Coordinator {
	shutdownState.mu.RLock()
	defer shutdownState.mu.RUnlock()
	return shutdownState.coordinator
}

// registerShutdownHook is a no-op outside Execute, e.g. in tests that call
// a command's RunE directly.
func registerShutdownHook(name string, fn shutdown.HookFunc) {
	if c := currentCoordinator(); c != nil {
		c.Register(name, fn)
	}
}

// registerCloser closes cl at shutdown, or immediately when the returned
// release func is called first.
func registerCloser(name string, cl io.Closer) (release func()) {
	var once sync.Once
	closeIt := func() error {
		var err error
		once.Do(func() { err = cl.Close() })
		return err
	}
	if c := currentCoordinator(); c != nil {
		c.RegisterCloser(name, closerFunc(closeIt))
	}
	return func() {
		if err := closeIt(); err != nil {
			logger.Logger.Warn("Failed to close resource", "resource", name, "error", err)
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func runShutdownHooksWithTimeout(c *shutdown.Coordinator, timeout time.Duration) {
	if c == nil {
		return
	}
	if err := c.RunWithTimeout(timeout); err != nil {
		logger.Logger.Warn("Shutdown hooks completed with errors", "error", err)
	}
}
