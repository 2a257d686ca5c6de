// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"time"

	"github.com/dotandev/tzsubmit/internal/logger"
)

// MethodTelemetry is an optional hook for timing node calls. Implementations
// can forward timings to a metrics backend.
type MethodTelemetry interface {
	StartMethodTimer(ctx context.Context, endpoint string, attributes map[string]string) MethodTimer
}

// MethodTimer is a started call timer.
type MethodTimer interface {
	Stop(err error)
}

type noopMethodTelemetry struct{}

func (noopMethodTelemetry) StartMethodTimer(context.Context, string, map[string]string) MethodTimer {
	return noopMethodTimer{}
}

type noopMethodTimer struct{}

func (noopMethodTimer) Stop(error) {}

// LogMethodTelemetry logs every node call at debug level, and at warn level
// when it takes longer than Slow.
type LogMethodTelemetry struct {
	Slow time.Duration
}

func (t LogMethodTelemetry) StartMethodTimer(_ context.Context, endpoint string, attributes map[string]string) MethodTimer {
	return &logMethodTimer{endpoint: endpoint, method: attributes["method"], slow: t.Slow, start: time.Now()}
}

type logMethodTimer struct {
	endpoint string
	method   string
	slow     time.Duration
	start    time.Time
}

func (m *logMethodTimer) Stop(err error) {
	elapsed := time.Since(m.start)
	args := []any{"endpoint", m.endpoint, "method", m.method, "duration", elapsed, "ok", err == nil}
	if m.slow > 0 && elapsed > m.slow {
		logger.Logger.Warn("Slow node call", args...)
		return
	}
	logger.Logger.Debug("Node call", args...)
}
