// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/logger"
)

// RetryConfig defines how a single node is retried before the client moves
// on to the next candidate URL.
type RetryConfig struct {
	MaxRetries         int
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	JitterFraction     float64
	StatusCodesToRetry []int
}

// DefaultRetryConfig retries rate limiting only; unavailable nodes are left
// to URL failover.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:         3,
		InitialBackoff:     500 * time.Millisecond,
		MaxBackoff:         10 * time.Second,
		JitterFraction:     0.1,
		StatusCodesToRetry: []int{http.StatusTooManyRequests},
	}
}

func (c RetryConfig) retriesStatus(code int) bool {
	for _, s := range c.StatusCodesToRetry {
		if s == code {
			return true
		}
	}
	return false
}

// next doubles the backoff up to MaxBackoff and applies jitter.
func (c RetryConfig) next(current time.Duration) time.Duration {
	next := current * 2
	if next > c.MaxBackoff {
		next = c.MaxBackoff
	}
	if c.JitterFraction > 0 {
		spread := int64(float64(next) * c.JitterFraction)
		if spread > 0 {
			next += time.Duration(rand.Int63n(2*spread) - spread)
		}
	}
	if next < 0 {
		next = 0
	}
	return next
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryTransport is an http.RoundTripper that retries connection failures and
// the configured status codes with exponential backoff.
type RetryTransport struct {
	config    RetryConfig
	transport http.RoundTripper
}

func NewRetryTransport(config RetryConfig, transport http.RoundTripper) *RetryTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &RetryTransport{config: config, transport: transport}
}

func (rt *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	backoff := rt.config.InitialBackoff

	for attempt := 0; attempt <= rt.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(req.Context(), backoff); err != nil {
				return nil, errors.WrapRPCTimeout(err)
			}
		}

		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := rt.transport.RoundTrip(attemptReq)
		if err != nil {
			lastErr = err
			logger.Logger.Debug("Round trip failed", "url", req.URL.String(), "attempt", attempt+1, "error", err)
			backoff = rt.config.next(backoff)
			continue
		}

		if !rt.config.retriesStatus(resp.StatusCode) || attempt == rt.config.MaxRetries {
			return resp, nil
		}

		wait := retryAfter(resp)
		logger.Logger.Warn("Node asked to back off, will retry",
			"url", req.URL.String(),
			"attempt", attempt+1,
			"status_code", resp.StatusCode,
			"retry_after", wait,
		)
		resp.Body.Close()
		lastErr = fmt.Errorf("status code %d", resp.StatusCode)
		if wait > 0 {
			backoff = wait
		} else {
			backoff = rt.config.next(backoff)
		}
	}

	return nil, errors.WrapRPCConnectionFailed(lastErr)
}

// rewind returns a request whose body can be read again.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.Body = body
	return out, nil
}
