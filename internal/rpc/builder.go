// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dotandev/tzsubmit/internal/errors"
)

// TokenEnv is read when no token option is given.
const TokenEnv = "TZSUBMIT_RPC_TOKEN"

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

type ClientOption func(*clientBuilder) error

type clientBuilder struct {
	urls       []string
	token      string
	timeout    time.Duration
	retry      *RetryConfig
	httpClient *http.Client
	telemetry  MethodTelemetry
}

// WithURLs sets the candidate node URLs, tried in order.
func WithURLs(urls ...string) ClientOption {
	return func(b *clientBuilder) error {
		for _, u := range urls {
			if err := ValidateURL(u); err != nil {
				return errors.WrapValidationError(fmt.Sprintf("invalid node URL %q: %v", u, err))
			}
			b.urls = append(b.urls, normalizeURL(u))
		}
		return nil
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) ClientOption {
	return func(b *clientBuilder) error {
		b.token = token
		return nil
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(b *clientBuilder) error {
		if d <= 0 {
			return errors.WrapValidationError("timeout must be positive")
		}
		b.timeout = d
		return nil
	}
}

// WithRetry wraps the transport in a RetryTransport.
func WithRetry(cfg RetryConfig) ClientOption {
	return func(b *clientBuilder) error {
		b.retry = &cfg
		return nil
	}
}

// WithHTTPClient replaces the HTTP client; token and retry options are
// ignored when it is set.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(b *clientBuilder) error {
		b.httpClient = c
		return nil
	}
}

func WithMethodTelemetry(t MethodTelemetry) ClientOption {
	return func(b *clientBuilder) error {
		b.telemetry = t
		return nil
	}
}

// NewClient builds a node client. At least one URL is required.
func NewClient(opts ...ClientOption) (*Client, error) {
	b := &clientBuilder{
		token:   os.Getenv(TokenEnv),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if len(b.urls) == 0 {
		return nil, errors.WrapValidationError("at least one node URL is required")
	}
	return b.build(), nil
}

func (b *clientBuilder) build() *Client {
	hc := b.httpClient
	if hc == nil {
		var transport http.RoundTripper = http.DefaultTransport
		if b.retry != nil {
			transport = NewRetryTransport(*b.retry, transport)
		}
		if b.token != "" {
			transport = &authTransport{token: b.token, transport: transport}
		}
		hc = &http.Client{Transport: transport, Timeout: b.timeout}
	}

	tel := b.telemetry
	if tel == nil {
		tel = noopMethodTelemetry{}
	}

	return &Client{
		urls:       append([]string(nil), b.urls...),
		httpClient: hc,
		telemetry:  tel,
	}
}

// authTransport adds a bearer token to every request.
type authTransport struct {
	token     string
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.transport.RoundTrip(req)
}
