// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dotandev/tzsubmit/internal/logger"
)

// Type selects the payload format of a webhook.
type Type string

const (
	Slack   Type = "slack"
	Discord Type = "discord"
	// Generic posts the report itself as JSON.
	Generic Type = "generic"
)

// Config describes one webhook endpoint.
type Config struct {
	Type    Type          `mapstructure:"type" json:"type"`
	URL     string        `mapstructure:"url" json:"url"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout,omitempty"`
	Retries int           `mapstructure:"retries" json:"retries,omitempty"`
}

// Client delivers reports to one endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
}

// NewClient validates the endpoint and applies defaults: generic payloads,
// a 10s timeout and no retries.
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("webhook URL cannot be empty")
	}
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid webhook URL %q: scheme must be http or https", config.URL)
	}

	switch config.Type {
	case "":
		config.Type = Generic
	case Slack, Discord, Generic:
	default:
		return nil, fmt.Errorf("unsupported webhook type: %s", config.Type)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Retries < 0 {
		config.Retries = 0
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}, nil
}

// Type returns the payload format the client sends.
func (c *Client) Type() Type {
	return c.config.Type
}

// Send formats report for the endpoint and posts it.
func (c *Client) Send(ctx context.Context, report Report) error {
	var payload any
	switch c.config.Type {
	case Slack:
		payload = FormatSlackMessage(report)
	case Discord:
		payload = FormatDiscordMessage(report)
	default:
		payload = report
	}
	return c.sendWithRetry(ctx, payload)
}

func (c *Client) sendWithRetry(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.Retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			logger.Logger.Debug("Retrying webhook send", "attempt", attempt+1, "backoff", wait.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		if lastErr = c.sendRequest(ctx, body); lastErr == nil {
			return nil
		}
		logger.Logger.Warn("Webhook send failed", "attempt", attempt+1, "error", lastErr)
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", c.config.Retries+1, lastErr)
}

func (c *Client) sendRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tzsubmit/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	logger.Logger.Debug("Webhook sent", "type", c.config.Type, "status", resp.StatusCode)
	return nil
}
