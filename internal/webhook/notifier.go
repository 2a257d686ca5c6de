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

// Package webhook reports submission outcomes to chat and HTTP endpoints.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/dotandev/tzsubmit/internal/logger"
)

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	// ErrorOnly skips successful injections.
	ErrorOnly bool     `mapstructure:"error_only" json:"error_only"`
	Webhooks  []Config `mapstructure:"endpoints" json:"endpoints,omitempty"`
}

// Notifier fans a report out to every configured endpoint.
type Notifier struct {
	clients   []*Client
	errorOnly bool
}

// NewNotifier builds a client per endpoint. Invalid endpoints are skipped
// with a warning; it is an error only when none is valid. With no endpoints
// configured it returns a disabled notifier.
func NewNotifier(cfg NotifierConfig) (*Notifier, error) {
	n := &Notifier{errorOnly: cfg.ErrorOnly}
	if len(cfg.Webhooks) == 0 {
		return n, nil
	}

	for _, wh := range cfg.Webhooks {
		c, err := NewClient(wh)
		if err != nil {
			logger.Logger.Warn("Failed to create webhook client", "type", wh.Type, "error", err)
			continue
		}
		n.clients = append(n.clients, c)
	}
	if len(n.clients) == 0 {
		return nil, fmt.Errorf("no valid webhook clients could be created")
	}
	return n, nil
}

// Enabled reports whether any endpoint is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.clients) > 0
}

// ClientCount returns the number of endpoints.
func (n *Notifier) ClientCount() int {
	if n == nil {
		return 0
	}
	return len(n.clients)
}

// Notify sends the entry to every endpoint concurrently and waits for all of
// them. Delivery failures are joined; they never affect the submission.
func (n *Notifier) Notify(ctx context.Context, e *journal.Entry) error {
	if !n.Enabled() || e == nil {
		return nil
	}
	report := ReportFromEntry(e)
	if n.errorOnly && report.Status == StatusInjected {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, c := range n.clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if err := c.Send(ctx, report); err != nil {
				logger.Logger.Error("Failed to send webhook notification", "type", c.Type(), "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return errors.Join(errs...)
}
