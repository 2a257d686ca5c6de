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

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Client talks to a Tezos node over its JSON RPC. Candidate URLs are tried in
// order; the next one is used only when a node is unreachable or answers
// 502, 503 or 504.
type Client struct {
	urls       []string
	httpClient *http.Client
	telemetry  MethodTelemetry
}

// URLs returns the candidate node URLs in the order they are tried.
func (c *Client) URLs() []string {
	return append([]string(nil), c.urls...)
}

// Do sends one request and decodes a successful JSON response into out,
// which may be nil. Failures are returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	return c.call(ctx, path, method, path, in, out)
}

func (c *Client) call(ctx context.Context, endpoint, method, path string, in, out any) (err error) {
	ctx, span := telemetry.GetTracer().Start(ctx, "rpc."+endpoint)
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("rpc.path", path),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	timer := c.telemetry.StartMethodTimer(ctx, endpoint, map[string]string{"method": method})
	defer func() { timer.Stop(err) }()

	var reqBody []byte
	if in != nil {
		reqBody, err = json.Marshal(in)
		if err != nil {
			return &Error{Method: method, URL: path, Err: errors.WrapMarshalFailed(err)}
		}
	}

	var last *Error
	for i, base := range c.urls {
		resBody, rerr := c.roundTrip(ctx, method, base+path, reqBody)
		if rerr == nil {
			span.SetAttributes(attribute.String("rpc.node", base))
			if out == nil {
				return nil
			}
			if uerr := json.Unmarshal(resBody, out); uerr != nil {
				return &Error{
					Method:       method,
					URL:          base + path,
					RequestBody:  string(reqBody),
					ResponseBody: string(resBody),
					StatusCode:   http.StatusOK,
					Err:          errors.WrapUnmarshalFailed(uerr, truncate(string(resBody))),
				}
			}
			return nil
		}

		last = rerr
		if ctx.Err() != nil || !rerr.retryable() {
			break
		}
		if i < len(c.urls)-1 {
			logger.Logger.Warn("Node unavailable, trying next", "url", base, "error", rerr)
		}
	}

	if last == nil {
		return &Error{Method: method, URL: path, Err: errors.WrapValidationError("no node URL configured")}
	}
	logger.Logger.Debug("Node call failed", "endpoint", endpoint, "status", last.StatusCode, "error", last.Err)
	return last
}

func (c *Client) roundTrip(ctx context.Context, method, url string, body []byte) ([]byte, *Error) {
	fail := &Error{Method: method, URL: url, RequestBody: string(body)}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		fail.Err = err
		return nil, fail
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			fail.Err = errors.WrapRPCTimeout(err)
		} else {
			fail.Err = errors.WrapRPCConnectionFailed(err)
		}
		return nil, fail
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fail.Err = errors.WrapRPCConnectionFailed(err)
		return nil, fail
	}
	if resp.StatusCode >= 300 {
		fail.StatusCode = resp.StatusCode
		fail.ResponseBody = string(data)
		return nil, fail
	}
	return data, nil
}

func truncate(s string) string {
	if len(s) > maxBodyInMessage {
		return s[:maxBodyInMessage] + "..."
	}
	return s
}
