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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockServer is an httptest node answering from a route table keyed by
// request path. It records the bodies it receives.
type MockServer struct {
	server    *httptest.Server
	mu        sync.RWMutex
	routes    map[string]MockRoute
	callCount map[string]int
	requests  map[string][]string
}

// MockRoute is the canned response of one path. Raw, when set, is written
// verbatim instead of the JSON encoding of Body.
type MockRoute struct {
	StatusCode int
	Body       interface{}
	Raw        string
	Headers    map[string]string
}

func NewMockServer(routes map[string]MockRoute) *MockServer {
	ms := &MockServer{
		routes:    make(map[string]MockRoute, len(routes)),
		callCount: make(map[string]int),
		requests:  make(map[string][]string),
	}
	for path, route := range routes {
		ms.routes[path] = route
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handleRequest))
	return ms
}

func (ms *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.callCount[r.URL.Path]++
	ms.requests[r.URL.Path] = append(ms.requests[r.URL.Path], string(body))
	route, exists := ms.routes[r.URL.Path]
	ms.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "%q", "no route for "+r.URL.Path)
		return
	}
	for k, v := range route.Headers {
		w.Header().Set(k, v)
	}
	status := route.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if route.Raw != "" {
		io.WriteString(w, route.Raw)
		return
	}
	if route.Body != nil {
		_ = json.NewEncoder(w).Encode(route.Body)
	}
}

func (ms *MockServer) URL() string {
	return ms.server.URL
}

func (ms *MockServer) Close() {
	if ms.server != nil {
		ms.server.Close()
	}
}

// AddRoute adds or replaces a route on the running server.
func (ms *MockServer) AddRoute(path string, route MockRoute) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.routes[path] = route
}

func (ms *MockServer) RemoveRoute(path string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.routes, path)
}

// CallCount returns how many times path was requested.
func (ms *MockServer) CallCount(path string) int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.callCount[path]
}

// Requests returns the bodies received on path, oldest first.
func (ms *MockServer) Requests(path string) []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return append([]string(nil), ms.requests[path]...)
}

// SuccessRoute answers 200 with body.
func SuccessRoute(body interface{}) MockRoute {
	return MockRoute{StatusCode: http.StatusOK, Body: body}
}

// ChainErrorRoute answers with a chain error list.
func ChainErrorRoute(status int, raw string) MockRoute {
	return MockRoute{StatusCode: status, Raw: raw}
}

// UnavailableRoute answers 503, which makes the client fail over.
func UnavailableRoute() MockRoute {
	return MockRoute{StatusCode: http.StatusServiceUnavailable, Raw: "service unavailable"}
}

// RateLimitRoute answers 429 with a Retry-After header.
func RateLimitRoute(retryAfter string) MockRoute {
	return MockRoute{
		StatusCode: http.StatusTooManyRequests,
		Raw:        "too many requests",
		Headers:    map[string]string{"Retry-After": retryAfter},
	}
}
