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

// Package daemon serves estimation and submission over JSON-RPC 2.0.
package daemon

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/fees"
	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/submitter"
	"github.com/dotandev/tzsubmit/internal/telemetry"
	"github.com/dotandev/tzsubmit/internal/tezos"
	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"go.opentelemetry.io/otel/attribute"
)

// ServiceName prefixes every method, e.g. "Wallet.Estimate".
const ServiceName = "Wallet"

// Application error codes, below the JSON-RPC reserved range.
const (
	CodeUnauthorized json2.ErrorCode = -32001
	CodeClassified   json2.ErrorCode = -32002
	CodeInternal     json2.ErrorCode = -32003
)

type Estimator interface {
	Estimate(ctx context.Context, source string, ops []tezos.Operation, publicKey string) ([]tezos.Operation, error)
}

type Submitter interface {
	Submit(ctx context.Context, source string, ops []tezos.Operation) (*submitter.Result, error)
}

// Journal records submission attempts; optional.
type Journal interface {
	Record(ctx context.Context, e *journal.Entry) error
}

// Notifier reports recorded submissions; optional.
type Notifier interface {
	Notify(ctx context.Context, e *journal.Entry) error
}

// Config holds daemon configuration
type Config struct {
	Network   string
	AuthToken string
	Notifier  Notifier
}

// Server represents the JSON-RPC daemon server
type Server struct {
	estimator Estimator
	submitter Submitter
	journal   Journal
	cfg       Config
}

// TotalsView is a fee summary with amounts in tez.
type TotalsView struct {
	Gas     int64  `json:"gas"`
	Storage int64  `json:"storage"`
	Fee     string `json:"fee"`
	Burn    string `json:"burn"`
}

func totalsView(ops []tezos.Operation) TotalsView {
	t := fees.OfOperations(ops)
	return TotalsView{
		Gas:     t.Gas,
		Storage: t.Storage,
		Fee:     tezos.FormatTez(t.TransactionFee),
		Burn:    tezos.FormatTez(t.BurnFee + t.AllocationFee),
	}
}

// EstimateRequest represents the Wallet.Estimate request
type EstimateRequest struct {
	Source     string          `json:"source"`
	PublicKey  string          `json:"public_key,omitempty"`
	Operations json.RawMessage `json:"operations"`
}

// EstimateResponse carries the operations with counters and fees attached.
type EstimateResponse struct {
	Operations json.RawMessage `json:"operations"`
	Totals     TotalsView      `json:"totals"`
}

// SubmitRequest represents the Wallet.Submit request. With Estimate set the
// operations are estimated first; otherwise they must carry fees.
type SubmitRequest struct {
	Source     string          `json:"source"`
	PublicKey  string          `json:"public_key,omitempty"`
	Operations json.RawMessage `json:"operations"`
	Estimate   bool            `json:"estimate,omitempty"`
}

// SubmitResponse represents the Wallet.Submit response
type SubmitResponse struct {
	Stage     string     `json:"stage"`
	OpHash    string     `json:"op_hash"`
	Branch    string     `json:"branch"`
	Signature string     `json:"signature"`
	Totals    TotalsView `json:"totals"`
	JournalID string     `json:"journal_id,omitempty"`
}

// ClassifyRequest takes either decoded error entries or a raw node
// response body.
type ClassifyRequest struct {
	Errors []tezos.RPCError `json:"errors,omitempty"`
	Body   string           `json:"body,omitempty"`
}

// ClassifyResponse represents the Wallet.Classify response
type ClassifyResponse struct {
	Classified  bool   `json:"classified"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	ID          string `json:"id,omitempty"`
	FailWith    string `json:"fail_with,omitempty"`
}

// NewServer creates a new JSON-RPC server. j may be nil.
func NewServer(est Estimator, sub Submitter, j Journal, cfg Config) *Server {
	return &Server{estimator: est, submitter: sub, journal: j, cfg: cfg}
}

// authenticate validates the authorization token
func (s *Server) authenticate(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}
	auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return auth != "" && subtle.ConstantTimeCompare([]byte(auth), []byte(s.cfg.AuthToken)) == 1
}

var errUnauthorized = &json2.Error{Code: CodeUnauthorized, Message: "unauthorized"}

// rpcError maps err to a JSON-RPC error whose data names the classified
// kind when there is one.
func rpcError(err error, stage string) error {
	data := map[string]string{}
	if stage != "" {
		data["stage"] = stage
	}
	var ce *classifier.Error
	if stderrors.As(err, &ce) {
		data["kind"] = ce.Kind.String()
		if ce.Entry != nil && ce.Entry.ID != "" {
			data["id"] = ce.Entry.ID
		}
		return &json2.Error{Code: CodeClassified, Message: err.Error(), Data: data}
	}
	return &json2.Error{Code: CodeInternal, Message: err.Error(), Data: data}
}

func decodeOperations(raw json.RawMessage) ([]tezos.Operation, error) {
	if len(raw) == 0 {
		return nil, &json2.Error{Code: json2.E_BAD_PARAMS, Message: "operations are required"}
	}
	ops, err := tezos.UnmarshalOperations(raw)
	if err != nil {
		return nil, &json2.Error{Code: json2.E_BAD_PARAMS, Message: fmt.Sprintf("invalid operations: %v", err)}
	}
	return ops, nil
}

// Estimate handles Wallet.Estimate calls
func (s *Server) Estimate(r *http.Request, req *EstimateRequest, resp *EstimateResponse) error {
	if !s.authenticate(r) {
		return errUnauthorized
	}
	ctx, span := telemetry.GetTracer().Start(r.Context(), "rpc_estimate")
	span.SetAttributes(attribute.String("source", req.Source))
	defer span.End()

	logger.Logger.Info("Processing Wallet.Estimate", "source", req.Source)

	ops, err := decodeOperations(req.Operations)
	if err != nil {
		return err
	}
	estimated, err := s.estimator.Estimate(ctx, req.Source, ops, req.PublicKey)
	if err != nil {
		span.RecordError(err)
		return rpcError(err, "")
	}
	raw, err := json.Marshal(estimated)
	if err != nil {
		return rpcError(err, "")
	}

	*resp = EstimateResponse{Operations: raw, Totals: totalsView(estimated)}
	return nil
}

// Submit handles Wallet.Submit calls
func (s *Server) Submit(r *http.Request, req *SubmitRequest, resp *SubmitResponse) error {
	if !s.authenticate(r) {
		return errUnauthorized
	}
	ctx, span := telemetry.GetTracer().Start(r.Context(), "rpc_submit")
	span.SetAttributes(attribute.String("source", req.Source))
	defer span.End()

	logger.Logger.Info("Processing Wallet.Submit", "source", req.Source, "estimate", req.Estimate)

	ops, err := decodeOperations(req.Operations)
	if err != nil {
		return err
	}
	if req.Estimate {
		if ops, err = s.estimator.Estimate(ctx, req.Source, ops, req.PublicKey); err != nil {
			span.RecordError(err)
			return rpcError(err, "")
		}
	}

	res, err := s.submitter.Submit(ctx, req.Source, ops)
	journalID := s.record(ctx, req.Source, ops, res, err)
	if err != nil {
		span.RecordError(err)
		stage := ""
		if res != nil {
			stage = string(res.Stage)
		}
		return rpcError(err, stage)
	}

	*resp = SubmitResponse{
		Stage:     string(res.Stage),
		OpHash:    res.OpHash,
		Branch:    res.Branch,
		Signature: res.Signature,
		Totals:    totalsView(ops),
		JournalID: journalID,
	}
	return nil
}

func (s *Server) record(ctx context.Context, source string, ops []tezos.Operation, res *submitter.Result, err error) string {
	if s.journal == nil && s.cfg.Notifier == nil {
		return ""
	}
	ctx = context.WithoutCancel(ctx)
	e := journal.NewEntry(source, s.cfg.Network, ops, res, err)
	if s.journal != nil {
		if jerr := s.journal.Record(ctx, e); jerr != nil {
			logger.Logger.Warn("Failed to record submission", "error", jerr)
			e.ID = ""
		}
	}
	if s.cfg.Notifier != nil {
		if nerr := s.cfg.Notifier.Notify(ctx, e); nerr != nil {
			logger.Logger.Warn("Submission notification failed", "error", nerr)
		}
	}
	return e.ID
}

// Classify handles Wallet.Classify calls
func (s *Server) Classify(r *http.Request, req *ClassifyRequest, resp *ClassifyResponse) error {
	if !s.authenticate(r) {
		return errUnauthorized
	}

	var ce *classifier.Error
	switch {
	case len(req.Errors) > 0:
		ce = classifier.ClassifyEntries(req.Errors)
	case req.Body != "":
		ce = classifier.ClassifyBody(req.Body)
	default:
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "errors or body is required"}
	}

	*resp = ClassifyResponse{}
	if ce == nil {
		return nil
	}
	resp.Classified = true
	resp.Kind = ce.Kind.String()
	resp.Description = classifier.Describe(ce.Kind)
	if ce.Entry != nil {
		resp.ID = ce.Entry.ID
		resp.FailWith = ce.Entry.FailWith()
	}
	return nil
}

// Handler returns the HTTP handler serving /rpc and /health.
func (s *Server) Handler() (http.Handler, error) {
	server := gorillarpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")

	if err := server.RegisterService(s, ServiceName); err != nil {
		return nil, fmt.Errorf("failed to register service: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", server)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "network": s.cfg.Network})
	})
	return mux, nil
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	logger.Logger.Info("Starting JSON-RPC server", "addr", ln.Addr().String())

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Logger.Info("Shutting down JSON-RPC server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
