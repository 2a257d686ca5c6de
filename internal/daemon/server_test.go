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

package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/dotandev/tzsubmit/internal/submitter"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	source = "tz1KqTpEZ7Yob7QbPE4Hy4Wo8fHG8LhKxZSx"
	dest   = "tz1VQnqCCqX4K5sP3FNkVSNKTdCAMJDd3E1n"
)

type fakeEstimator struct {
	err   error
	calls int
}

func (f *fakeEstimator) Estimate(_ context.Context, _ string, ops []tezos.Operation, _ string) ([]tezos.Operation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]tezos.Operation, len(ops))
	for i, op := range ops {
		fee := tezos.OperationFees{GasLimit: 1100, StorageLimit: 0}
		if i == len(ops)-1 {
			fee.TransactionFee = 450
			fee.NetworkFees = []tezos.NetworkFee{{tezos.BurnFee: 0, tezos.AllocationFee: 0}}
		}
		out[i] = op.WithCounter(int64(10 + i)).WithFees(fee)
	}
	return out, nil
}

type fakeSubmitter struct {
	res *submitter.Result
	err error
	ops []tezos.Operation
}

func (f *fakeSubmitter) Submit(_ context.Context, _ string, ops []tezos.Operation) (*submitter.Result, error) {
	f.ops = ops
	return f.res, f.err
}

type fakeJournal struct {
	entries []*journal.Entry
}

func (j *fakeJournal) Record(_ context.Context, e *journal.Entry) error {
	e.ID = "entry-1"
	j.entries = append(j.entries, e)
	return nil
}

func operationsJSON(t *testing.T, ops ...tezos.Operation) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(ops)
	require.NoError(t, err)
	return raw
}

func newTestServer(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	h, err := srv.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, token, method string, args, reply any) error {
	t.Helper()
	body, err := json2.EncodeClientRequest(method, args)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return json2.DecodeClientResponse(resp.Body, reply)
}

func TestServer_Estimate(t *testing.T) {
	ts := newTestServer(t, NewServer(&fakeEstimator{}, &fakeSubmitter{}, nil, Config{Network: "ghostnet"}))

	var resp EstimateResponse
	err := call(t, ts, "", "Wallet.Estimate", &EstimateRequest{
		Source:     source,
		Operations: operationsJSON(t, tezos.NewTransaction(source, dest, 5, nil)),
	}, &resp)
	require.NoError(t, err)

	ops, err := tezos.UnmarshalOperations(resp.Operations)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, int64(10), ops[0].Counter())
	assert.Equal(t, "0.00045", resp.Totals.Fee)
	assert.Equal(t, int64(1100), resp.Totals.Gas)
}

func TestServer_EstimateClassifiedError(t *testing.T) {
	est := &fakeEstimator{err: errors.WrapSimulationFailed(&classifier.Error{
		Kind:  classifier.InsufficientFunds,
		Entry: &tezos.RPCError{ID: "proto.alpha.contract.balance_too_low"},
	})}
	ts := newTestServer(t, NewServer(est, &fakeSubmitter{}, nil, Config{}))

	var resp EstimateResponse
	err := call(t, ts, "", "Wallet.Estimate", &EstimateRequest{
		Source:     source,
		Operations: operationsJSON(t, tezos.NewTransaction(source, dest, 5, nil)),
	}, &resp)

	var jerr *json2.Error
	require.True(t, stderrors.As(err, &jerr), "got %v", err)
	assert.Equal(t, CodeClassified, jerr.Code)
	data, ok := jerr.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, classifier.InsufficientFunds.String(), data["kind"])
	assert.Equal(t, "proto.alpha.contract.balance_too_low", data["id"])
}

func TestServer_EstimateBadParams(t *testing.T) {
	ts := newTestServer(t, NewServer(&fakeEstimator{}, &fakeSubmitter{}, nil, Config{}))

	var resp EstimateResponse
	err := call(t, ts, "", "Wallet.Estimate", &EstimateRequest{Source: source, Operations: json.RawMessage(`[{"kind":"ballot"}]`)}, &resp)

	var jerr *json2.Error
	require.True(t, stderrors.As(err, &jerr))
	assert.Equal(t, json2.E_BAD_PARAMS, jerr.Code)
}

func TestServer_SubmitWithEstimate(t *testing.T) {
	est := &fakeEstimator{}
	sub := &fakeSubmitter{res: &submitter.Result{Stage: submitter.StageInjected, OpHash: "ooHash", Branch: "BHead", Signature: "edsig"}}
	j := &fakeJournal{}
	ts := newTestServer(t, NewServer(est, sub, j, Config{Network: "mainnet"}))

	var resp SubmitResponse
	err := call(t, ts, "", "Wallet.Submit", &SubmitRequest{
		Source:     source,
		Operations: operationsJSON(t, tezos.NewTransaction(source, dest, 5, nil)),
		Estimate:   true,
	}, &resp)
	require.NoError(t, err)

	assert.Equal(t, 1, est.calls)
	require.Len(t, sub.ops, 1)
	assert.Equal(t, int64(10), sub.ops[0].Counter())
	assert.Equal(t, "injected", resp.Stage)
	assert.Equal(t, "ooHash", resp.OpHash)
	assert.Equal(t, "entry-1", resp.JournalID)

	require.Len(t, j.entries, 1)
	assert.Equal(t, "mainnet", j.entries[0].Network)
	assert.Equal(t, "ooHash", j.entries[0].OpHash)
}

func TestServer_SubmitFailureRecordsStage(t *testing.T) {
	sub := &fakeSubmitter{
		res: &submitter.Result{Stage: submitter.StageSigned},
		err: errors.WrapPreapplyFailed(&classifier.Error{Kind: classifier.CounterError}),
	}
	j := &fakeJournal{}
	ts := newTestServer(t, NewServer(&fakeEstimator{}, sub, j, Config{}))

	var resp SubmitResponse
	err := call(t, ts, "", "Wallet.Submit", &SubmitRequest{
		Source:     source,
		Operations: operationsJSON(t, tezos.NewTransaction(source, dest, 5, nil)),
	}, &resp)

	var jerr *json2.Error
	require.True(t, stderrors.As(err, &jerr))
	data := jerr.Data.(map[string]any)
	assert.Equal(t, "signed", data["stage"])
	assert.Equal(t, classifier.CounterError.String(), data["kind"])

	require.Len(t, j.entries, 1)
	assert.Equal(t, classifier.CounterError.String(), j.entries[0].ErrorKind)
}

type fakeNotifier struct {
	entries []*journal.Entry
}

func (n *fakeNotifier) Notify(_ context.Context, e *journal.Entry) error {
	n.entries = append(n.entries, e)
	return stderrors.New("endpoint down")
}

func TestServer_SubmitNotifies(t *testing.T) {
	sub := &fakeSubmitter{res: &submitter.Result{Stage: submitter.StageInjected, OpHash: "ooHash"}}
	n := &fakeNotifier{}
	ts := newTestServer(t, NewServer(&fakeEstimator{}, sub, nil, Config{Network: "ghostnet", Notifier: n}))

	var resp SubmitResponse
	err := call(t, ts, "", "Wallet.Submit", &SubmitRequest{
		Source:     source,
		Operations: operationsJSON(t, tezos.NewTransaction(source, dest, 5, nil)),
	}, &resp)
	require.NoError(t, err, "a failed notification must not fail the submission")

	assert.Empty(t, resp.JournalID)
	require.Len(t, n.entries, 1)
	assert.Equal(t, "ooHash", n.entries[0].OpHash)
	assert.Equal(t, "ghostnet", n.entries[0].Network)
}

func TestServer_Classify(t *testing.T) {
	ts := newTestServer(t, NewServer(&fakeEstimator{}, &fakeSubmitter{}, nil, Config{}))

	var resp ClassifyResponse
	err := call(t, ts, "", "Wallet.Classify", &ClassifyRequest{Errors: []tezos.RPCError{
		{Kind: "temporary", ID: "proto.alpha.gas_exhausted.operation"},
		{Kind: "temporary", ID: "proto.alpha.contract.counter_in_the_future"},
	}}, &resp)
	require.NoError(t, err)
	assert.True(t, resp.Classified)
	assert.Equal(t, classifier.CounterError.String(), resp.Kind)
	assert.Equal(t, classifier.Describe(classifier.CounterError), resp.Description)

	resp = ClassifyResponse{}
	err = call(t, ts, "", "Wallet.Classify", &ClassifyRequest{Body: `[{"kind":"permanent","id":"proto.alpha.delegate.unchanged"}]`}, &resp)
	require.NoError(t, err)
	assert.Equal(t, classifier.DelegateUnchanged.String(), resp.Kind)

	err = call(t, ts, "", "Wallet.Classify", &ClassifyRequest{}, &resp)
	assert.Error(t, err)
}

func TestServer_Authentication(t *testing.T) {
	srv := NewServer(&fakeEstimator{}, &fakeSubmitter{}, nil, Config{AuthToken: "secret123"})
	ts := newTestServer(t, srv)

	var resp ClassifyResponse
	args := &ClassifyRequest{Body: "counter already used"}

	err := call(t, ts, "", "Wallet.Classify", args, &resp)
	var jerr *json2.Error
	require.True(t, stderrors.As(err, &jerr))
	assert.Equal(t, CodeUnauthorized, jerr.Code)

	err = call(t, ts, "wrong-token", "Wallet.Classify", args, &resp)
	require.True(t, stderrors.As(err, &jerr))
	assert.Equal(t, CodeUnauthorized, jerr.Code)

	err = call(t, ts, "secret123", "Wallet.Classify", args, &resp)
	require.NoError(t, err)
	assert.Equal(t, classifier.CounterError.String(), resp.Kind)

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Authorization", "secret123")
	assert.True(t, srv.authenticate(req), "bare token is accepted")
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, NewServer(&fakeEstimator{}, &fakeSubmitter{}, nil, Config{Network: "sandbox"}))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "sandbox", body["network"])
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(&fakeEstimator{}, &fakeSubmitter{}, nil, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, srv.Start(ctx, "127.0.0.1:0"))
}
