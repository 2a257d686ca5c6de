// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package estimator attaches gas, storage and fee values to a draft
// operation group by dry-running it against a node.
package estimator

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/fees"
	"github.com/dotandev/tzsubmit/internal/forge"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/rpc"
	"github.com/dotandev/tzsubmit/internal/telemetry"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxRecoverableOperations bounds the groups eligible for balance recovery.
const maxRecoverableOperations = 2

// Node is the subset of the node RPC the estimator needs.
type Node interface {
	Constants(ctx context.Context) (tezos.NetworkConstants, error)
	Metadata(ctx context.Context, source string, reorgMargin int) (tezos.OperationMetadata, error)
	Simulate(ctx context.Context, p tezos.OperationPayload, chainID string) (*tezos.SimulationResult, error)
}

// RecoveryGate decides whether a balance_too_low dry run may be read as a
// successful one.
type RecoveryGate interface {
	Allow(ctx context.Context) bool
}

// Config tunes an Estimator.
type Config struct {
	ReorgMargin int
	// Recovery is consulted before reinterpreting a balance_too_low dry
	// run; nil allows it.
	Recovery RecoveryGate
	// GasMargin overrides fees.GasSafetyMargin when positive.
	GasMargin int64
}

// Estimator runs the estimation workflow. It holds no per-call state and is
// safe for concurrent use.
type Estimator struct {
	node   Node
	forger forge.Forger
	cfg    Config
}

func New(node Node, forger forge.Forger, cfg Config) *Estimator {
	return &Estimator{node: node, forger: forger, cfg: cfg}
}

// Estimate returns a copy of ops with counters and final fees attached. When
// the source account is not revealed a Reveal built from publicKey is
// prepended. The caller's operations are never modified.
func (e *Estimator) Estimate(ctx context.Context, source string, ops []tezos.Operation, publicKey string) (out []tezos.Operation, err error) {
	ctx, span := telemetry.GetTracer().Start(ctx, "estimate")
	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("operations", len(ops)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(ops) == 0 {
		return nil, errors.ErrEmptyOperations
	}
	work := tezos.CloneOperations(ops)

	constants, err := e.node.Constants(ctx)
	if err != nil {
		return nil, classifier.FromTransport(err)
	}
	if err := constants.Validate(); err != nil {
		return nil, errors.WrapValidationError(err.Error())
	}
	meta, err := e.node.Metadata(ctx, source, e.cfg.ReorgMargin)
	if err != nil {
		return nil, classifier.FromTransport(err)
	}

	if !meta.Revealed() && work[0].Kind() != tezos.KindReveal {
		if publicKey == "" {
			return nil, errors.WrapValidationError(fmt.Sprintf("%s is not revealed and no public key was given", source))
		}
		work = append([]tezos.Operation{tezos.NewReveal(source, publicKey)}, work...)
		logger.Logger.Debug("Prepending reveal", "source", source)
	}

	suggested := make([]tezos.OperationFees, len(work))
	counter := meta.Counter
	maxed := make([]tezos.Operation, len(work))
	for i, op := range work {
		suggested[i] = op.Fees()
		if op.Kind().IsManager() {
			counter++
			work[i] = op.WithCounter(counter)
		}
		maxed[i] = work[i].WithFees(tezos.OperationFees{
			GasLimit:     constants.MaxGasPerOperation,
			StorageLimit: constants.MaxStoragePerOperation,
		})
	}

	payload := tezos.OperationPayload{Branch: meta.Branch, Contents: maxed}
	if e.forger.Mode() == forge.ModeLocal {
		payload.Branch = meta.BranchMinusN
	}
	forged, err := e.forger.Forge(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("forging dry run: %w", err)
	}

	sim, err := e.simulate(ctx, payload, meta.ChainID)
	if err != nil {
		return nil, err
	}

	engine := fees.NewEngine(constants)
	if e.cfg.GasMargin > 0 {
		engine.Margin = e.cfg.GasMargin
	}
	extracted := engine.Extract(sim, forged)
	if len(extracted) != len(work) {
		return nil, errors.WrapFeeCountMismatch(len(extracted), len(work))
	}
	final := engine.ApplyPolicy(suggested, extracted, forged)

	out = make([]tezos.Operation, len(work))
	for i, op := range work {
		out[i] = op.WithFees(final[i])
	}

	tot := fees.Sum(final)
	span.SetAttributes(
		attribute.Int64("gas", tot.Gas),
		attribute.Int64("storage", tot.Storage),
		attribute.Int64("fee_mutez", int64(tot.TransactionFee)),
	)
	logger.Logger.Info("Estimated operation group",
		"source", source,
		"operations", len(out),
		"gas", tot.Gas,
		"storage", tot.Storage,
		"fee", tezos.FormatTez(tot.TransactionFee),
		"burn", tezos.FormatTez(tot.BurnFee+tot.AllocationFee),
	)
	return out, nil
}

// simulate dry-runs the payload and returns a usable result or a classified
// error. The only failure turned into success is the balance_too_low case
// accepted by recoverable.
func (e *Estimator) simulate(ctx context.Context, p tezos.OperationPayload, chainID string) (*tezos.SimulationResult, error) {
	sim, err := e.node.Simulate(ctx, p, chainID)
	if err != nil {
		ce := classifier.FromTransport(err)
		if body, ok := e.recoverable(ctx, p.Contents, ce); ok {
			logger.Logger.Warn("Dry run rejected for balance, using its figures", "operations", len(p.Contents))
			return body, nil
		}
		return nil, errors.WrapSimulationFailed(ce)
	}

	if !sim.Failed() {
		return sim, nil
	}
	ce := classifier.ClassifyResults(sim.Contents)
	if ce == nil {
		return nil, errors.WrapSimulationFailed(stderrors.New("operation was not applied"))
	}
	if e.recoverableKind(ctx, p.Contents, ce) && len(sim.Contents) == len(p.Contents) {
		logger.Logger.Warn("Dry run rejected for balance, using its figures", "operations", len(p.Contents))
		return sim, nil
	}
	return nil, errors.WrapSimulationFailed(ce)
}

// recoverable reports whether a failed dry run's response body is a
// simulation result that may stand in for a successful one.
func (e *Estimator) recoverable(ctx context.Context, ops []tezos.Operation, ce *classifier.Error) (*tezos.SimulationResult, bool) {
	if !e.recoverableKind(ctx, ops, ce) || ce.ResponseBody == "" {
		return nil, false
	}
	var re *rpc.Error
	if !stderrors.As(ce, &re) {
		return nil, false
	}
	sim, err := tezos.DecodeSimulationResult([]byte(re.ResponseBody))
	if err != nil || len(sim.Contents) != len(ops) {
		return nil, false
	}
	return sim, true
}

// reportsBalanceTooLow looks through every entry, not only the representative
// one: nodes follow balance_too_low with tez.subtraction_underflow, which
// classifies the same and wins as the later entry.
func reportsBalanceTooLow(ce *classifier.Error) bool {
	if ce.Entry != nil && strings.Contains(strings.ToLower(ce.Entry.ID), "balance_too_low") {
		return true
	}
	for _, entry := range ce.Entries {
		if strings.Contains(strings.ToLower(entry.ID), "balance_too_low") {
			return true
		}
	}
	return false
}

func (e *Estimator) recoverableKind(ctx context.Context, ops []tezos.Operation, ce *classifier.Error) bool {
	if ce == nil || ce.Kind != classifier.InsufficientFunds || !reportsBalanceTooLow(ce) {
		return false
	}
	if len(ops) == 0 || len(ops) > maxRecoverableOperations {
		return false
	}
	tx, ok := ops[len(ops)-1].(tezos.Transaction)
	if !ok || tx.Amount() <= 0 {
		return false
	}
	return e.cfg.Recovery == nil || e.cfg.Recovery.Allow(ctx)
}
