// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package submitter drives an estimated operation group through forging,
// signing, preapply and injection.
package submitter

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/forge"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/signer"
	"github.com/dotandev/tzsubmit/internal/telemetry"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Stage is the last step a submission completed.
type Stage string

const (
	StageBuilt      Stage = "built"
	StageForged     Stage = "forged"
	StageParsed     Stage = "parsed"
	StageSigned     Stage = "signed"
	StagePreapplied Stage = "preapplied"
	StageInjected   Stage = "injected"
)

// Node is the subset of the node RPC used to submit.
type Node interface {
	Metadata(ctx context.Context, source string, reorgMargin int) (tezos.OperationMetadata, error)
	Preapply(ctx context.Context, p tezos.OperationPayload) (*tezos.SimulationResult, error)
	Inject(ctx context.Context, signedHex string) (string, error)
}

// Parser decodes forged bytes. On the remote path it must be operated
// independently of the forging node.
type Parser interface {
	Parse(ctx context.Context, forgedHex, branch string) (*tezos.OperationPayload, error)
}

type Config struct {
	ReorgMargin int
}

// Result records how far a submission got.
type Result struct {
	Stage     Stage
	Branch    string
	ForgedHex string
	// Signature is the base58 signature sent to preapply.
	Signature string
	OpHash    string
}

type Submitter struct {
	node   Node
	forger forge.Forger
	parser Parser
	signer signer.Signer
	cfg    Config
}

// New returns a Submitter. parser may be nil when forging locally.
func New(node Node, forger forge.Forger, parser Parser, s signer.Signer, cfg Config) *Submitter {
	return &Submitter{node: node, forger: forger, parser: parser, signer: s, cfg: cfg}
}

// CanRenderOnDevice reports whether a hardware wallet's on-screen parser can
// display contents: exactly one reveal, delegation or transaction.
func CanRenderOnDevice(contents []tezos.Operation) bool {
	if len(contents) != 1 {
		return false
	}
	switch contents[0].Kind() {
	case tezos.KindReveal, tezos.KindDelegation, tezos.KindTransaction:
		return true
	}
	return false
}

// SigningTarget returns what s is asked to sign for forgedHex. Hardware
// signers that cannot render contents get the Blake2b-256 digest of the
// watermarked bytes instead of the bytes themselves.
func SigningTarget(s signer.Signer, contents []tezos.Operation, forgedHex string) (signer.Request, error) {
	watermarked, err := tezos.Watermark(forgedHex)
	if err != nil {
		return signer.Request{}, err
	}
	if signer.IsHardware(s) && !CanRenderOnDevice(contents) {
		return signer.Request{Payload: tezos.Blake2b256(watermarked), Prehashed: true}, nil
	}
	return signer.Request{Payload: watermarked}, nil
}

// Submit forges, signs, preapplies and injects ops, which must already carry
// counters and fees. The returned Result is non-nil even on failure and
// records the last completed stage. Nothing is retried. ctx is checked
// before injection; once injection is requested cancelling ctx has no
// effect and the call runs to completion.
func (s *Submitter) Submit(ctx context.Context, source string, ops []tezos.Operation) (res *Result, err error) {
	ctx, span := telemetry.GetTracer().Start(ctx, "submit")
	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("operations", len(ops)),
	)
	res = &Result{Stage: StageBuilt}
	defer func() {
		span.SetAttributes(attribute.String("stage", string(res.Stage)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Logger.Error("Submission failed", "source", source, "stage", res.Stage, "error", err)
		}
		span.End()
	}()

	if len(ops) == 0 {
		return res, errors.ErrEmptyOperations
	}

	meta, err := s.node.Metadata(ctx, source, s.cfg.ReorgMargin)
	if err != nil {
		return res, classifier.FromTransport(err)
	}
	payload := tezos.OperationPayload{
		Branch:   meta.Branch,
		Contents: tezos.CloneOperations(ops),
		Protocol: meta.Protocol,
	}
	if s.forger.Mode() == forge.ModeLocal {
		payload.Branch = meta.BranchMinusN
	}
	res.Branch = payload.Branch

	forged, err := s.forge(ctx, payload)
	if err != nil {
		return res, err
	}
	res.ForgedHex = forged
	res.Stage = StageForged

	if s.forger.Mode() == forge.ModeRemote {
		if err := s.verify(ctx, payload, forged); err != nil {
			return res, err
		}
		res.Stage = StageParsed
	}

	sig, err := s.sign(ctx, payload.Contents, forged)
	if err != nil {
		return res, err
	}
	encoded, err := tezos.EncodeSignature(sig.Curve, sig.Bytes)
	if err != nil {
		return res, &signer.SignerError{Op: "encode", Msg: "unusable signature", Err: err}
	}
	res.Signature = encoded
	res.Stage = StageSigned

	payload.Signature = encoded
	if err := s.preapply(ctx, payload); err != nil {
		return res, err
	}
	res.Stage = StagePreapplied

	// Last point at which the attempt can still be abandoned.
	if err := ctx.Err(); err != nil {
		return res, err
	}
	hash, err := s.inject(ctx, forged+hex.EncodeToString(sig.Bytes))
	if err != nil {
		return res, err
	}
	res.OpHash = hash
	res.Stage = StageInjected

	logger.Logger.Info("Operation injected", "source", source, "hash", hash, "operations", len(ops))
	return res, nil
}

func (s *Submitter) forge(ctx context.Context, p tezos.OperationPayload) (string, error) {
	ctx, span := telemetry.GetTracer().Start(ctx, "submit.forge")
	defer span.End()

	logger.Logger.Debug("Forging", "mode", s.forger.Mode(), "branch", p.Branch)
	forged, err := s.forger.Forge(ctx, p)
	if err != nil {
		span.RecordError(err)
		if s.forger.Mode() == forge.ModeLocal || stderrors.Is(err, errors.ErrForgingNotConfigured) {
			return "", fmt.Errorf("forging: %w", err)
		}
		return "", classifier.FromTransport(err)
	}
	span.SetAttributes(attribute.Int("bytes", len(forged)/2))
	return forged, nil
}

// verify decodes forged on the independent parser and compares the result
// with what was sent for forging.
func (s *Submitter) verify(ctx context.Context, p tezos.OperationPayload, forged string) error {
	ctx, span := telemetry.GetTracer().Start(ctx, "submit.parse")
	defer span.End()

	if s.parser == nil {
		span.RecordError(errors.ErrNoParseEndpoint)
		return errors.ErrNoParseEndpoint
	}
	parsed, err := s.parser.Parse(ctx, forged, p.Branch)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("parsing forged operation: %w", classifier.FromTransport(err))
	}
	if err := tezos.ComparePayloads(p, *parsed); err != nil {
		span.RecordError(err)
		logger.Logger.Error("Forged bytes do not match the requested operation", "error", err)
		return errors.WrapParseMismatch(err)
	}
	return nil
}

func (s *Submitter) sign(ctx context.Context, contents []tezos.Operation, forged string) (signer.Signature, error) {
	ctx, span := telemetry.GetTracer().Start(ctx, "submit.sign")
	defer span.End()

	req, err := SigningTarget(s.signer, contents, forged)
	if err != nil {
		span.RecordError(err)
		return signer.Signature{}, err
	}
	span.SetAttributes(attribute.Bool("prehashed", req.Prehashed))
	logger.Logger.Debug("Signing", "hardware", signer.IsHardware(s.signer), "prehashed", req.Prehashed)

	sig, err := s.signer.Sign(ctx, req)
	if err != nil {
		span.RecordError(err)
		return signer.Signature{}, err
	}
	return sig, nil
}

func (s *Submitter) preapply(ctx context.Context, p tezos.OperationPayload) error {
	ctx, span := telemetry.GetTracer().Start(ctx, "submit.preapply")
	defer span.End()

	result, err := s.node.Preapply(ctx, p)
	if err != nil {
		span.RecordError(err)
		return errors.WrapPreapplyFailed(classifier.FromTransport(err))
	}
	if ce := classifier.ClassifyResults(result.Contents); ce != nil {
		span.RecordError(ce)
		return errors.WrapPreapplyFailed(ce)
	}
	if result.Failed() {
		return errors.WrapPreapplyFailed(stderrors.New("operation was not applied"))
	}
	return nil
}

func (s *Submitter) inject(ctx context.Context, signedHex string) (string, error) {
	ctx, span := telemetry.GetTracer().Start(ctx, "submit.inject")
	defer span.End()

	// An injection request the node may already have received must not be
	// cut short; the transport timeout bounds it instead.
	hash, err := s.node.Inject(context.WithoutCancel(ctx), signedHex)
	if err != nil {
		span.RecordError(err)
		return "", classifier.FromTransport(err)
	}
	if local, herr := tezos.OperationHash(signedHex); herr == nil && hash != "" && local != hash {
		logger.Logger.Warn("Node returned an unexpected operation hash", "node", hash, "computed", local)
	}
	span.SetAttributes(attribute.String("hash", hash))
	return hash, nil
}
