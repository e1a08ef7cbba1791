// Package mint runs a payment proof through the mint state machine:
// verify the payment, fetch the face, then preview, broadcast, or
// report the failure.
package mint

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pbtc21/bitcoinfaces/logger"
	"github.com/pbtc21/bitcoinfaces/metadata"
	"github.com/pbtc21/bitcoinfaces/metrics"
	"github.com/pbtc21/bitcoinfaces/replay"
	"github.com/pbtc21/bitcoinfaces/stacks"
	"github.com/pbtc21/bitcoinfaces/types"
	"github.com/pbtc21/bitcoinfaces/verification"
)

// Verifier decides whether a payment proof is a valid payment.
type Verifier interface {
	Verify(ctx context.Context, proof string) types.Verdict
}

// AssetProvider fetches the generated face for an address.
type AssetProvider interface {
	FetchFace(ctx context.Context, address string) (*types.Asset, error)
}

// Broadcaster signs and submits the mint transaction. A nil
// broadcaster means the process holds no signing credential and every
// verified payment ends in a preview.
type Broadcaster interface {
	BroadcastMint(ctx context.Context, recipient, tokenURI string) (string, error)
}

// Orchestrator drives a mint request from proof to terminal outcome.
// Stateless across requests; every call recomputes from scratch.
type Orchestrator struct {
	verifier    Verifier
	assets      AssetProvider
	builder     *metadata.Builder
	broadcaster Broadcaster
	consumed    replay.Store
	publicBase  string
	timeout     time.Duration
	log         logger.Logger
	rec         metrics.Recorder
}

type Option func(*Orchestrator)

// WithBroadcaster enables the minted branch.
func WithBroadcaster(b Broadcaster) Option {
	return func(o *Orchestrator) { o.broadcaster = b }
}

// WithConsumedStore enables at-most-once fulfilment per payment proof.
func WithConsumedStore(s replay.Store) Option {
	return func(o *Orchestrator) { o.consumed = s }
}

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.rec = r }
}

func WithTimeout(t time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = t }
}

// New builds an orchestrator. publicBase is this service's public URL,
// used to derive the token metadata URI for minted NFTs.
func New(verifier Verifier, assets AssetProvider, builder *metadata.Builder, publicBase string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		verifier:   verifier,
		assets:     assets,
		builder:    builder,
		publicBase: strings.TrimSuffix(publicBase, "/"),
		timeout:    30 * time.Second,
		log:        logger.NoopLogger{},
		rec:        metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MetadataURL is the token URI minted on chain for an address.
func (o *Orchestrator) MetadataURL(address string) string {
	return o.publicBase + "/metadata/" + address
}

// Mint runs the state machine for one payment proof and returns the
// terminal outcome. Minted, MintFailed and Preview are reachable only
// after a valid verdict. No step retries; every failure is terminal
// for the request.
func (o *Orchestrator) Mint(ctx context.Context, proof string) *types.MintOutcome {
	outcome := o.run(ctx, proof)
	o.rec.IncOutcome(string(outcome.Status))
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, proof string) *types.MintOutcome {
	txid := verification.NormalizeTxID(proof)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	reserved, outcome := o.reserve(ctx, txid)
	if outcome != nil {
		return outcome
	}

	verdict := o.verifier.Verify(ctx, txid)
	if !verdict.Valid {
		if reserved {
			o.release(ctx, txid)
		}
		return &types.MintOutcome{
			Status:      types.StatusPaymentInvalid,
			Verdict:     verdict,
			PaymentTxID: txid,
		}
	}

	sender := verdict.Sender
	asset, err := o.assets.FetchFace(ctx, sender)
	if err != nil {
		// fulfilment never reached the broadcaster; free the proof so
		// the payer can retry
		if reserved {
			o.release(ctx, txid)
		}
		o.log.Error("asset fetch failed after verified payment", map[string]any{
			"txid":   txid,
			"sender": sender,
			"error":  err.Error(),
		})
		return &types.MintOutcome{
			Status:        types.StatusMintFailed,
			Verdict:       verdict,
			PaymentTxID:   txid,
			Sender:        sender,
			FailureDetail: err.Error(),
		}
	}

	meta := o.builder.Build(sender, asset.HashSeed)

	if o.broadcaster == nil {
		return &types.MintOutcome{
			Status:      types.StatusPreview,
			Verdict:     verdict,
			PaymentTxID: txid,
			Sender:      sender,
			Metadata:    &meta,
			Asset:       asset,
		}
	}

	mintTxID, err := o.broadcaster.BroadcastMint(ctx, sender, o.MetadataURL(sender))
	if err != nil {
		// the payment is consumed but unredeemed; surface the proof
		// for manual reconciliation and keep any reservation
		o.log.Error("mint broadcast failed", map[string]any{
			"txid":   txid,
			"sender": sender,
			"error":  err.Error(),
		})
		var rejection *stacks.RejectionError
		return &types.MintOutcome{
			Status:            types.StatusMintFailed,
			Verdict:           verdict,
			PaymentTxID:       txid,
			Sender:            sender,
			Metadata:          &meta,
			Asset:             asset,
			FailureDetail:     err.Error(),
			BroadcastRejected: errors.As(err, &rejection),
		}
	}

	o.log.Info("face minted", map[string]any{
		"payment_txid": txid,
		"mint_txid":    mintTxID,
		"recipient":    sender,
	})
	return &types.MintOutcome{
		Status:      types.StatusMinted,
		Verdict:     verdict,
		PaymentTxID: txid,
		Sender:      sender,
		Metadata:    &meta,
		Asset:       asset,
		MintTxID:    mintTxID,
	}
}

// reserve claims the proof under the at-most-once policy. Returns a
// terminal outcome when the proof is already consumed or the store is
// unreachable (fail closed: an unverifiable reservation must not mint).
func (o *Orchestrator) reserve(ctx context.Context, txid string) (bool, *types.MintOutcome) {
	if o.consumed == nil {
		return false, nil
	}

	ok, err := o.consumed.Reserve(ctx, txid)
	if err != nil {
		o.log.Error("consumed-proof store unavailable", map[string]any{
			"txid":  txid,
			"error": err.Error(),
		})
		return false, &types.MintOutcome{
			Status: types.StatusPaymentInvalid,
			Verdict: types.Verdict{
				Reason: types.ReasonTransportError,
				Detail: "consumed-proof store unavailable",
			},
			PaymentTxID: txid,
		}
	}
	if !ok {
		return false, &types.MintOutcome{
			Status:      types.StatusPaymentInvalid,
			Verdict:     types.Verdict{Reason: types.ReasonAlreadyConsumed},
			PaymentTxID: txid,
		}
	}
	return true, nil
}

func (o *Orchestrator) release(ctx context.Context, txid string) {
	if err := o.consumed.Release(ctx, txid); err != nil {
		o.log.Warn("failed to release proof reservation", map[string]any{
			"txid":  txid,
			"error": err.Error(),
		})
	}
}
