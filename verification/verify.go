// Package verification decides whether a payment proof represents a
// valid, successful payment to the expected contract.
package verification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pbtc21/bitcoinfaces/clients"
	"github.com/pbtc21/bitcoinfaces/logger"
	"github.com/pbtc21/bitcoinfaces/metrics"
	"github.com/pbtc21/bitcoinfaces/types"
)

// Policy names what a qualifying payment must prove. DestinationOnly
// accepts any successful call to the payment contract regardless of
// value; AmountChecked additionally requires the sender to have moved
// at least the configured price.
type Policy string

const (
	PolicyDestinationOnly Policy = "destination-only"
	PolicyAmountChecked   Policy = "amount-checked"
)

// LedgerReader is the slice of the ledger client the verifier needs.
type LedgerReader interface {
	Transaction(ctx context.Context, txid string) (*types.LedgerTx, error)
}

// Verifier checks payment proofs against ledger state. One network
// read per call, no writes, no retries.
type Verifier struct {
	ledger   LedgerReader
	contract string
	price    decimal.Decimal
	policy   Policy
	timeout  time.Duration
	log      logger.Logger
	rec      metrics.Recorder
}

type Option func(*Verifier)

func WithLogger(l logger.Logger) Option {
	return func(v *Verifier) { v.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(v *Verifier) { v.rec = r }
}

func WithPolicy(p Policy, price decimal.Decimal) Option {
	return func(v *Verifier) {
		v.policy = p
		v.price = price
	}
}

func WithTimeout(t time.Duration) Option {
	return func(v *Verifier) { v.timeout = t }
}

// NewVerifier builds a verifier for the given expected payment
// contract. The contract comparison is exact string equality.
func NewVerifier(ledger LedgerReader, contract string, opts ...Option) *Verifier {
	v := &Verifier{
		ledger:   ledger,
		contract: contract,
		policy:   PolicyDestinationOnly,
		timeout:  30 * time.Second,
		log:      logger.NoopLogger{},
		rec:      metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NormalizeTxID canonicalizes a transaction id to a single leading
// "0x". Idempotent: normalizing twice yields the same string.
func NormalizeTxID(txid string) string {
	txid = strings.TrimSpace(txid)
	if strings.HasPrefix(txid, "0x") {
		return txid
	}
	return "0x" + txid
}

// Verify checks a payment proof and returns a verdict. Policy failures
// are verdicts, not errors; the only side effect is a single ledger
// read.
func (v *Verifier) Verify(ctx context.Context, proof string) types.Verdict {
	verdict := v.verify(ctx, proof)
	if verdict.Valid {
		v.rec.IncVerdict("valid")
	} else {
		v.rec.IncVerdict(string(verdict.Reason))
		v.log.Info("payment rejected", map[string]any{
			"txid":   NormalizeTxID(proof),
			"reason": verdict.Reason,
			"detail": verdict.Detail,
		})
	}
	return verdict
}

func (v *Verifier) verify(ctx context.Context, proof string) types.Verdict {
	txid := NormalizeTxID(proof)

	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	tx, err := v.ledger.Transaction(lookupCtx, txid)
	if err != nil {
		if errors.Is(err, clients.ErrTxNotFound) {
			return types.Verdict{Reason: types.ReasonNotFound}
		}
		return types.Verdict{Reason: types.ReasonTransportError, Detail: err.Error()}
	}

	if tx.Status != types.TxStatusSuccess {
		return types.Verdict{Reason: types.ReasonWrongStatus, Detail: tx.Status}
	}

	if tx.Type != types.TxTypeContractCall {
		return types.Verdict{Reason: types.ReasonWrongCallType, Detail: tx.Type}
	}

	if tx.ContractCall == nil || tx.ContractCall.ContractID != v.contract {
		detail := ""
		if tx.ContractCall != nil {
			detail = tx.ContractCall.ContractID
		}
		return types.Verdict{Reason: types.ReasonWrongContract, Detail: detail}
	}

	if v.policy == PolicyAmountChecked {
		sent, err := decimal.NewFromString(tx.StxSent)
		if err != nil || sent.LessThan(v.price) {
			return types.Verdict{Reason: types.ReasonWrongAmount, Detail: tx.StxSent}
		}
	}

	return types.Verdict{Valid: true, Sender: tx.SenderAddress}
}
