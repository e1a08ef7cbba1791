// Package types holds the shared data contracts of the Bitcoin Faces
// mint service: payment verdicts, ledger transaction views, assets,
// NFT metadata and mint outcomes.
package types

import (
	"fmt"
	"strings"
)

// PaymentHeader is the HTTP header carrying the payment proof.
const PaymentHeader = "X-Payment"

// VerdictReason classifies why a payment proof was rejected.
type VerdictReason string

const (
	ReasonNotFound        VerdictReason = "not_found"
	ReasonTransportError  VerdictReason = "transport_error"
	ReasonWrongStatus     VerdictReason = "wrong_status"
	ReasonWrongCallType   VerdictReason = "wrong_call_type"
	ReasonWrongContract   VerdictReason = "wrong_contract"
	ReasonWrongAmount     VerdictReason = "wrong_amount"
	ReasonAlreadyConsumed VerdictReason = "already_consumed"
)

// Verdict is the result of verifying a payment proof against ledger
// state. Exactly one of Sender (valid) or Reason (invalid) is set.
type Verdict struct {
	Valid  bool          `json:"valid"`
	Sender string        `json:"sender,omitempty"`
	Reason VerdictReason `json:"reason,omitempty"`

	// Detail carries diagnostics for an invalid verdict, e.g. the
	// observed transaction status.
	Detail string `json:"detail,omitempty"`
}

// Describe renders an invalid verdict for API responses.
func (v Verdict) Describe() string {
	if v.Valid {
		return ""
	}
	switch v.Reason {
	case ReasonNotFound:
		return "Transaction not found"
	case ReasonTransportError:
		return fmt.Sprintf("Transaction lookup failed: %s", v.Detail)
	case ReasonWrongStatus:
		return fmt.Sprintf("Transaction status: %s", v.Detail)
	case ReasonWrongCallType:
		return "Not a contract call"
	case ReasonWrongContract:
		return "Wrong contract"
	case ReasonWrongAmount:
		return fmt.Sprintf("Insufficient payment: %s", v.Detail)
	case ReasonAlreadyConsumed:
		return "Payment already consumed"
	default:
		return string(v.Reason)
	}
}

// LedgerTx is the subset of a Hiro extended-API transaction record the
// verifier cares about.
type LedgerTx struct {
	TxID          string        `json:"tx_id"`
	Status        string        `json:"tx_status"`
	Type          string        `json:"tx_type"`
	SenderAddress string        `json:"sender_address"`
	ContractCall  *ContractCall `json:"contract_call,omitempty"`

	// Total micro-STX sent by the sender, as reported by the indexer.
	// Consulted only under the amount-checked policy.
	StxSent string `json:"stx_sent,omitempty"`
}

// ContractCall describes the contract invocation of a ledger transaction.
type ContractCall struct {
	ContractID   string `json:"contract_id"`
	FunctionName string `json:"function_name"`
}

// Ledger transaction states and types used by the verifier policy.
const (
	TxStatusSuccess    = "success"
	TxTypeContractCall = "contract_call"
)

// Asset is a generated Bitcoin Face: the SVG document plus an optional
// deterministic hash seed. An empty HashSeed means the seed lookup
// failed or returned nothing; it never fails the fetch.
type Asset struct {
	SVG      string `json:"svg"`
	HashSeed []int  `json:"hashSeed,omitempty"`
}

// Attribute is a single NFT metadata trait.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata is the NFT metadata document served at /metadata/:address.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	ExternalURL string      `json:"external_url"`
	Attributes  []Attribute `json:"attributes"`
}

// MintStatus tags the terminal state of a mint request.
type MintStatus string

const (
	StatusPaymentInvalid MintStatus = "payment_invalid"
	StatusPreview        MintStatus = "preview"
	StatusMinted         MintStatus = "minted"
	StatusMintFailed     MintStatus = "mint_failed"
)

// MintOutcome is the terminal result of running a payment proof through
// the mint state machine. A Minted, MintFailed or Preview status implies
// the verdict was valid; PaymentInvalid is the only status reachable
// without a verified payment.
type MintOutcome struct {
	Status  MintStatus `json:"status"`
	Verdict Verdict    `json:"verdict"`

	// Normalized payment proof, kept on every status so callers can
	// reconcile consumed payments.
	PaymentTxID string `json:"payment_txid,omitempty"`

	Sender   string    `json:"sender,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Asset    *Asset    `json:"-"`

	// Set only on Minted.
	MintTxID string `json:"mint_txid,omitempty"`

	// Set only on MintFailed. BroadcastRejected distinguishes a node
	// refusing the transaction from an unexpected fault.
	FailureDetail     string `json:"failure_detail,omitempty"`
	BroadcastRejected bool   `json:"-"`
}

// ServiceError is a coded error for faults that cross component
// boundaries.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Common error codes.
const (
	ErrConfigError    = "CONFIG_ERROR"
	ErrAssetFetch     = "ASSET_FETCH_FAILED"
	ErrBroadcastError = "BROADCAST_FAILED"
	ErrStoreError     = "STORE_ERROR"
)

// ContractID identifies a deployed Clarity contract as
// "<address>.<name>".
type ContractID struct {
	Address string
	Name    string
}

// ParseContractID splits a "<address>.<name>" contract identifier.
func ParseContractID(s string) (ContractID, error) {
	addr, name, ok := strings.Cut(s, ".")
	if !ok || addr == "" || name == "" {
		return ContractID{}, &ServiceError{
			Code:    ErrConfigError,
			Message: fmt.Sprintf("invalid contract identifier %q, want <address>.<name>", s),
		}
	}
	return ContractID{Address: addr, Name: name}, nil
}

func (c ContractID) String() string {
	return c.Address + "." + c.Name
}
