// Package clients provides the HTTP clients for the service's external
// collaborators: the Hiro ledger API and the Bitcoin Faces generator.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pbtc21/bitcoinfaces/logger"
	"github.com/pbtc21/bitcoinfaces/metrics"
	"github.com/pbtc21/bitcoinfaces/types"
)

// ErrTxNotFound reports that the ledger has no record for a transaction
// id. Distinct from transport failures so the verifier can tell an
// outage from a bogus proof.
var ErrTxNotFound = errors.New("transaction not found")

// HiroClient reads transaction and account state from a Hiro-compatible
// Stacks API.
type HiroClient struct {
	baseURL string
	httpc   *http.Client
	log     logger.Logger
	rec     metrics.Recorder
}

type HiroOption func(*HiroClient)

func WithHiroLogger(l logger.Logger) HiroOption {
	return func(c *HiroClient) { c.log = l }
}

func WithHiroMetrics(r metrics.Recorder) HiroOption {
	return func(c *HiroClient) { c.rec = r }
}

func NewHiroClient(baseURL string, timeout time.Duration, opts ...HiroOption) *HiroClient {
	c := &HiroClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		log:     logger.NoopLogger{},
		rec:     metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transaction fetches a transaction record by its canonical 0x-prefixed
// id. Returns ErrTxNotFound when the ledger has no record.
func (c *HiroClient) Transaction(ctx context.Context, txid string) (*types.LedgerTx, error) {
	url := fmt.Sprintf("%s/extended/v1/tx/%s", c.baseURL, txid)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	c.rec.ObserveLatency("ledger", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTxNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("ledger lookup: unexpected status %d", resp.StatusCode)
	}

	var tx types.LedgerTx
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("ledger lookup: decode: %w", err)
	}

	c.log.Debug("ledger transaction fetched", map[string]any{
		"txid":   txid,
		"status": tx.Status,
		"type":   tx.Type,
	})
	return &tx, nil
}

// AccountNonce returns the next usable nonce for a principal, used by
// the broadcaster when assembling mint transactions.
func (c *HiroClient) AccountNonce(ctx context.Context, principal string) (uint64, error) {
	url := fmt.Sprintf("%s/v2/accounts/%s?proof=0", c.baseURL, principal)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpc.Do(req)
	c.rec.ObserveLatency("ledger", time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("account lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("account lookup: unexpected status %d", resp.StatusCode)
	}

	var account struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return 0, fmt.Errorf("account lookup: decode: %w", err)
	}
	return account.Nonce, nil
}
