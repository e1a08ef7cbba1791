package stacks

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"

	"github.com/pbtc21/bitcoinfaces/logger"
	"github.com/pbtc21/bitcoinfaces/metrics"
	"github.com/pbtc21/bitcoinfaces/types"
)

// NonceSource provides the next account nonce for a principal.
type NonceSource interface {
	AccountNonce(ctx context.Context, principal string) (uint64, error)
}

// RejectionError is a structured broadcast rejection reported by the
// node, as opposed to a transport failure.
type RejectionError struct {
	Message string `json:"error"`
	Reason  string `json:"reason"`
}

func (e *RejectionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Reason)
	}
	return e.Message
}

// Broadcaster signs mint contract calls with the minter hot wallet and
// submits them to a Stacks node.
type Broadcaster struct {
	network    types.Network
	coreURL    string
	key        *ecdsa.PrivateKey
	signer     Hash160
	signerAddr string

	contractVersion byte
	contractHash    Hash160
	contractName    string
	function        string
	fee             uint64

	nonces NonceSource
	httpc  *http.Client
	log    logger.Logger
	rec    metrics.Recorder
}

// BroadcasterConfig carries the static pieces of the mint transaction.
type BroadcasterConfig struct {
	Network     types.Network
	CoreURL     string
	PrivateKey  string // hex, with or without the "01" compression suffix
	NFTContract types.ContractID
	Function    string
	FeeMicro    uint64
	Timeout     time.Duration
}

type BroadcasterOption func(*Broadcaster)

func WithBroadcasterLogger(l logger.Logger) BroadcasterOption {
	return func(b *Broadcaster) { b.log = l }
}

func WithBroadcasterMetrics(r metrics.Recorder) BroadcasterOption {
	return func(b *Broadcaster) { b.rec = r }
}

// NewBroadcaster parses the signing key and the NFT contract target.
func NewBroadcaster(cfg BroadcasterConfig, nonces NonceSource, opts ...BroadcasterOption) (*Broadcaster, error) {
	key, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	contractVersion, contractHash, err := DecodeAddress(cfg.NFTContract.Address)
	if err != nil {
		return nil, fmt.Errorf("nft contract: %w", err)
	}

	signer := hash160(crypto.CompressPubkey(&key.PublicKey))

	b := &Broadcaster{
		network:         cfg.Network,
		coreURL:         strings.TrimSuffix(cfg.CoreURL, "/"),
		key:             key,
		signer:          signer,
		signerAddr:      EncodeAddress(cfg.Network.AddressVersion(), signer),
		contractVersion: contractVersion,
		contractHash:    contractHash,
		contractName:    cfg.NFTContract.Name,
		function:        cfg.Function,
		fee:             cfg.FeeMicro,
		nonces:          nonces,
		httpc:           &http.Client{Timeout: cfg.Timeout},
		log:             logger.NoopLogger{},
		rec:             metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// SignerAddress is the c32check address of the minter hot wallet.
func (b *Broadcaster) SignerAddress() string {
	return b.signerAddr
}

// BroadcastMint submits a single mint call issuing the NFT to the
// recipient with the given token URI. Returns the new transaction id,
// a *RejectionError when the node refuses the transaction, or a plain
// error on transport faults. No retries.
func (b *Broadcaster) BroadcastMint(ctx context.Context, recipient, tokenURI string) (string, error) {
	nonce, err := b.nonces.AccountNonce(ctx, b.signerAddr)
	if err != nil {
		return "", fmt.Errorf("minter nonce: %w", err)
	}

	recipientCV, err := PrincipalCV(recipient)
	if err != nil {
		return "", fmt.Errorf("recipient: %w", err)
	}
	uriCV, err := StringASCIICV(tokenURI)
	if err != nil {
		return "", fmt.Errorf("token uri: %w", err)
	}

	tx := &ContractCallTx{
		Network:         b.network,
		Signer:          b.signer,
		Nonce:           nonce,
		Fee:             b.fee,
		ContractVersion: b.contractVersion,
		ContractHash:    b.contractHash,
		ContractName:    b.contractName,
		Function:        b.function,
		Args:            [][]byte{recipientCV, uriCV},
	}
	if err := tx.Sign(b.key); err != nil {
		return "", err
	}
	raw, err := tx.Bytes()
	if err != nil {
		return "", err
	}

	txid, err := b.submit(ctx, raw)
	if err != nil {
		return "", err
	}

	b.log.Info("mint transaction broadcast", map[string]any{
		"txid":      txid,
		"recipient": recipient,
		"nonce":     nonce,
	})
	return txid, nil
}

func (b *Broadcaster) submit(ctx context.Context, raw []byte) (string, error) {
	url := b.coreURL + "/v2/transactions"

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := b.httpc.Do(req)
	b.rec.ObserveLatency("broadcast", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("broadcast: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("broadcast: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		rejection := &RejectionError{}
		if err := json.Unmarshal(body, rejection); err != nil || rejection.Message == "" {
			rejection.Message = strings.TrimSpace(string(body))
		}
		return "", rejection
	}

	// the node answers with the txid as a JSON string, without prefix
	var txid string
	if err := json.Unmarshal(body, &txid); err != nil {
		txid = strings.Trim(strings.TrimSpace(string(body)), `"`)
	}
	if !strings.HasPrefix(txid, "0x") {
		txid = "0x" + txid
	}
	return txid, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	// Stacks tooling appends "01" to mark a compressed public key
	if len(hexKey) == 66 && strings.HasSuffix(hexKey, "01") {
		hexKey = hexKey[:64]
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("minter private key: %w", err)
	}
	return key, nil
}

func hash160(pub []byte) Hash160 {
	sum := sha256.Sum256(pub)
	r := ripemd160.New()
	r.Write(sum[:])

	var out Hash160
	copy(out[:], r.Sum(nil))
	return out
}
