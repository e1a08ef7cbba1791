package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbtc21/bitcoinfaces/types"
)

func validConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		Network:            types.NetworkMainnet,
		LedgerAPIURL:       "https://api.hiro.so",
		FacesAPIURL:        "https://bitcoinfaces.xyz/api",
		FacesImageURL:      "https://bitcoinfaces.xyz",
		PublicBaseURL:      "https://bitcoin-faces.pbtc21.dev",
		PaymentContract:    "SPP5ZMH9NQDFD2K5CEQZ6P02AP8YPWMQ75TJW20M.simple-oracle",
		PaymentFunction:    "call-with-stx",
		MintPriceMicro:     1,
		NFTContract:        "SP2QXPFF4M72QYZWXE7S5321XJDJ2DD32DGEMN5QA.bitcoin-faces-nft",
		MintFunction:       "mint-with-uri",
		TxFeeMicro:         3000,
		VerificationPolicy: PolicyDestinationOnly,
		ReplayPolicy:       ReplayPermitted,
		RequestTimeout:     30 * time.Second,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsBadContract(t *testing.T) {
	cfg := validConfig()
	cfg.PaymentContract = "no-dot-here"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.NFTContract = ".missing-address"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	cfg := validConfig()
	cfg.VerificationPolicy = "trust-me"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.ReplayPolicy = "sometimes"
	assert.Error(t, cfg.Validate())
}

func TestMinterEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.MinterEnabled())

	cfg.MinterPrivateKey = "abc123"
	assert.True(t, cfg.MinterEnabled())
}

func TestPriceDisplay(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.000001 STX", cfg.PriceDisplay())

	cfg.MintPriceMicro = 1_500_000
	assert.Equal(t, "1.5 STX", cfg.PriceDisplay())
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, types.NetworkMainnet, cfg.Network)
	assert.Equal(t, "https://api.hiro.so", cfg.LedgerAPIURL)
	assert.Equal(t, int64(1), cfg.MintPriceMicro)
	assert.Equal(t, PolicyDestinationOnly, cfg.VerificationPolicy)
	assert.Equal(t, ReplayPermitted, cfg.ReplayPolicy)
	assert.False(t, cfg.MinterEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STACKS_NETWORK", "testnet")
	t.Setenv("MINT_PRICE_USTX", "5000")
	t.Setenv("VERIFICATION_POLICY", PolicyAmountChecked)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, types.NetworkTestnet, cfg.Network)
	assert.Equal(t, "https://api.testnet.hiro.so", cfg.LedgerAPIURL)
	assert.Equal(t, int64(5000), cfg.MintPriceMicro)
	assert.Equal(t, PolicyAmountChecked, cfg.VerificationPolicy)
}
