// Package config sources the service configuration from the
// environment once at startup. The resulting Config is read-only and
// injected into every component; nothing reads the environment after
// process start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/pbtc21/bitcoinfaces/types"
)

// Verification and replay policy names. Policies are configuration, not
// code: tightening payment checks or enabling at-most-once fulfilment
// is a deployment change.
const (
	PolicyDestinationOnly = "destination-only"
	PolicyAmountChecked   = "amount-checked"

	ReplayPermitted  = "replay-permitted"
	ReplayAtMostOnce = "at-most-once"
)

type Config struct {
	HTTPAddr string `validate:"required"`
	LogLevel string

	Network types.Network `validate:"required,oneof=mainnet testnet"`

	// Hiro-compatible core/indexer API.
	LedgerAPIURL string `validate:"required,url"`

	// Bitcoin Faces generator API and the public base URL of this
	// service (used for preview/metadata links in mint responses).
	FacesAPIURL   string `validate:"required,url"`
	FacesImageURL string `validate:"required,url"`
	PublicBaseURL string `validate:"required,url"`

	// Payment target: the contract a qualifying transaction must call.
	PaymentContract string `validate:"required,contains=."`
	PaymentFunction string `validate:"required"`
	MintPriceMicro  int64  `validate:"gt=0"`

	// NFT contract the minter invokes.
	NFTContract  string `validate:"required,contains=."`
	MintFunction string `validate:"required"`

	// Hex-encoded signing key of the minter hot wallet. Empty means the
	// service runs in preview mode.
	MinterPrivateKey string
	TxFeeMicro       uint64 `validate:"gt=0"`

	VerificationPolicy string `validate:"oneof=destination-only amount-checked"`
	ReplayPolicy       string `validate:"oneof=replay-permitted at-most-once"`

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RequestTimeout time.Duration `validate:"gt=0"`
}

// FromEnv reads configuration from the environment, applies defaults
// and validates the result.
func FromEnv() (Config, error) {
	network := types.Network(envDefault("STACKS_NETWORK", "mainnet"))

	cfg := Config{
		HTTPAddr: envDefault("HTTP_ADDR", ":8080"),
		LogLevel: envDefault("LOG_LEVEL", "info"),

		Network:      network,
		LedgerAPIURL: envDefault("HIRO_API_URL", network.CoreAPIURL()),

		FacesAPIURL:   envDefault("FACES_API_URL", "https://bitcoinfaces.xyz/api"),
		FacesImageURL: envDefault("FACES_IMAGE_URL", "https://bitcoinfaces.xyz"),
		PublicBaseURL: envDefault("PUBLIC_BASE_URL", "https://bitcoin-faces.pbtc21.dev"),

		PaymentContract: envDefault("PAYMENT_CONTRACT", "SPP5ZMH9NQDFD2K5CEQZ6P02AP8YPWMQ75TJW20M.simple-oracle"),
		PaymentFunction: envDefault("PAYMENT_FUNCTION", "call-with-stx"),
		MintPriceMicro:  envInt64Default("MINT_PRICE_USTX", 1),

		NFTContract:  envDefault("NFT_CONTRACT", "SP2QXPFF4M72QYZWXE7S5321XJDJ2DD32DGEMN5QA.bitcoin-faces-nft"),
		MintFunction: envDefault("MINT_FUNCTION", "mint-with-uri"),

		MinterPrivateKey: os.Getenv("MINTER_PRIVATE_KEY"),
		TxFeeMicro:       uint64(envInt64Default("TX_FEE_USTX", 3000)),

		VerificationPolicy: envDefault("VERIFICATION_POLICY", PolicyDestinationOnly),
		ReplayPolicy:       envDefault("REPLAY_POLICY", ReplayPermitted),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       int(envInt64Default("REDIS_DB", 0)),

		RequestTimeout: time.Duration(envInt64Default("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration, including that both contract
// identifiers parse.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &types.ServiceError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("invalid configuration: %v", err),
		}
	}
	if _, err := types.ParseContractID(c.PaymentContract); err != nil {
		return err
	}
	if _, err := types.ParseContractID(c.NFTContract); err != nil {
		return err
	}
	return nil
}

// MinterEnabled reports whether the process holds a signing credential.
// Fixed at startup; requests never mutate it.
func (c Config) MinterEnabled() bool {
	return c.MinterPrivateKey != ""
}

// PriceDisplay renders the micro-STX price in whole STX, e.g.
// "0.000001 STX".
func (c Config) PriceDisplay() string {
	stx := decimal.New(c.MintPriceMicro, -6)
	return stx.String() + " STX"
}

// PriceMicro returns the configured price as a decimal for amount
// comparisons.
func (c Config) PriceMicro() decimal.Decimal {
	return decimal.NewFromInt(c.MintPriceMicro)
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envInt64Default(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
