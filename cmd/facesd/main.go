package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pbtc21/bitcoinfaces/clients"
	"github.com/pbtc21/bitcoinfaces/config"
	"github.com/pbtc21/bitcoinfaces/logger"
	"github.com/pbtc21/bitcoinfaces/metadata"
	"github.com/pbtc21/bitcoinfaces/metrics"
	"github.com/pbtc21/bitcoinfaces/mint"
	"github.com/pbtc21/bitcoinfaces/replay"
	"github.com/pbtc21/bitcoinfaces/server"
	"github.com/pbtc21/bitcoinfaces/stacks"
	"github.com/pbtc21/bitcoinfaces/types"
	"github.com/pbtc21/bitcoinfaces/verification"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.LogLevel)
	defer log.Sync()
	rec := metrics.NewPrometheusRecorder()

	hiro := clients.NewHiroClient(cfg.LedgerAPIURL, cfg.RequestTimeout,
		clients.WithHiroLogger(log),
		clients.WithHiroMetrics(rec),
	)
	faces := clients.NewFacesClient(cfg.FacesAPIURL, cfg.RequestTimeout,
		clients.WithFacesLogger(log),
		clients.WithFacesMetrics(rec),
	)

	verifierOpts := []verification.Option{
		verification.WithLogger(log),
		verification.WithMetrics(rec),
		verification.WithTimeout(cfg.RequestTimeout),
	}
	if cfg.VerificationPolicy == config.PolicyAmountChecked {
		verifierOpts = append(verifierOpts,
			verification.WithPolicy(verification.PolicyAmountChecked, cfg.PriceMicro()))
	}
	verifier := verification.NewVerifier(hiro, cfg.PaymentContract, verifierOpts...)

	builder := metadata.NewBuilder(cfg.FacesImageURL)

	orchOpts := []mint.Option{
		mint.WithLogger(log),
		mint.WithMetrics(rec),
		mint.WithTimeout(cfg.RequestTimeout),
	}

	if cfg.MinterEnabled() {
		nftContract, err := types.ParseContractID(cfg.NFTContract)
		if err != nil {
			log.Error("invalid nft contract", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		broadcaster, err := stacks.NewBroadcaster(stacks.BroadcasterConfig{
			Network:     cfg.Network,
			CoreURL:     cfg.LedgerAPIURL,
			PrivateKey:  cfg.MinterPrivateKey,
			NFTContract: nftContract,
			Function:    cfg.MintFunction,
			FeeMicro:    cfg.TxFeeMicro,
			Timeout:     cfg.RequestTimeout,
		}, hiro,
			stacks.WithBroadcasterLogger(log),
			stacks.WithBroadcasterMetrics(rec),
		)
		if err != nil {
			log.Error("broadcaster init failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		log.Info("minter enabled", map[string]any{"signer": broadcaster.SignerAddress()})
		orchOpts = append(orchOpts, mint.WithBroadcaster(broadcaster))
	}

	if cfg.ReplayPolicy == config.ReplayAtMostOnce {
		var store replay.Store
		if cfg.RedisAddr != "" {
			store, err = replay.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 0)
			if err != nil {
				log.Error("redis store init failed", map[string]any{"error": err.Error()})
				os.Exit(1)
			}
		} else {
			store = replay.NewMemoryStore(0)
		}
		orchOpts = append(orchOpts, mint.WithConsumedStore(store))
	}

	orchestrator := mint.New(verifier, faces, builder, cfg.PublicBaseURL, orchOpts...)

	srv := server.NewServer(cfg, server.Deps{
		Minter:         orchestrator,
		Assets:         faces,
		Builder:        builder,
		Logger:         log,
		MetricsHandler: rec.Handler(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", map[string]any{"error": err.Error()})
		}
	}
}
