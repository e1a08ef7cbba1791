// Package server exposes the x402 HTTP surface: service descriptor,
// free preview/metadata routes and the payment-gated mint route.
package server

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pbtc21/bitcoinfaces/config"
	"github.com/pbtc21/bitcoinfaces/logger"
	"github.com/pbtc21/bitcoinfaces/mint"
	"github.com/pbtc21/bitcoinfaces/types"
)

// stacksAddressPattern guards the free routes; requests failing it are
// rejected before any external call.
var stacksAddressPattern = regexp.MustCompile(`^S[PM][A-Z0-9]{38,40}$`)

// Minter is the mint state machine as the HTTP layer sees it.
type Minter interface {
	Mint(ctx context.Context, proof string) *types.MintOutcome
}

// Deps carries the collaborators the server routes to.
type Deps struct {
	Minter  Minter
	Assets  mint.AssetProvider
	Builder MetadataBuilder
	Logger  logger.Logger

	// Optional /metrics handler (the prometheus recorder's registry).
	MetricsHandler http.Handler
}

// MetadataBuilder is the pure metadata contract the free routes use.
type MetadataBuilder interface {
	Build(address string, seed []int) types.Metadata
	ImageURL(address string) string
}

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	minter Minter
	assets mint.AssetProvider
	meta   MetadataBuilder
	log    logger.Logger

	httpServer *http.Server
}

// NewServer wires the routes. All responses are JSON except the raw
// SVG preview.
func NewServer(cfg config.Config, deps Deps) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	log := deps.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}

	s := &Server{
		cfg:    cfg,
		r:      r,
		minter: deps.Minter,
		assets: deps.Assets,
		meta:   deps.Builder,
		log:    log,
	}

	r.GET("/", s.handleInfo)
	r.GET("/preview/:address", s.handlePreview)
	r.GET("/metadata/:address", s.handleMetadata)
	r.POST("/mint", s.handleMint)
	r.GET("/healthz", s.handleHealthz)
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	s.log.Info("listening", map[string]any{
		"addr":    s.cfg.HTTPAddr,
		"network": s.cfg.Network,
		"minter":  s.cfg.MinterEnabled(),
	})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware allows any origin; all routes are public.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type,"+types.PaymentHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
