package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pbtc21/bitcoinfaces/types"
)

// paymentRequiredTTL is the advertised lifetime of a 402 challenge.
// Informational only: nothing server-side records the nonce or expiry.
const paymentRequiredTTL = 10 * time.Minute

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Bitcoin Faces NFT",
		"version":     "1.0.0",
		"description": "Mint unique Bitcoin Face NFTs based on your Stacks address",
		"protocol":    "x402",
		"endpoints": gin.H{
			"GET /":                  "API info and pricing",
			"GET /preview/:address":  "Preview your Bitcoin Face (free)",
			"GET /metadata/:address": "Get NFT metadata (free)",
			"POST /mint":             "Mint Bitcoin Face NFT to sender (x402 payment required)",
		},
		"pricing": gin.H{
			"/mint": gin.H{
				"price":       s.cfg.MintPriceMicro,
				"token":       "STX",
				"display":     s.cfg.PriceDisplay(),
				"description": "Mint a unique Bitcoin Face NFT to your wallet",
			},
		},
		"payment": gin.H{
			"contract": s.cfg.PaymentContract,
			"header":   types.PaymentHeader,
			"network":  s.cfg.Network.String(),
		},
		"nft_contract": s.cfg.NFTContract,
		"powered_by":   []string{"x402", "bitcoinfaces.xyz", "stacks"},
	})
}

func (s *Server) handlePreview(c *gin.Context) {
	address := c.Param("address")
	if !stacksAddressPattern.MatchString(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Stacks address format"})
		return
	}

	asset, err := s.assets.FetchFace(c.Request.Context(), address)
	if err != nil {
		s.log.Error("preview fetch failed", map[string]any{
			"address": address,
			"error":   err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate Bitcoin Face"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("X-Bitcoin-Face-Address", address)
	c.Data(http.StatusOK, "image/svg+xml", []byte(asset.SVG))
}

func (s *Server) handleMetadata(c *gin.Context) {
	address := c.Param("address")
	if !stacksAddressPattern.MatchString(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Stacks address format"})
		return
	}

	asset, err := s.assets.FetchFace(c.Request.Context(), address)
	if err != nil {
		s.log.Error("metadata fetch failed", map[string]any{
			"address": address,
			"error":   err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate Bitcoin Face"})
		return
	}

	c.JSON(http.StatusOK, s.meta.Build(address, asset.HashSeed))
}

func (s *Server) handleMint(c *gin.Context) {
	proof := c.GetHeader(types.PaymentHeader)
	if proof == "" {
		s.respondPaymentRequired(c)
		return
	}

	outcome := s.minter.Mint(c.Request.Context(), proof)
	switch outcome.Status {
	case types.StatusPaymentInvalid:
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Payment verification failed",
			"details": outcome.Verdict.Describe(),
		})
	case types.StatusPreview:
		c.JSON(http.StatusOK, gin.H{
			"status":           "preview",
			"message":          "NFT contract deployment pending. Your Bitcoin Face has been generated.",
			"payment_verified": true,
			"sender":           outcome.Sender,
			"bitcoin_face":     s.faceURLs(outcome.Sender),
			"metadata":         outcome.Metadata,
			"note":             "Once the NFT contract is deployed, your Bitcoin Face will be minted automatically.",
		})
	case types.StatusMinted:
		c.JSON(http.StatusOK, gin.H{
			"status":       "minted",
			"message":      "Your Bitcoin Face NFT has been minted!",
			"mint_txid":    outcome.MintTxID,
			"payment_txid": outcome.PaymentTxID,
			"recipient":    outcome.Sender,
			"bitcoin_face": s.faceURLs(outcome.Sender),
			"metadata":     outcome.Metadata,
			"explorer":     s.cfg.Network.ExplorerTxURL(outcome.MintTxID),
		})
	default: // StatusMintFailed
		errMsg := "Mint transaction failed"
		if outcome.BroadcastRejected {
			errMsg = "Mint failed"
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":            errMsg,
			"details":          outcome.FailureDetail,
			"payment_received": true,
			"payment_txid":     outcome.PaymentTxID,
		})
	}
}

// respondPaymentRequired emits the x402 challenge describing how to
// pay. The nonce is fresh per call and the expiry is a fixed horizon.
func (s *Server) respondPaymentRequired(c *gin.Context) {
	c.JSON(http.StatusPaymentRequired, gin.H{
		"error":    "Payment Required",
		"code":     "PAYMENT_REQUIRED",
		"resource": "/mint",
		"payment": gin.H{
			"contract":  s.cfg.PaymentContract,
			"function":  s.cfg.PaymentFunction,
			"price":     s.cfg.MintPriceMicro,
			"token":     "STX",
			"recipient": s.paymentRecipient(),
			"network":   s.cfg.Network.String(),
		},
		"instructions": []string{
			"1. Call the contract function with STX payment",
			"2. Wait for transaction confirmation",
			"3. Retry request with X-Payment header containing txid",
		},
		"nonce":       uuid.NewString(),
		"expiresAt":   time.Now().UTC().Add(paymentRequiredTTL).Format(time.RFC3339),
		"description": "Mint a unique Bitcoin Face NFT based on your address",
	})
}

func (s *Server) handleHealthz(c *gin.Context) {
	mode := "preview"
	if s.cfg.MinterEnabled() {
		mode = "minting"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
}

func (s *Server) faceURLs(address string) gin.H {
	return gin.H{
		"image_url":    s.meta.ImageURL(address),
		"preview_url":  s.cfg.PublicBaseURL + "/preview/" + address,
		"metadata_url": s.cfg.PublicBaseURL + "/metadata/" + address,
	}
}

func (s *Server) paymentRecipient() string {
	id, err := types.ParseContractID(s.cfg.PaymentContract)
	if err != nil {
		return s.cfg.PaymentContract
	}
	return id.Address
}
