package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pbtc21/bitcoinfaces/logger"
	"github.com/pbtc21/bitcoinfaces/metrics"
	"github.com/pbtc21/bitcoinfaces/types"
)

// FacesClient fetches generated artwork from the Bitcoin Faces API.
type FacesClient struct {
	baseURL string
	httpc   *http.Client
	log     logger.Logger
	rec     metrics.Recorder
}

type FacesOption func(*FacesClient)

func WithFacesLogger(l logger.Logger) FacesOption {
	return func(c *FacesClient) { c.log = l }
}

func WithFacesMetrics(r metrics.Recorder) FacesOption {
	return func(c *FacesClient) { c.rec = r }
}

func NewFacesClient(baseURL string, timeout time.Duration, opts ...FacesOption) *FacesClient {
	c := &FacesClient{
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

// FetchFace retrieves the SVG and the deterministic hash seed for an
// address. Both lookups are issued concurrently; the SVG fetch failing
// fails the call, the seed fetch failing only drops the seed.
func (c *FacesClient) FetchFace(ctx context.Context, address string) (*types.Asset, error) {
	asset := &types.Asset{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svg, err := c.fetchSVG(gctx, address)
		if err != nil {
			return err
		}
		asset.SVG = svg
		return nil
	})

	g.Go(func() error {
		seed, err := c.fetchHashSeed(gctx, address)
		if err != nil {
			// Seed is decoration; never abort the fetch over it.
			c.log.Debug("hash seed fetch failed", map[string]any{
				"address": address,
				"error":   err.Error(),
			})
			return nil
		}
		asset.HashSeed = seed
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, &types.ServiceError{
			Code:    types.ErrAssetFetch,
			Message: fmt.Sprintf("face fetch for %s: %v", address, err),
		}
	}
	return asset, nil
}

func (c *FacesClient) fetchSVG(ctx context.Context, address string) (string, error) {
	u := fmt.Sprintf("%s/get-svg-code?name=%s", c.baseURL, url.QueryEscape(address))

	start := time.Now()
	body, err := c.get(ctx, u)
	c.rec.ObserveLatency("faces", time.Since(start))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *FacesClient) fetchHashSeed(ctx context.Context, address string) ([]int, error) {
	u := fmt.Sprintf("%s/get-hash-array?name=%s", c.baseURL, url.QueryEscape(address))

	start := time.Now()
	body, err := c.get(ctx, u)
	c.rec.ObserveLatency("faces", time.Since(start))
	if err != nil {
		return nil, err
	}

	// The generator has served both {"hashArray": [...]} and a bare
	// array over time; accept either.
	var wrapped struct {
		HashArray []int `json:"hashArray"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.HashArray) > 0 {
		return wrapped.HashArray, nil
	}
	var bare []int
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, fmt.Errorf("hash seed decode: %w", err)
	}
	return bare, nil
}

func (c *FacesClient) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
