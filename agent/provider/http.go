package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	maxResponseSizeBytes = 1 << 20
	userAgent            = "crop-advisor-bot/1.0"
)

// getter performs rate-limited GET requests and hands back the raw status and
// body. Decoding and outcome classification stay with each provider.
type getter struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newGetter(cfg Config, client *http.Client) *getter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &getter{
		httpClient: client,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (g *getter) get(ctx context.Context, endpoint string, query url.Values) (int, []byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limit wait: %w", err)
	}

	target := strings.TrimSpace(endpoint)
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	log.Debug().
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Int("bytes", len(body)).
		Msg("provider response")

	return resp.StatusCode, body, nil
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%g", v)
}
