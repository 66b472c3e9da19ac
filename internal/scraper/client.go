package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/deusflow/ofertas/internal/deals"
	"github.com/deusflow/ofertas/internal/ratelimit"
	"github.com/deusflow/ofertas/internal/retry"
)

// maxPageBytes bounds how much of a listing page is read.
const maxPageBytes = 8 << 20

// Browser-like headers. Accept-Encoding is left to the transport so that
// gzip bodies are decoded transparently.
var defaultHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "es-ES,es;q=0.9,en;q=0.8",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

type Config struct {
	BaseURL    string
	PartnerTag string
	MaxResults int
	Timeout    time.Duration

	// Pacing before every request.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Attempts per page; waits grow linearly from RetryDelay with up to
	// RetryDelay of jitter.
	Attempts   int
	RetryDelay time.Duration
}

// Client fetches category listings and extracts their products. It keeps
// cookies across requests like a browser session.
type Client struct {
	cfg    Config
	http   *http.Client
	pacer  *ratelimit.Pacer
	log    zerolog.Logger
	header http.Header
}

func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	header := make(http.Header, len(defaultHeaders)+1)
	for k, v := range defaultHeaders {
		header.Set(k, v)
	}
	header.Set("Referer", strings.TrimRight(cfg.BaseURL, "/")+"/")

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Jar: jar},
		pacer:  ratelimit.NewPacer(cfg.MinDelay, cfg.MaxDelay),
		log:    log.With().Str("component", "scraper").Logger(),
		header: header,
	}, nil
}

// FetchCategory downloads the listing of cat and extracts its products.
func (c *Client) FetchCategory(ctx context.Context, cat deals.Category) ([]deals.Product, error) {
	pageURL := strings.TrimRight(c.cfg.BaseURL, "/") + cat.Query

	body, err := c.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", cat.Name, err)
	}

	products, err := ExtractProducts(bytes.NewReader(body), ExtractOptions{
		BaseURL:    c.cfg.BaseURL,
		PartnerTag: c.cfg.PartnerTag,
		Limit:      c.cfg.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", cat.Name, err)
	}
	return products, nil
}

// FetchPage returns the body of pageURL, retrying failed attempts.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	var body []byte
	err := retry.WithRetry(ctx, retry.RetryConfig{
		MaxAttempts: c.cfg.Attempts,
		Delay:       c.cfg.RetryDelay,
		Backoff:     true,
		Jitter:      c.cfg.RetryDelay,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", c.cfg.Attempts).
				Dur("wait", wait).
				Msg("Page fetch failed, retrying")
		},
	}, func() error {
		if err := c.pacer.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		b, err := c.get(ctx, pageURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		c.log.Error().Err(err).Str("url", pageURL).Msg("Giving up on page")
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("error building request: %w", err))
	}
	req.Header = c.header.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading page: %w", err)
	}
	return body, nil
}
