package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/deusflow/ofertas/internal/deals"
	"github.com/deusflow/ofertas/internal/retry"
)

const (
	DefaultAPIURL = "https://api.telegram.org"

	// Telegram rejects photo captions above this many characters.
	maxCaptionRunes = 1024
)

type Config struct {
	Token      string
	ChatID     string
	APIURL     string
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
}

// Client posts deals to a Telegram chat or channel.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With().Str("component", "telegram").Logger(),
	}
}

// Publish posts cand as a photo with caption, falling back to a text message
// when there is no image, the caption is too long, or Telegram refused the
// photo. A photo send with an unknown outcome is not followed by a text
// message, since the photo may already be in the channel.
func (c *Client) Publish(ctx context.Context, cand deals.Candidate) error {
	text := FormatMessage(cand)

	if cand.Product.ImageURL != "" && utf8.RuneCountInString(text) <= maxCaptionRunes {
		err := c.SendPhoto(ctx, cand.Product.ImageURL, text)
		if err == nil {
			return nil
		}
		if !IsRefused(err) {
			return err
		}
		c.log.Warn().Err(err).Str("id", cand.Product.ID).Msg("Photo refused, retrying as text")
	}

	return c.SendMessage(ctx, text)
}

// SendMessage sends an HTML text message with link preview enabled.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  c.cfg.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": false,
	}
	if err := c.call(ctx, "sendMessage", payload); err != nil {
		return fmt.Errorf("can't send message: %w", err)
	}
	c.log.Info().Msg("Message sent to Telegram (text only)")
	return nil
}

// SendPhoto sends a photo by URL with an HTML caption.
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) error {
	payload := map[string]interface{}{
		"chat_id":    c.cfg.ChatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if err := c.call(ctx, "sendPhoto", payload); err != nil {
		return fmt.Errorf("can't send photo: %w", err)
	}
	c.log.Info().Msg("Message sent to Telegram (with photo)")
	return nil
}

func (c *Client) call(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	return retry.WithRetry(ctx, retry.RetryConfig{
		MaxAttempts: c.cfg.Attempts,
		Delay:       c.cfg.RetryDelay,
		Backoff:     true,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.log.Warn().
				Err(err).
				Str("method", method).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("Telegram request failed, retrying")
		},
	}, func() error {
		return c.callOnce(ctx, method, body)
	})
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// APIError is a reply from Telegram that did not accept the request.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: status %d: %s", e.StatusCode, e.Description)
}

// IsRefused reports whether err is a 4xx reply, meaning Telegram did not
// post anything.
func IsRefused(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

func (c *Client) callOnce(ctx context.Context, method string, body []byte) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.Token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("error build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		// The request URL carries the bot token; keep it out of errors.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		err = fmt.Errorf("error HTTP request %s: %w", method, err)
		// Only a failed dial proves nothing reached Telegram. Any later
		// failure, timeouts included, may follow a delivered message.
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return err
		}
		return retry.Permanent(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed apiResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode == http.StatusOK && parsed.OK {
		return nil
	}

	err = &APIError{StatusCode: resp.StatusCode, Description: parsed.Description}
	// 4xx other than 429 will not succeed on retry.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
