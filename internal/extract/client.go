// Package extract produces named datasets from the two upstream sources: the
// Fake Store API and the Olist CSV directory. The API side rides on a small
// retrying HTTP client; the CSV side reads files tolerantly (BOM, lazy
// quotes, messy headers) and maps empty cells to nulls the way a dataframe
// reader would.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ClientConfig tunes the retrying HTTP client. Zero values get defaults:
// 30s timeout, no retries, 200ms initial backoff capped at 5s.
type ClientConfig struct {
	Timeout        time.Duration
	MaxRetries     int           // retries after the initial attempt
	InitialBackoff time.Duration // doubles on every retry
	MaxBackoff     time.Duration
	Transport      http.RoundTripper // optional, mainly for tests
}

// Client issues GETs against JSON endpoints, retrying transient failures
// with exponential backoff.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// sleep replaces the backoff timer in tests. Nil means a real wait.
	sleep func(time.Duration)
}

// NewClient builds a Client, substituting defaults for zero config fields.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}
}

// Get fetches url, retrying network errors and 429/5xx responses until the
// retry budget runs out. On success the caller owns the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("extract: url must not be empty")
	}

	var lastErr error
	for retry := 0; ; retry++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("extract: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case retryable(resp.StatusCode):
			resp.Body.Close()
			lastErr = fmt.Errorf("extract: retryable status %d from GET %s", resp.StatusCode, url)
		default:
			return resp, nil
		}

		if retry == c.maxRetries {
			return nil, lastErr
		}
		if err := c.wait(ctx, c.backoff(retry)); err != nil {
			return nil, err
		}
	}
}

// GetJSON fetches url and decodes the JSON response into out. A final
// non-2xx response is an error.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("extract: status %d from GET %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("extract: decode %s: %w", url, err)
	}
	return nil
}

// wait blocks for d or until ctx is done.
func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if c.sleep != nil {
		c.sleep(d)
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff returns the wait before the given 0-based retry: the initial
// backoff doubled per retry, clamped at the configured maximum.
func (c *Client) backoff(retry int) time.Duration {
	d := c.initialBackoff
	for ; retry > 0; retry-- {
		d *= 2
		if d >= c.maxBackoff {
			return c.maxBackoff
		}
	}
	if d > c.maxBackoff {
		return c.maxBackoff
	}
	return d
}

// retryable reports whether an HTTP status is worth another attempt. 429 and
// the 5xx range count as transient; everything else is final.
func retryable(status int) bool {
	switch {
	case status == http.StatusTooManyRequests:
		return true
	case status >= 500 && status < 600:
		return true
	}
	return false
}
