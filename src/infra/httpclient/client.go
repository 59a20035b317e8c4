// Package httpclient is the outbound HTTP client shared by the watchers.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 32 << 20

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

// Client performs rate-limited HTTP requests with retries.
type Client struct {
	retry     *retryablehttp.Client
	limiter   *rate.Limiter
	userAgent string
}

type Option func(c *Client)

// New creates a Client. By default it retries twice, never rate limits and
// logs retries through the default slog logger at debug level.
func New(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)
	// Hand the last response back once retries run out so its status is reported.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		retry:     rc,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		userAgent: "fswatcher/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRetryMax sets how many times a failed request is retried. Zero sends
// every request exactly once.
func WithRetryMax(retryMax int) Option {
	return func(c *Client) {
		c.retry.RetryMax = retryMax
	}
}

// WithRetryWait bounds the backoff between attempts.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		c.retry.RetryWaitMin = min
		c.retry.RetryWaitMax = max
	}
}

// WithTimeout sets the timeout of a single attempt. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.retry.HTTPClient.Timeout = timeout
	}
}

// WithRateLimit allows at most requestsPerSecond requests, zero meaning unlimited.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// Get fetches url and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(ctx, req)
}

// GetJSON fetches url and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// PostJSON sends payload as a JSON request body to url.
func (c *Client) PostJSON(ctx context.Context, url string, payload []byte) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(ctx, req)
	return err
}

func (c *Client) do(ctx context.Context, req *retryablehttp.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
