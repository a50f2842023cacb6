// Package fetch is the rate-limited, retrying HTTP GET client shared by the
// market data and screener adapters.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultRequestsPerSec  = 5.0
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxElapsed      = 30 * time.Second
	DefaultUserAgent       = "Mozilla/5.0 (compatible; whale-tracker/1.0)"
)

// maxBodyBytes caps response bodies read into memory.
const maxBodyBytes = 8 << 20

// StatusError is returned when the upstream answers with a non-200 status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Retryable reports whether a later attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client performs GET requests through a shared token bucket with exponential backoff.
type Client struct {
	client          *http.Client
	limiter         *rate.Limiter
	initialInterval time.Duration
	maxElapsed      time.Duration
	userAgent       string
	logger          zerolog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithRateLimit sets the request budget. Zero or negative disables limiting.
func WithRateLimit(requestsPerSec float64) Option {
	return func(c *Client) {
		if requestsPerSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSec)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSec), burst)
	}
}

// WithLimiter shares an existing limiter between clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithRetry sets the first backoff interval and the total retry budget.
// A zero maxElapsed disables retries.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = initial
		c.maxElapsed = maxElapsed
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client with defaults applied before options.
func New(opts ...Option) *Client {
	c := &Client{
		client:          &http.Client{Timeout: DefaultTimeout},
		limiter:         rate.NewLimiter(rate.Limit(DefaultRequestsPerSec), int(DefaultRequestsPerSec)),
		initialInterval: DefaultInitialInterval,
		maxElapsed:      DefaultMaxElapsed,
		userAgent:       DefaultUserAgent,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url and returns the body of a 200 response.
// Transport errors, 429 and 5xx are retried; other statuses fail immediately.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var (
		body    []byte
		attempt int
	)

	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "*/*")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{StatusCode: resp.StatusCode, URL: req.URL.Path, Body: truncate(string(data), 200)}
			if !statusErr.Retryable() {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		body = data
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("retrying request")
	}

	if err := backoff.RetryNotify(operation, c.backOff(ctx), notify); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Err
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	if c.maxElapsed <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxElapsedTime = c.maxElapsed
	return backoff.WithContext(b, ctx)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
