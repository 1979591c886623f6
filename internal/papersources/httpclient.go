package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// Retry controls which responses are retried and how long to wait between attempts.
	Retry RetryPolicy

	// Transport overrides the underlying round tripper. A nil value uses a
	// pooled transport shared by every request made through the client.
	Transport http.RoundTripper
}

// RetryPolicy describes how transient upstream failures are retried.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts after the first request.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration

	// RetryableStatuses lists the HTTP status codes that trigger a retry.
	RetryableStatuses []int

	// Backoff computes the delay before retry number attempt (starting at 0).
	// When nil, ExponentialBackoff is used.
	Backoff func(attempt int, base, max time.Duration) time.Duration
}

// DefaultRetryableStatuses are the transient statuses retried by default.
var DefaultRetryableStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		RetryableStatuses: DefaultRetryableStatuses,
		Backoff:           ExponentialBackoff,
	}
}

// ExponentialBackoff doubles base for each attempt, capped at max.
func ExponentialBackoff(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// StatusError is returned when retries are exhausted on a retryable status.
type StatusError struct {
	StatusCode int
	Attempts   int

	// RetryAfter is the delay the last response asked for, capped by the policy.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("max retries exhausted after %d attempts, last status: %d", e.Attempts, e.StatusCode)
}

// sharedTransport is reused by every client so connections are pooled process-wide.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// HTTPClient wraps http.Client with rate limiting and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
	retryable   map[int]bool
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client applies rate limiting before each request and retries
// the statuses listed by the retry policy.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "citegraph-service/1.0"
	}

	defaults := DefaultRetryPolicy()
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	} else if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = defaults.MaxRetries
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = defaults.BaseDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = defaults.MaxDelay
	}
	if len(cfg.Retry.RetryableStatuses) == 0 {
		cfg.Retry.RetryableStatuses = defaults.RetryableStatuses
	}
	if cfg.Retry.Backoff == nil {
		cfg.Retry.Backoff = defaults.Backoff
	}

	transport := cfg.Transport
	if transport == nil {
		transport = sharedTransport
	}

	retryable := make(map[int]bool, len(cfg.Retry.RetryableStatuses))
	for _, code := range cfg.Retry.RetryableStatuses {
		retryable[code] = true
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
		retryable:   retryable,
	}
}

// Do executes an HTTP request with rate limiting and retries.
// It waits for the rate limiter before each attempt and retries
// retryable statuses with exponential backoff, honouring Retry-After.
// When retries are exhausted on a retryable status a *StatusError is returned.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	maxRetries := c.config.Retry.MaxRetries

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < maxRetries {
				if err := c.waitForRetry(req.Context(), c.backoff(attempt)); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}
			return nil, lastErr
		}

		if !c.shouldRetry(resp.StatusCode) {
			return resp, nil
		}

		retryDelay := c.getRetryDelay(resp, attempt)

		// Drain so the connection returns to the pool.
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt < maxRetries {
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			if err := c.waitForRetry(req.Context(), retryDelay); err != nil {
				return nil, err
			}
			if err := c.resetRequestBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
			continue
		}

		return nil, &StatusError{StatusCode: resp.StatusCode, Attempts: maxRetries + 1, RetryAfter: retryDelay}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

// shouldRetry returns true if the status code is in the retry policy.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	return c.retryable[statusCode]
}

func (c *HTTPClient) backoff(attempt int) time.Duration {
	p := c.config.Retry
	return p.Backoff(attempt, p.BaseDelay, p.MaxDelay)
}

// getRetryDelay determines how long to wait before retrying.
// It respects the Retry-After header if present, otherwise uses the backoff function.
func (c *HTTPClient) getRetryDelay(resp *http.Response, attempt int) time.Duration {
	fallback := c.backoff(attempt)

	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return fallback
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return c.capDelay(time.Duration(seconds) * time.Second)
		}
		return fallback
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return c.capDelay(delay)
		}
	}

	return fallback
}

func (c *HTTPClient) capDelay(d time.Duration) time.Duration {
	if max := c.config.Retry.MaxDelay; max > 0 && d > max {
		return max
	}
	return d
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
