// Package transport is the authenticated JSON-over-HTTP client shared by the
// ticket source and messaging clients. It owns the concerns the pipeline
// should not see: rate limiting, a concurrency gate, per-attempt timeouts,
// retry with exponential backoff, and a per-host circuit breaker.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const userAgent = "dupesweep"

// maxErrorBody bounds the response body quoted in a RequestError message
const maxErrorBody = 200

// Config holds retry, rate limit and circuit breaker settings
type Config struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-attempt timeout (default: 30s)

	// RequestsPerSecond limits the request rate toward one host (0 = unlimited)
	RequestsPerSecond float64
	Burst             int

	// MaxConcurrentCalls bounds in-flight requests (0 = unlimited)
	MaxConcurrentCalls int64

	CircuitBreakerEnabled bool          // Enable circuit breaker (default: true)
	FailureThreshold      int           // Failures before opening circuit (default: 5)
	SuccessThreshold      int           // Successes in half-open before closing (default: 2)
	OpenTimeout           time.Duration // How long to keep circuit open (default: 30s)
}

// DefaultConfig returns the default transport configuration. Zendesk's
// standard plan allows 700 requests/minute, so 10/s leaves headroom.
func DefaultConfig() Config {
	return Config{
		MaxRetries:            3,
		InitialBackoff:        1 * time.Second,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
		Timeout:               30 * time.Second,
		RequestsPerSecond:     10,
		Burst:                 1,
		MaxConcurrentCalls:    1,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           30 * time.Second,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0 and 10 (got %d)", c.MaxRetries)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive (got %v)", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must be >= initial_backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}
	if c.BackoffMultiplier < 1.0 {
		return fmt.Errorf("backoff_multiplier must be >= 1.0 (got %.2f)", c.BackoffMultiplier)
	}
	if c.Timeout <= 0 || c.Timeout > 5*time.Minute {
		return fmt.Errorf("timeout must be between 0 and 5 minutes (got %v)", c.Timeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative (got %.2f)", c.RequestsPerSecond)
	}
	if c.MaxConcurrentCalls < 0 {
		return fmt.Errorf("max_concurrent_calls cannot be negative (got %d)", c.MaxConcurrentCalls)
	}
	if c.CircuitBreakerEnabled && (c.FailureThreshold <= 0 || c.SuccessThreshold <= 0) {
		return fmt.Errorf("circuit breaker thresholds must be positive (failure=%d, success=%d)",
			c.FailureThreshold, c.SuccessThreshold)
	}
	return nil
}

// Credentials is an HTTP basic auth pair
type Credentials struct {
	Username string
	Password string
}

// RequestError is a non-success HTTP response. It carries enough detail to
// report the failure; callers decide whether to abort.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *RequestError) Error() string {
	body := truncate(strings.TrimSpace(e.Body), maxErrorBody)
	if body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Temporary reports whether the same request may succeed later
func (e *RequestError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a
// RequestError
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

// Client performs JSON requests against one API host
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	cfg        Config

	limiter *rate.Limiter
	sem     *semaphore.Weighted
	breaker *CircuitBreaker
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests use httptest's)
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// BaseURL turns a bare domain ("acme.zendesk.com") into an https base URL.
// Values that already carry a scheme are kept as-is.
func BaseURL(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

// New creates a client for one API host. name labels log lines and errors.
func New(name, domain string, creds Credentials, cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, fmt.Errorf("%s: domain is required", name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid transport config: %w", name, err)
	}

	c := &Client{
		name:       name,
		baseURL:    BaseURL(domain),
		httpClient: &http.Client{},
		creds:      creds,
		cfg:        cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.MaxConcurrentCalls > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxConcurrentCalls)
	}
	if cfg.CircuitBreakerEnabled {
		c.breaker = NewCircuitBreaker(name, cfg.FailureThreshold, cfg.SuccessThreshold, cfg.OpenTimeout)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues a GET and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, target string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, target, query, nil, out)
}

// Put issues a PUT with a JSON body
func (c *Client) Put(ctx context.Context, target string, body, out any) error {
	return c.Do(ctx, http.MethodPut, target, nil, body, out)
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, target string, body, out any) error {
	return c.Do(ctx, http.MethodPost, target, nil, body, out)
}

// Do sends a request with retry and backoff. target is either a path
// relative to the base URL or an absolute URL (pagination links). out may be
// nil when the response body is not needed.
//
// Rate-limited responses (429) are retried for every method since the
// server did not process them. Server errors and network failures are
// retried only for GET; mutations surface the first failure to the caller.
// The circuit breaker guards reads only, so every failed mutation reports
// the server's own status.
func (c *Client) Do(ctx context.Context, method, target string, query url.Values, body, out any) error {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%s: failed to acquire request slot: %w", c.name, err)
		}
		defer c.sem.Release(1)
	}

	u := c.resolve(target, query)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request body: %w", c.name, err)
		}
	}

	breaker := c.breaker
	if method != http.MethodGet {
		breaker = nil
	}

	var lastErr error
	backoff := c.cfg.InitialBackoff
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if breaker != nil {
			if err := breaker.Allow(); err != nil {
				_, failures, _ := breaker.GetMetrics()
				return fmt.Errorf("%s %s %s: %w (%d consecutive failure(s))", c.name, method, u, err, failures)
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s: rate limiter: %w", c.name, err)
			}
		}

		respBody, err := c.attempt(ctx, method, u, payload)
		if err == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			if attempt > 0 {
				log.Printf("%s %s succeeded after %d retries", c.name, method, attempt)
			}
			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("%s: decode response from %s: %w", c.name, u, err)
				}
			}
			return nil
		}

		lastErr = err
		if breaker != nil && isTransient(err) {
			breaker.RecordFailure()
		}
		if !shouldRetry(method, err) || attempt == c.cfg.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: context canceled: %w", c.name, ctx.Err())
		}

		wait := backoff
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.RetryAfter > wait {
			wait = reqErr.RetryAfter
		}
		if wait > c.cfg.MaxBackoff {
			wait = c.cfg.MaxBackoff
		}
		log.Printf("%s %s failed (attempt %d/%d), retrying in %v: %v",
			c.name, method, attempt+1, c.cfg.MaxRetries+1, wait, err)

		select {
		case <-time.After(wait):
			backoff = time.Duration(float64(backoff) * c.cfg.BackoffMultiplier)
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("%s: context canceled during backoff: %w", c.name, ctx.Err())
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)
	if c.creds.Username != "" || c.creds.Password != "" {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", c.name, method, u, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: read body: %w", c.name, method, u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return respBody, nil
}

func (c *Client) resolve(target string, query url.Values) string {
	u := target
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		u = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

// isTransient reports whether err counts against the circuit breaker
func isTransient(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Temporary()
	}
	// Transport-level failures (timeouts, refused connections)
	return !errors.Is(err, context.Canceled)
}

func shouldRetry(method string, err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return reqErr.StatusCode >= 500 && method == http.MethodGet
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return method == http.MethodGet
}

// parseRetryAfter handles the delta-seconds form of Retry-After
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
