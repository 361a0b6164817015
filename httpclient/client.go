package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jongio/vmc/logutil"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxResponseSize caps response bodies when RequestOptions.MaxResponseSize is zero.
	DefaultMaxResponseSize int64 = 100 * 1024 * 1024

	// DefaultAuthHeader is the header the control plane reads the token from.
	DefaultAuthHeader = "AUTHORIZATION"

	// ProxyUserHeader lets an admin act on behalf of another user.
	ProxyUserHeader = "PROXY-USER"

	// RequestIDHeader carries an ID shared by every attempt of one request.
	RequestIDHeader = "X-Request-Id"

	baseBackoff = 100 * time.Millisecond
	maxBackoff  = 5 * time.Second
)

// ErrCircuitOpen is returned when the circuit breaker for a host is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// TokenProvider supplies the auth token for a target.
type TokenProvider interface {
	GetToken(ctx context.Context, scope string) (string, error)
}

// RequestOptions describes a single logical request.
type RequestOptions struct {
	Method      string
	URL         string
	Body        []byte
	ContentType string
	Headers     map[string]string

	// Scope is passed to the TokenProvider. Defaults to the request host.
	Scope    string
	SkipAuth bool

	// Retry is the number of additional attempts after the first.
	Retry           int
	MaxResponseSize int64
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client executes requests with retries, auth, metrics and optional
// circuit breaking and rate limiting.
type Client struct {
	provider   TokenProvider
	httpClient *http.Client
	debug      bool
	authHeader string
	headers    map[string]string

	mu              sync.RWMutex
	enableBreaker   bool
	breakerFailures int
	breakerTimeout  time.Duration
	breakers        map[string]*gobreaker.CircuitBreaker
	rateLimit       int
	rateLimiters    map[string]*rate.Limiter
}

// NewClient creates a client. provider may be nil when every request sets SkipAuth.
func NewClient(provider TokenProvider, debug bool, timeout time.Duration) *Client {
	return &Client{
		provider:     provider,
		httpClient:   &http.Client{Timeout: timeout},
		debug:        debug,
		authHeader:   DefaultAuthHeader,
		headers:      make(map[string]string),
		breakers:     make(map[string]*gobreaker.CircuitBreaker),
		rateLimiters: make(map[string]*rate.Limiter),
	}
}

// WithCircuitBreaker enables a per-host breaker that opens once at least
// failures requests were seen and 60% of them failed.
func (c *Client) WithCircuitBreaker(failures int, timeout time.Duration) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enableBreaker = true
	c.breakerFailures = failures
	c.breakerTimeout = timeout
	return c
}

// WithRateLimit limits requests per second per host. Zero disables limiting.
func (c *Client) WithRateLimit(perSecond int) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimit = perSecond
	return c
}

// WithHeader sets a header sent on every request.
func (c *Client) WithHeader(key, value string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == "" {
		delete(c.headers, key)
	} else {
		c.headers[key] = value
	}
	return c
}

// Execute performs the request. A 5xx response that survives all retries is
// returned without error; callers inspect StatusCode.
func (c *Client) Execute(ctx context.Context, opts RequestOptions) (*Response, error) {
	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL: %w", err)
	}
	host := parsed.Host

	token := ""
	if !opts.SkipAuth && c.provider != nil {
		scope := opts.Scope
		if scope == "" {
			scope = host
		}
		token, err = c.provider.GetToken(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to get auth token: %w", err)
		}
	}

	opts.Headers = withRequestID(opts.Headers)

	maxSize := opts.MaxResponseSize
	if maxSize <= 0 {
		maxSize = DefaultMaxResponseSize
	}

	var (
		resp    *Response
		lastErr error
	)
	for attempt := 0; attempt <= opts.Retry; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			if c.debug {
				logutil.Debug("retrying request", "method", opts.Method, "url", opts.URL, "attempt", attempt)
			}
		}

		if limiter := c.getOrCreateRateLimiter(host); limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, lastErr = c.attempt(ctx, host, opts, token, maxSize)
		if lastErr != nil {
			if errors.Is(lastErr, ErrCircuitOpen) || !isRetryableError(lastErr) {
				return nil, lastErr
			}
			continue
		}
		if resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", opts.Retry+1, lastErr)
	}
	return resp, nil
}

// attempt runs a single round trip, through the host's breaker when enabled.
func (c *Client) attempt(ctx context.Context, host string, opts RequestOptions, token string, maxSize int64) (*Response, error) {
	breaker := c.getOrCreateCircuitBreaker(host)
	if breaker == nil {
		return c.roundTrip(ctx, opts, token, maxSize)
	}

	out, err := breaker.Execute(func() (interface{}, error) {
		resp, err := c.roundTrip(ctx, opts, token, maxSize)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverError{status: resp.StatusCode}
		}
		return resp, nil
	})

	var se *serverError
	switch {
	case errors.As(err, &se):
		return out.(*Response), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w for %s", ErrCircuitOpen, host)
	case err != nil:
		return nil, err
	}
	return out.(*Response), nil
}

func (c *Client) roundTrip(ctx context.Context, opts RequestOptions, token string, maxSize int64) (*Response, error) {
	start := time.Now()

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	authHeader := c.authHeader
	c.mu.RUnlock()

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if token != "" {
		req.Header.Set(authHeader, token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		recordRequest(opts.Method, 0, time.Since(start))
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxSize+1))
	if err != nil {
		recordRequest(opts.Method, httpResp.StatusCode, time.Since(start))
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	recordRequest(opts.Method, httpResp.StatusCode, time.Since(start))
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("response body exceeds maximum size of %d bytes", maxSize)
	}

	if c.debug {
		logutil.Debug("http request", "method", opts.Method, "url", opts.URL, "status", httpResp.StatusCode,
			"request_id", opts.Headers[RequestIDHeader], "duration", time.Since(start))
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// withRequestID returns a copy of headers with a fresh request ID unless the
// caller already set one.
func withRequestID(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	if _, ok := out[RequestIDHeader]; !ok {
		out[RequestIDHeader] = uuid.NewString()
	}
	return out
}

func (c *Client) getOrCreateCircuitBreaker(host string) *gobreaker.CircuitBreaker {
	c.mu.RLock()
	enabled := c.enableBreaker
	breaker, exists := c.breakers[host]
	c.mu.RUnlock()

	if !enabled {
		return nil
	}
	if exists {
		return breaker
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if breaker, exists := c.breakers[host]; exists {
		return breaker
	}

	failures := c.breakerFailures
	settings := gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    c.breakerTimeout,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if failures <= 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= uint32(failures) && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			recordBreakerState(name, to)
			logutil.Debug("circuit breaker state change", "host", name, "from", from.String(), "to", to.String())
		},
	}

	breaker = gobreaker.NewCircuitBreaker(settings)
	c.breakers[host] = breaker
	return breaker
}

func (c *Client) getOrCreateRateLimiter(host string) *rate.Limiter {
	c.mu.RLock()
	perSecond := c.rateLimit
	limiter, exists := c.rateLimiters[host]
	c.mu.RUnlock()

	if perSecond <= 0 {
		return nil
	}
	if exists {
		return limiter
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, exists := c.rateLimiters[host]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond*2)
	c.rateLimiters[host] = limiter
	return limiter
}

// serverError marks a 5xx response as a breaker failure.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: HTTP %d", e.status)
}

func backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableError reports whether a transport error is worth retrying.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{
		"context deadline exceeded",
		"Client.Timeout exceeded",
		"i/o timeout",
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"EOF",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
