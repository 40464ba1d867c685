// Package transport performs provider HTTP requests with backoff on 429 and 5xx responses.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/inattention/sportdata/pkg/logger"
)

// Cache stores raw response bodies of immutable requests.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// Options configure a Client.
type Options struct {
	// Provider labels metrics and log lines.
	Provider string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
	// SecretParams are excluded from cache keys and log lines.
	SecretParams []string
}

// DefaultOptions mirrors the provider defaults: 8 retries, 1s base delay capped at 60s.
func DefaultOptions(provider string) Options {
	return Options{
		Provider:     provider,
		Timeout:      30 * time.Second,
		MaxRetries:   8,
		BaseDelay:    time.Second,
		MaxDelay:     60 * time.Second,
		SecretParams: []string{"api_token", "apiKey"},
	}
}

// Option customizes a Client after construction.
type Option func(*Client)

// WithCache enables the payload cache for requests marked cacheable.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying resty client, mostly for tests.
func WithHTTPClient(rc *resty.Client) Option {
	return func(c *Client) { c.rc = rc }
}

// Client is a JSON-over-HTTP client shared by the provider adapters.
type Client struct {
	rc      *resty.Client
	lggr    logger.Logger
	opts    Options
	limiter *rate.Limiter
	cache   Cache
	metrics *Metrics
	jitter  func() float64
}

// New returns a Client for one provider.
func New(lggr logger.Logger, opts Options, fns ...Option) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	c := &Client{
		rc:      resty.New().SetTimeout(opts.Timeout).SetHeader("Accept", "application/json"),
		lggr:    lggr,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		jitter:  func() float64 { return 0.7 + 0.6*rand.Float64() }, //nolint:gosec // jitter only
	}
	for _, fn := range fns {
		fn(c)
	}

	return c
}

// Request describes a GET.
type Request struct {
	URL    string
	Params map[string]string
	// Cacheable requests are served from and stored into the payload cache.
	Cacheable bool
	// Timeout overrides Options.Timeout when set.
	Timeout time.Duration
}

// GetJSON performs a GET with retries and returns the raw JSON body of the 200 response.
func (c *Client) GetJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	key := ""
	if req.Cacheable && c.cache != nil {
		key = c.cacheKey(req)
		body, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.lggr.Warnw("Payload cache read failed", "url", req.URL, "error", err)
		} else if ok {
			c.metrics.hit(c.opts.Provider)
			return body, nil
		}
	}

	body, err := retry.DoWithData(
		func() ([]byte, error) { return c.attempt(ctx, req) },
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.MaxRetries)+1), //nolint:gosec // non-negative by validation
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.DelayType(c.delay),
		retry.OnRetry(func(n uint, err error) {
			c.onRetry(req, n, err)
		}),
	)
	if err != nil {
		var rle *RateLimitError
		if errors.As(err, &rle) {
			rle.Retries = c.opts.MaxRetries
		}

		return nil, err
	}

	if key != "" {
		if err := c.cache.Put(ctx, key, body); err != nil {
			c.lggr.Warnw("Payload cache write failed", "url", req.URL, "error", err)
		}
	}

	return body, nil
}

// GetOnce performs a single GET without retries and returns status code and body.
func (c *Client) GetOnce(ctx context.Context, req Request) (int, []byte, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode(), resp.Body(), nil
}

func (c *Client) do(ctx context.Context, req Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timeout := c.opts.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(req.Params).
		Get(req.URL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", req.URL, err)
	}
	c.metrics.observe(c.opts.Provider, resp.StatusCode())
	c.lggr.Debugw("Provider response", "provider", c.opts.Provider, "url", req.URL, "status", resp.StatusCode())

	return resp, nil
}

func (c *Client) attempt(ctx context.Context, req Request) ([]byte, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}

	code := resp.StatusCode()
	switch {
	case code == http.StatusOK:
		return resp.Body(), nil
	case code == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			URL:        req.URL,
			RetryAfter: parseRetryAfter(resp.Header().Get("Retry-After")),
			Message:    payloadMessage(resp.Body()),
		}
	default:
		return nil, &StatusError{URL: req.URL, StatusCode: code, Body: truncate(string(resp.Body()), 512)}
	}
}

func retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 && se.StatusCode < 600
	}

	return false
}

// delay is min(max, base*2^n) scaled by jitter in [0.7, 1.3), or Retry-After when the server sent one.
func (c *Client) delay(n uint, err error, _ *retry.Config) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		return rle.RetryAfter
	}

	return Backoff(c.opts.BaseDelay, c.opts.MaxDelay, 2, n, c.jitter())
}

// Backoff returns min(max, base*factor^n)*jitter.
func Backoff(base, maxDelay time.Duration, factor float64, n uint, jitter float64) time.Duration {
	d := float64(base) * math.Pow(factor, float64(n))
	if maxDelay > 0 && d > float64(maxDelay) {
		d = float64(maxDelay)
	}

	return time.Duration(d * jitter)
}

func (c *Client) onRetry(req Request, n uint, err error) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		c.metrics.retry(c.opts.Provider, "rate_limit")
		c.lggr.Warnw("Rate limit received, backing off",
			"provider", c.opts.Provider,
			"url", req.URL,
			"attempt", n+1,
			"maxRetries", c.opts.MaxRetries,
			"retryAfter", rle.RetryAfter,
			"message", rle.Message,
		)

		return
	}

	c.metrics.retry(c.opts.Provider, "server_error")
	c.lggr.Warnw("Server error received, backing off",
		"provider", c.opts.Provider,
		"url", req.URL,
		"attempt", n+1,
		"maxRetries", c.opts.MaxRetries,
		"status", StatusCode(err),
	)
}

func (c *Client) cacheKey(req Request) string {
	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		if !c.secret(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(req.URL)
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(req.Params[k])
	}

	return b.String()
}

func (c *Client) secret(param string) bool {
	for _, s := range c.opts.SecretParams {
		if s == param {
			return true
		}
	}

	return false
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0
	}

	return time.Duration(secs * float64(time.Second))
}

func payloadMessage(body []byte) string {
	var p struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return ""
	}

	return p.Message
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
