// Package polygon is the market-data access layer. It calls the Polygon.io
// REST API, normalizes the responses into pkg/models values and applies a
// per-endpoint cache lifetime and failure policy.
package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/internal/infra"
	"github.com/signalist/signalist/internal/logging"
)

// DefaultBaseURL is the public Polygon.io REST endpoint.
const DefaultBaseURL = "https://api.polygon.io"

// maxErrorBody caps how much of a failed response is kept on FetchError.
const maxErrorBody = 4096

// --- Sentinel errors ---

// ErrMissingAPIKey is returned before any I/O when no API key is configured.
var ErrMissingAPIKey = errors.New("polygon API key is not configured")

// FetchError is a non-2xx response from the provider.
type FetchError struct {
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed %d: %s", e.StatusCode, e.Body)
}

// Client talks to Polygon. It is safe for concurrent use; the response cache
// is shared by every caller of the same Client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *infra.Cache[[]byte]
	limiter    *infra.RateLimiter
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger that receives swallowed failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(l) }
}

// WithClock sets the clock used for default date ranges.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRateLimiter throttles outbound requests. A nil limiter disables throttling.
func WithRateLimiter(rl *infra.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// New creates a client for the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      infra.NewCache[[]byte](),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the polygon config section.
func NewFromConfig(cfg config.PolygonConfig, logger *zap.Logger) *Client {
	opts := []Option{
		WithLogger(logger),
		WithRateLimiter(infra.PerMinute(cfg.RequestsPerMinute)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.TimeoutSec > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}))
	}
	return New(cfg.APIKey, opts...)
}

// Cache exposes the shared response cache so callers can run its janitor.
func (c *Client) Cache() *infra.Cache[[]byte] {
	return c.cache
}

// fetchJSON GETs path with query and decodes the JSON body into out.
// With revalidate > 0 a body cached for the same URL within that window is
// reused and a fresh body is stored for that long; revalidate == 0 always
// hits the network and never caches.
func (c *Client) fetchJSON(ctx context.Context, path string, query url.Values, revalidate time.Duration, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	if query == nil {
		query = url.Values{}
	}
	key := c.baseURL + path
	if enc := query.Encode(); enc != "" {
		key += "?" + enc
	}

	if revalidate > 0 {
		if body, ok := c.cache.Get(key); ok {
			c.logger.Debug("polygon cache hit", zap.String("url", key))
			return decode(body, out)
		}
	}

	body, err := c.get(ctx, key, query)
	if err != nil {
		return err
	}
	if err := decode(body, out); err != nil {
		return err
	}

	if revalidate > 0 {
		c.cache.Set(key, body, revalidate)
	}
	return nil
}

// get performs the HTTP round trip. The API key is appended here so it
// never appears in cache keys or logs.
func (c *Client) get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	withKey := url.Values{}
	for k, v := range query {
		withKey[k] = v
	}
	withKey.Set("apiKey", c.apiKey)
	target := rawURL
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	target += "?" + withKey.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	c.logger.Debug("polygon request",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &FetchError{StatusCode: resp.StatusCode, Body: string(text)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// symbolPath uppercases and path-escapes a ticker for use in a URL path.
func symbolPath(symbol string) string {
	return url.PathEscape(strings.ToUpper(strings.TrimSpace(symbol)))
}
