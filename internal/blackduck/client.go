// Package blackduck is a typed client for the Black Duck Hub REST API. It
// handles bearer-token authentication with caching and refresh, transport
// retry, request pacing, and classification of failures into error kinds.
package blackduck

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	// defaultTimeout bounds each HTTP request.
	defaultTimeout = 30 * time.Second
	// defaultRetryMax bounds transport-level retries of 429/5xx answers.
	defaultRetryMax = 3
	// tokenExpiryMargin renews bearer tokens this long before they expire.
	tokenExpiryMargin = 60 * time.Second
	// maxErrorBody caps how much of an error response body is read back
	// into error messages.
	maxErrorBody = 4 << 10
)

// Client performs authenticated requests against a Black Duck Hub.
// The bearer-token cache is the only shared mutable state; methods are safe
// for concurrent use.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	log        *slog.Logger
	timeout    time.Duration
	retryMax   int
	trustCert  bool
	limiter    *rate.Limiter

	mu          sync.Mutex
	bearerToken string
	tokenExpiry time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, bypassing the retrying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryMax sets how many times a failed request is retried at the
// transport layer.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}

// WithTrustCert accepts self-signed Hub certificates, common on on-prem
// deployments.
func WithTrustCert(trust bool) Option {
	return func(c *Client) {
		c.trustCert = trust
	}
}

// WithRateLimit caps outbound requests per second. Zero or negative
// disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates a Hub client for the given base URL and API token.
func New(baseURL, apiToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		log:      slog.Default(),
		timeout:  defaultTimeout,
		retryMax: defaultRetryMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = c.newRetryingClient()
	}
	return c
}

// newRetryingClient builds the default transport: retryablehttp handles
// 429/5xx/connection retries with backoff, leaving the 401 re-auth retry to
// do().
func (c *Client) newRetryingClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = c.retryMax
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = retryLogger{log: c.log}
	rc.HTTPClient.Timeout = c.timeout
	if c.trustCert {
		rc.HTTPClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opted in via WithTrustCert
		}
	}
	return rc.StandardClient()
}

// retryLogger adapts retryablehttp's leveled logging onto slog.
type retryLogger struct {
	log *slog.Logger
}

var _ retryablehttp.LeveledLogger = retryLogger{}

func (l retryLogger) Error(msg string, keysAndValues ...any) {
	l.log.Error(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Warn(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

// authResponse is the reply of the token-exchange endpoint.
type authResponse struct {
	BearerToken           string `json:"bearerToken"`
	ExpiresInMilliseconds int64  `json:"expiresInMilliseconds"`
}

// bearer returns a cached bearer token, exchanging the API token for a
// fresh one when the cache is empty or inside the expiry margin.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bearerToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.bearerToken, nil
	}
	return c.authenticateLocked(ctx)
}

// authenticateLocked exchanges the API token for a bearer token. The caller
// must hold mu.
func (c *Client) authenticateLocked(ctx context.Context) (string, error) {
	if c.apiToken == "" {
		return "", NewError(KindAuthentication, "no API token configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tokens/authenticate", nil)
	if err != nil {
		return "", WrapError(KindNetwork, err, "failed to create authentication request: %v", err)
	}
	req.Header.Set("Authorization", "token "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", WrapError(KindNetwork, err, "authentication request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp, "authentication")
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", WrapError(KindServer, err, "failed to decode authentication response: %v", err)
	}
	if auth.BearerToken == "" {
		return "", NewError(KindAuthentication, "authentication response contained no bearer token")
	}

	ttl := time.Duration(auth.ExpiresInMilliseconds) * time.Millisecond
	c.bearerToken = auth.BearerToken
	c.tokenExpiry = time.Now().Add(ttl - tokenExpiryMargin)
	c.log.Debug("acquired bearer token", "ttl", ttl)
	return c.bearerToken, nil
}

// invalidateToken drops the cached bearer token so the next request
// authenticates again.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.bearerToken = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// do performs one authenticated request, decoding a JSON reply into out
// when out is non-nil. A 401 answer invalidates the cached token and the
// request is retried exactly once with a fresh one.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return WrapError(KindNetwork, err, "request pacing interrupted: %v", err)
		}
	}

	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.log.Debug("bearer token rejected, re-authenticating", "path", path)
		c.invalidateToken()
		if resp, err = c.send(ctx, method, path, query, body); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp, method+" "+path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return WrapError(KindServer, err, "failed to decode response from %s: %v", path, err)
	}
	return nil
}

// send builds and executes a single authenticated request.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, WrapError(KindValidation, err, "failed to marshal request body: %v", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, WrapError(KindNetwork, err, "failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, WrapError(KindNetwork, err, "request to %s failed: %v", path, err)
	}
	return resp, nil
}

// errorFromResponse drains and classifies a non-2xx response, surfacing the
// Hub's errorMessage body when one is present.
func errorFromResponse(resp *http.Response, operation string) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("%s failed with status %d", operation, resp.StatusCode)

	var hubErr struct {
		ErrorMessage string `json:"errorMessage"`
		ErrorCode    string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &hubErr); err == nil && hubErr.ErrorMessage != "" {
		msg += ": " + hubErr.ErrorMessage
	}
	return NewError(kindFromStatus(resp.StatusCode), "%s", msg)
}
