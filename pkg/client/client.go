package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// TokenSource supplies the bearer credential for outgoing requests.
// An empty token means the request is sent without Authorization.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns t.
func (t StaticToken) Token() string { return string(t) }

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token calls f.
func (f TokenFunc) Token() string { return f() }

type tokenKey struct{}

// ContextWithToken makes requests issued with ctx carry token instead of the
// client's TokenSource value.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) tokenFor(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok {
		return tok
	}
	return c.tokens.Token()
}

// SessionInvalidated is emitted when the server rejects the credential a request carried.
type SessionInvalidated struct {
	Token  string
	Method string
	Path   string
}

// RequestRecorder observes completed requests. outcome is "ok" or a Kind name.
type RequestRecorder interface {
	RecordRequest(method, outcome string, status int, d time.Duration)
}

// Client is the trading platform API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	recorder   RequestRecorder
	logger     *slog.Logger

	mu        sync.RWMutex
	listeners map[int]func(SessionInvalidated)
	nextID    int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit paces outgoing requests to r per second with the given burst.
// A zero or negative r disables pacing.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithRecorder reports every request to rec.
func WithRecorder(rec RequestRecorder) Option {
	return func(c *Client) { c.recorder = rec }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client rooted at baseURL (e.g. http://localhost:8000/api/v1).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    slog.Default(),
		listeners: make(map[int]func(SessionInvalidated)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnSessionInvalidated registers fn to be called whenever a credentialed
// request is rejected as unauthorized. The returned func unregisters it.
func (c *Client) OnSessionInvalidated(fn func(SessionInvalidated)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) emitInvalidated(ev SessionInvalidated) {
	c.mu.RLock()
	fns := make([]func(SessionInvalidated), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPut, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return newError(KindNetwork, 0, "", fmt.Errorf("rate limit wait: %w", err))
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return newError(KindUnknown, 0, "", fmt.Errorf("marshal body: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return newError(KindUnknown, 0, "", fmt.Errorf("create request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	token := c.tokenFor(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(method, KindNetwork.String(), 0, time.Since(start))
		return newError(KindNetwork, 0, "", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		cerr := errorFromResponse(resp)
		c.record(method, cerr.Kind.String(), resp.StatusCode, time.Since(start))
		c.logger.Debug("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("kind", cerr.Kind.String()),
		)
		if cerr.Kind == KindUnauthorized && token != "" {
			c.emitInvalidated(SessionInvalidated{Token: token, Method: method, Path: path})
		}
		return cerr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.record(method, KindUnknown.String(), resp.StatusCode, time.Since(start))
			return newError(KindUnknown, 0, "unexpected response from server", fmt.Errorf("decode response: %w", err))
		}
	}
	c.record(method, "ok", resp.StatusCode, time.Since(start))
	return nil
}

func (c *Client) record(method, outcome string, status int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordRequest(method, outcome, status, d)
	}
}

func errorFromResponse(resp *http.Response) *Error {
	kind := ClassifyStatus(resp.StatusCode)
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if err != nil {
		return newError(kind, resp.StatusCode, "", fmt.Errorf("read error body: %w", err))
	}
	return newError(kind, resp.StatusCode, parseErrorMessage(respBody), nil)
}
