// Package apiclient is the HTTP adapter for the loghub API. It unwraps the
// {result, error} envelope every endpoint answers with and reports failures
// to a Notifier exactly once per call.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/msgscope/pkg/randid"
)

const (
	// DefaultBasePath prefixes every request path.
	DefaultBasePath = "/api"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	requestIDHeader = "X-Request-Id"
	maxBodySize     = 64 << 20
)

// HTTPClient abstracts HTTP request execution for testing and custom
// transports. The standard *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Envelope is the wrapper every API response uses.
type Envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// ErrorMessage returns the envelope error as text, or "" when the error field
// is absent or falsy (null, false, 0 or an empty string).
func (e Envelope) ErrorMessage() string {
	raw := bytes.TrimSpace(e.Error)
	if len(raw) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if !v {
			return ""
		}
	case float64:
		if v == 0 {
			return ""
		}
	}
	return string(raw)
}

// Request describes a single API call. Path is relative to the base path.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.http = h }
}

// WithNotifier sets the notifier used to surface failures.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBasePath overrides DefaultBasePath.
func WithBasePath(p string) Option {
	return func(c *Client) { c.basePath = p }
}

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// Client issues API calls against a fixed base URL and base path.
type Client struct {
	baseURL  *url.URL
	basePath string
	timeout  time.Duration
	http     HTTPClient
	notifier Notifier
	log      zerolog.Logger
}

// New creates a Client for the server at baseURL (scheme and host, optionally
// a path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:  u,
		basePath: DefaultBasePath,
		timeout:  DefaultTimeout,
		http:     &http.Client{},
		notifier: nopNotifier{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Timeout returns the per-request bound.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// URL returns the absolute URL for an API path.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = joinPath(u.Path, c.basePath, path)
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do executes r and returns the envelope's result field. Failures are
// returned as *TransportError or *ApplicationError and reported to the
// notifier once.
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	result, err := c.do(ctx, r)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	return result, nil
}

// Get is shorthand for a GET Do.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Call executes r and decodes the result into T. A result that does not
// decode into T is a transport failure.
func Call[T any](ctx context.Context, c *Client, r Request) (T, error) {
	var out T

	result, err := c.do(ctx, r)
	if err == nil {
		if derr := json.Unmarshal(result, &out); derr != nil {
			err = &TransportError{
				Method: method(r),
				URL:    c.URL(r.Path, r.Query),
				Err:    fmt.Errorf("decode result: %w", derr),
			}
		}
	}
	if err != nil {
		c.fail(err)
		var zero T
		return zero, err
	}

	return out, nil
}

// Ping checks that the server answers HTTP at all and returns the status
// code. Any HTTP answer counts as reachable; the base path itself has no
// handler, so 404 is expected. It does not notify.
func (c *Client) Ping(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL("", nil), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err, timeout: isTimeout(ctx, err)}
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, r Request) (json.RawMessage, error) {
	m := method(r)
	target := c.URL(r.Path, r.Query)
	reqID := randid.Generate(12)

	transportErr := func(status int, err error, timeout bool) error {
		return &TransportError{Method: m, URL: target, StatusCode: status, Err: err, timeout: timeout}
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, transportErr(0, fmt.Errorf("encode body: %w", err), false)
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, m, target, body)
	if err != nil {
		return nil, transportErr(0, fmt.Errorf("create request: %w", err), false)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	c.log.Debug().Str("request_id", reqID).Str("method", m).Str("url", target).Msg("api request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportErr(0, err, isTimeout(ctx, err))
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, transportErr(resp.StatusCode, fmt.Errorf("read body: %w", err), isTimeout(ctx, err))
	}

	c.log.Debug().
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api response")

	ok := resp.StatusCode/100 == 2

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if !ok {
			return nil, transportErr(resp.StatusCode, fmt.Errorf("unexpected response: %s", snippet(data)), false)
		}
		return nil, transportErr(resp.StatusCode, fmt.Errorf("decode envelope: %w", err), false)
	}

	if msg := env.ErrorMessage(); msg != "" {
		return nil, &ApplicationError{Message: msg, StatusCode: resp.StatusCode}
	}

	if !ok {
		return nil, transportErr(resp.StatusCode, fmt.Errorf("unexpected response: %s", snippet(data)), false)
	}

	if len(env.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return env.Result, nil
}

func (c *Client) fail(err error) {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		c.log.Warn().Int("status", appErr.StatusCode).Str("error", appErr.Message).Msg("api error")
		c.notifier.Notify(appErr.Message)
		return
	}

	c.log.Warn().Err(err).Msg("api request failed")

	var tErr *TransportError
	if errors.As(err, &tErr) && tErr.Timeout() {
		c.notifier.Notify(fmt.Sprintf("request timed out after %s", c.timeout))
		return
	}
	c.notifier.Notify(err.Error())
}

func method(r Request) string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func joinPath(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		b.WriteString("/")
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "empty body"
	}
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}
