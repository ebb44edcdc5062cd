// Package api wraps outbound HTTP calls to the LearnHub backend: base-URL
// resolution, auth-header injection, response-envelope unwrapping and error
// normalization.
//
// The client itself never navigates or blocks on the user: notification and
// login redirection are ports supplied by the caller, so transport logic
// stays testable in isolation.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// BaseURLFunc resolves the backend endpoint for the active region at call
// time. Empty means no endpoint is configured.
type BaseURLFunc func() string

// TokenSource yields the current bearer token. An error means no usable
// token is available.
type TokenSource interface {
	Token() (string, error)
}

// Notifier receives normalized error messages for non-blocking user
// notification. Implementations must not block the calling flow.
type Notifier interface {
	Notify(message string)
}

// LoginRedirect is invoked when a call fails authentication and the user
// must re-login.
type LoginRedirect interface {
	RedirectToLogin()
}

type noopNotifier struct{}

func (noopNotifier) Notify(string) {}

type noopRedirect struct{}

func (noopRedirect) RedirectToLogin() {}

// Options controls a single request.
type Options struct {
	// Method defaults to GET.
	Method string
	// Body is JSON-encoded when non-nil.
	Body any
	// AuthRequired marks calls that must not be sent without a token.
	// An unauthenticated mutation against a non-auth path is short-circuited
	// locally instead of reaching the backend.
	AuthRequired bool
	// NoAuth suppresses bearer injection even when a token exists.
	NoAuth bool
}

// Client issues requests against the active region's backend. Safe for
// concurrent use after New.
type Client struct {
	http     *resty.Client
	baseURL  BaseURLFunc
	tokens   TokenSource
	notifier Notifier
	redirect LoginRedirect
	logger   *zap.Logger
}

// Option customizes a Client during construction.
type Option func(*Client)

// WithTokenSource attaches the session token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithNotifier attaches the user-notification port.
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLoginRedirect attaches the redirect-to-login policy.
func WithLoginRedirect(r LoginRedirect) Option {
	return func(c *Client) {
		if r != nil {
			c.redirect = r
		}
	}
}

// WithTimeout bounds every request issued by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithLogger attaches a zap logger for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client resolving endpoints through baseURL.
func New(baseURL BaseURLFunc, opts ...Option) *Client {
	c := &Client{
		http:     resty.New().SetTimeout(defaultTimeout),
		baseURL:  baseURL,
		notifier: noopNotifier{},
		redirect: noopRedirect{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelopeProbe distinguishes enveloped payloads from raw ones. A payload is
// an envelope exactly when it carries a numeric "code" field.
type envelopeProbe struct {
	Code      *int            `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/")
}

// Do issues a request and returns the (envelope-unwrapped) response payload.
// All expected failure modes resolve to a *Error; the payload is nil then
// and the operation did not happen. Side effects: every produced error is
// passed to the notifier, and auth failures outside auth paths trigger the
// login redirect.
func (c *Client) Do(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	base := ""
	if c.baseURL != nil {
		base = c.baseURL()
	}
	if base == "" {
		return nil, c.fail(&Error{Kind: KindConfig, Message: "api endpoint is not configured"})
	}

	token := ""
	if c.tokens != nil && !opts.NoAuth {
		token, _ = c.tokens.Token()
	}

	// Never silently send an unauthenticated mutation.
	if opts.AuthRequired && token == "" && method != http.MethodGet && !isAuthPath(path) {
		c.redirect.RedirectToLogin()
		return nil, c.fail(&Error{Kind: KindAuth, Message: "login required"})
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		req.SetAuthToken(token)
	}
	if opts.Body != nil {
		req.SetBody(opts.Body)
	}

	resp, err := req.Execute(method, base+path)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, c.fail(&Error{Kind: KindTransport, Message: "network error: " + err.Error()})
	}

	return c.decode(path, method, resp)
}

func (c *Client) decode(path, method string, resp *resty.Response) (json.RawMessage, error) {
	// Defensive parse: empty or non-JSON bodies are treated as null payloads.
	var probe envelopeProbe
	body := resp.Body()
	enveloped := len(body) > 0 && json.Unmarshal(body, &probe) == nil && probe.Code != nil

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		message := probe.Message
		if message == "" {
			message = fmt.Sprintf("request failed (%d)", status)
		}
		e := &Error{Kind: kindForStatus(status), Message: message, Status: status, RequestID: probe.RequestID}
		if status == http.StatusUnauthorized && !isAuthPath(path) {
			c.redirect.RedirectToLogin()
		}
		c.logger.Debug("api error",
			zap.String("method", method), zap.String("path", path),
			zap.Int("status", status), zap.String("request_id", probe.RequestID))
		return nil, c.fail(e)
	}

	// A non-zero envelope code is a logical failure even on HTTP 200.
	if enveloped {
		if *probe.Code != 0 {
			message := probe.Message
			if message == "" {
				message = fmt.Sprintf("request failed (code %d)", *probe.Code)
			}
			return nil, c.fail(&Error{Kind: KindServer, Message: message, Status: status, RequestID: probe.RequestID})
		}
		return probe.Data, nil
	}

	if len(body) == 0 || !json.Valid(body) {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func (c *Client) fail(e *Error) error {
	c.notifier.Notify(e.Message)
	return e
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusConflict:
		return KindConflict
	default:
		return KindServer
	}
}

// DoAs issues a request and unmarshals the payload into T. A null payload
// yields (nil, nil): the operation produced no data.
func DoAs[T any](ctx context.Context, c *Client, path string, opts Options) (*T, error) {
	raw, err := c.Do(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("api: decode %s: %w", path, err)
	}
	return &out, nil
}
