// Package apiclient is the single outbound HTTP client of the CLI. Every
// request passes through one interception point that attaches the bearer
// token held by the session store at call time; responses are decoded from
// the uniform {success, data, error} envelope.
//
// The client does not retry, refresh tokens, or queue requests while
// unauthenticated; a stale token is discovered only when a call fails.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"yaothink/internal/envelope"
)

// DefaultTimeout is the fixed ceiling for a single request.
const DefaultTimeout = 30 * time.Second

// ErrConnection wraps transport-level failures (DNS, refused, timeout) with
// the generic user-facing message; the cause stays attached for logs.
var ErrConnection = errors.New("网络连接失败，请稍后重试")

// APIError is a server-reported failure: either success:false in the
// envelope or a non-2xx status. Message carries the server's text verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// TokenSource supplies the current access token; an empty string means the
// request goes out unauthenticated. *session.Store satisfies this.
type TokenSource interface {
	Token() string
}

// Client is the API client.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the fixed request timeout (tests use short values).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the given base URL. tokens may be nil for a
// client that never authenticates.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get sends a GET request and decodes the envelope's data into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends a JSON POST request and decodes the envelope's data into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends a JSON PUT request and decodes the envelope's data into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete sends a DELETE request and decodes the envelope's data into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	// Token is read at call time, not construction time: a login that
	// happened after the client was built is picked up automatically.
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("api request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("api response unreadable", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
		c.log.Warn("api error", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn("api response malformed", "method", method, "path", path, "error", err)
		return fmt.Errorf("decode response: %w", err)
	}

	if !env.Success {
		message := env.Error
		if message == "" {
			message = "请求失败"
		}
		c.log.Warn("api business failure", "method", method, "path", path, "message", message)
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	c.log.Debug("api request completed", "method", method, "path", path, "status", resp.StatusCode)

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the best available message from a non-2xx body:
// {"detail"} first, the envelope's error field second, the HTTP status last.
func errorMessage(raw []byte, status int) string {
	var body envelope.ErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return body.Detail
	}

	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != "" {
		return env.Error
	}

	return http.StatusText(status)
}
