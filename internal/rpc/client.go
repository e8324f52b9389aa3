// Package rpc provides the typed remote-call contract used to load
// application data from the backend.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
)

// DefaultTimeout bounds one call.
const DefaultTimeout = 30 * time.Second

// Invoker calls a named remote function.
type Invoker interface {
	// Invoke calls name with args and returns the decoded JSON result.
	// Failures wrap fault.ErrNetworkFailure, fault.ErrTimeout or
	// fault.ErrUnconfigured.
	Invoke(ctx context.Context, name string, args []any) (json.RawMessage, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, name string, args []any) (json.RawMessage, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, name string, args []any) (json.RawMessage, error) {
	return f(ctx, name, args)
}

// Client invokes functions on an HTTP endpoint that accepts
// {"function": name, "parameters": args} and answers with JSON.
type Client struct {
	url     string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// Compile-time check that Client implements Invoker.
var _ Invoker = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Its Transport decides how requests
// reach the network.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-call time budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for the endpoint at rawURL. An empty URL yields a
// client whose calls fail with fault.ErrUnconfigured.
func New(rawURL string, opts ...Option) *Client {
	c := &Client{
		url:     strings.TrimSpace(rawURL),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint.
func (c *Client) URL() string {
	return c.url
}

type request struct {
	Function   string `json:"function"`
	Parameters []any  `json:"parameters"`
}

// Invoke posts one call and decodes the JSON answer.
func (c *Client) Invoke(ctx context.Context, name string, args []any) (json.RawMessage, error) {
	if c.url == "" {
		return nil, fmt.Errorf("calling %s: %w", name, fault.ErrUnconfigured)
	}
	if args == nil {
		args = []any{}
	}

	body, err := json.Marshal(request{Function: name, Parameters: args})
	if err != nil {
		return nil, fmt.Errorf("encoding %s arguments: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("calling", zap.String("function", name), zap.Int("args", len(args)))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fault.Network("calling "+name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("calling %s: %w: HTTP %d: %s",
			name, fault.ErrNetworkFailure, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Network("reading "+name+" response", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("calling %s: %w: response is not JSON", name, fault.ErrNetworkFailure)
	}

	c.logger.Debug("call returned", zap.String("function", name), zap.Int("bytes", len(data)))
	return json.RawMessage(data), nil
}

// ImageURL returns the image fetch URL for fileID: the endpoint with any
// trailing /exec replaced by /exec?img=<fileID>.
func (c *Client) ImageURL(fileID string) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("building image URL: %w", fault.ErrUnconfigured)
	}
	base := strings.TrimSuffix(c.url, "/exec")
	return base + "/exec?img=" + url.QueryEscape(fileID), nil
}

// Go invokes name on inv in the background and delivers the outcome to
// exactly one of onSuccess or onFailure. A nil continuation is skipped.
// The returned channel is closed once the continuation has run.
func Go(ctx context.Context, inv Invoker, name string, args []any, onSuccess func(json.RawMessage), onFailure func(error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err := inv.Invoke(ctx, name, args)
		if err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(result)
		}
	}()
	return done
}
