// Package luxor is a typed client for the pool provider's REST API.
package luxor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"miner-hosting/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL  = "https://app.luxor.tech/api"
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 100

	// MaxPages bounds pagination traversal when the upstream never clears next_page_url.
	MaxPages = 500

	maxResponseBytes = 16 << 20
)

// Client calls the pool API with bearer authentication.
// It never retries; retry policy belongs to the caller.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new pool API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// validator is implemented by response types that check their own shape.
type validator interface {
	validate() error
}

// Request performs a call against an arbitrary API path and decodes the JSON
// response into out (which may be nil).
func (c *Client) Request(ctx context.Context, method, path string, params Params, body, out interface{}) error {
	return c.do(ctx, path, method, path, params, body, out)
}

// do performs one round trip. op labels the call in metrics and schema errors.
func (c *Client) do(ctx context.Context, op, method, path string, params Params, body, out interface{}) error {
	target := c.baseURL + path
	if q := params.Encode(); q != "" {
		target += "?" + q
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordPoolCall(op, 0, time.Since(start).Seconds())
		return transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	observability.RecordPoolCall(op, resp.StatusCode, time.Since(start).Seconds())
	if err != nil {
		return &Error{
			StatusCode: http.StatusBadGateway,
			Message:    "read upstream response",
			Details:    err.Error(),
			Cause:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return &SchemaError{Endpoint: op, Reason: "empty body"}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &SchemaError{Endpoint: op, Reason: err.Error()}
	}
	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			return &SchemaError{Endpoint: op, Reason: err.Error()}
		}
	}
	return nil
}

// transportError converts a failed round trip into an Error.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			StatusCode: http.StatusGatewayTimeout,
			Message:    statusMessage(http.StatusGatewayTimeout),
			Details:    err.Error(),
			Cause:      err,
		}
	}

	return &Error{
		StatusCode: http.StatusBadGateway,
		Message:    "upstream unreachable",
		Details:    err.Error(),
		Cause:      err,
	}
}
