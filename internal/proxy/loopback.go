package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"miner-hosting/internal/auth"
	"miner-hosting/internal/luxor"
)

// Path is where the proxy handler is mounted.
const Path = "/proxy"

// CallError is a failed loopback call. Message is the proxy's envelope error.
type CallError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *CallError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, e.Message, e.StatusCode)
}

// LoopbackClient calls this service's own /proxy endpoint with the caller's
// session, so aggregated reads pass through the same scoping as direct ones.
type LoopbackClient struct {
	baseURL    string
	cookieName string
	client     *http.Client
}

// NewLoopbackClient creates a client for the proxy served at baseURL.
func NewLoopbackClient(baseURL, cookieName string, timeout time.Duration) *LoopbackClient {
	if cookieName == "" {
		cookieName = auth.DefaultCookieName
	}
	if timeout <= 0 {
		timeout = luxor.DefaultTimeout
	}
	return &LoopbackClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: cookieName,
		client:     &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Get reads a logical endpoint and decodes the envelope's data into out.
func (c *LoopbackClient) Get(ctx context.Context, sessionToken, endpoint string, params luxor.Params, out interface{}) error {
	q := params.Clone()
	q["endpoint"] = endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+Path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create loopback request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: sessionToken})

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &CallError{Endpoint: endpoint, StatusCode: http.StatusBadGateway, Message: "proxy unreachable: " + err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CallError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "read proxy response: " + err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &CallError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "malformed proxy envelope"}
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &CallError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &CallError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "decode proxy data: " + err.Error()}
	}
	return nil
}
