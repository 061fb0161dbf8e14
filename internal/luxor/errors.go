package luxor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Error is returned for any non-2xx pool response or transport failure.
// StatusCode carries the upstream status so callers can branch on it.
type Error struct {
	StatusCode int
	Message    string
	Details    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("luxor: %d %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("luxor: %d %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// RateLimited reports whether the pool rejected the call with 429.
func (e *Error) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// SchemaError is returned when a 2xx response does not match the expected shape.
type SchemaError struct {
	Endpoint string
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("luxor: invalid %s response: %s", e.Endpoint, e.Reason)
}

// statusMessage maps an upstream status code to a caller-facing description.
func statusMessage(code int) string {
	switch {
	case code == http.StatusBadRequest:
		return "bad request: invalid parameters"
	case code == http.StatusUnauthorized:
		return "unauthorized: check pool API credentials"
	case code == http.StatusForbidden:
		return "forbidden"
	case code == http.StatusNotFound:
		return "endpoint not found"
	case code == http.StatusTooManyRequests:
		return "rate limited: retry later"
	case code == http.StatusGatewayTimeout:
		return "upstream timeout"
	case code >= 500:
		return "upstream server error"
	default:
		return fmt.Sprintf("unexpected status %d", code)
	}
}

// newStatusError builds an Error from a non-2xx response body.
func newStatusError(code int, body []byte) *Error {
	return &Error{
		StatusCode: code,
		Message:    statusMessage(code),
		Details:    upstreamDetails(body),
	}
}

// upstreamDetails extracts the pool's own error text from a response body.
func upstreamDetails(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, s := range []string{payload.Message, payload.Error, payload.Detail} {
			if s != "" {
				return s
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxDetailsLen {
		cut := maxDetailsLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

const maxDetailsLen = 256
