// Package api holds the JSON envelope and error kinds shared by HTTP handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
}

// Kind classifies a handler error and selects its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindUnauthorized
	KindValidation
	KindMethodNotAllowed
	KindInvalidConfiguration
)

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a handler error carrying its kind and a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	// StatusCode overrides Kind.Status when non-zero (upstream passthrough).
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}

// Status returns the HTTP status to respond with.
func (e *Error) Status() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	return e.Kind.Status()
}

// Constructors for the common kinds.

func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Unauthorized(msg string) *Error    { return &Error{Kind: KindUnauthorized, Message: msg} }
func Validation(msg string) *Error      { return &Error{Kind: KindValidation, Message: msg} }
func Internal(msg string) *Error        { return &Error{Kind: KindInternal, Message: msg} }

// MethodNotAllowed reports a method the endpoint does not accept.
func MethodNotAllowed(method string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: "method " + method + " not allowed"}
}

// InvalidConfiguration reports missing account or deployment setup. status
// selects 404 for a tenant without a subaccount mapping, 500 for server gaps.
func InvalidConfiguration(status int, msg string) *Error {
	return &Error{Kind: KindInvalidConfiguration, StatusCode: status, Message: msg}
}

// Upstream wraps a pool failure, keeping its status.
func Upstream(status int, msg string) *Error {
	return &Error{Kind: KindInternal, StatusCode: status, Message: msg}
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteData writes a success envelope stamped with now.
func WriteData(w http.ResponseWriter, data interface{}, now time.Time) {
	ts := now.UTC()
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Timestamp: &ts})
}

// WriteError writes a failure envelope. Errors that are not *Error become 500.
func WriteError(w http.ResponseWriter, err error) int {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal("internal error")
	}
	status := apiErr.Status()
	WriteJSON(w, status, Envelope{Success: false, Error: apiErr.Message})
	return status
}
