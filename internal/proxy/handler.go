// Package proxy exposes the pool API to authenticated callers through an
// allow-listed set of logical endpoints, scoping tenant requests to their own subaccount.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"miner-hosting/internal/api"
	"miner-hosting/internal/auth"
	"miner-hosting/internal/luxor"
	"miner-hosting/internal/observability"
)

const maxBodyBytes = 1 << 20

// reserved request keys that never reach the pool as parameters.
var reserved = []string{"endpoint", "currency"}

// Authenticator resolves a request to its caller.
type Authenticator interface {
	Authenticate(r *http.Request) (*auth.Caller, string, error)
}

// Handler serves /proxy.
type Handler struct {
	auth     Authenticator
	pool     Pool
	currency luxor.Currency
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a proxy handler. currency is used when a request names none.
func NewHandler(authn Authenticator, pool Pool, currency luxor.Currency, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		auth:     authn,
		pool:     pool,
		currency: currency,
		logger:   logger.Named("proxy"),
		now:      time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.serve(r)
	if err != nil {
		status := api.WriteError(w, err)
		observability.RecordProxyRequest(metricName(name), status)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("proxy request failed",
				zap.String("endpoint", name),
				zap.String("method", r.Method),
				zap.Int("status", status),
				zap.Error(err),
			)
		}
		return
	}

	api.WriteData(w, data, h.now())
	observability.RecordProxyRequest(name, http.StatusOK)
}

func (h *Handler) serve(r *http.Request) (string, interface{}, error) {
	caller, _, err := h.auth.Authenticate(r)
	if err != nil {
		if auth.IsCredentialError(err) {
			return "", nil, api.Unauthenticated("authentication required")
		}
		return "", nil, fmt.Errorf("authenticate: %w", err)
	}

	params, err := requestParams(r)
	if err != nil {
		return "", nil, err
	}
	name := params["endpoint"]

	ep, ok := Lookup(name)
	if !ok {
		if name == "" {
			return name, nil, api.Validation("missing endpoint")
		}
		return name, nil, api.Validation(fmt.Sprintf("unknown endpoint %q (expected one of %s)", name, strings.Join(Names(), ", ")))
	}
	if !ep.Allows(r.Method) {
		return name, nil, api.MethodNotAllowed(r.Method)
	}
	if ep.AdminOnly && !caller.IsPrivileged() {
		return name, nil, api.Unauthorized("endpoint requires an admin role")
	}

	c := call{method: r.Method, params: params.Clone()}
	for _, k := range reserved {
		delete(c.params, k)
	}

	if ep.RequiresCurrency {
		code := params["currency"]
		if code == "" {
			code = string(h.currency)
		}
		if c.currency, err = luxor.ParseCurrency(code); err != nil {
			return name, nil, api.Validation(err.Error())
		}
	}

	if ep.Scoped && !caller.IsPrivileged() {
		own := caller.ExternalSubaccountName
		if own == "" {
			return name, nil, api.InvalidConfiguration(http.StatusNotFound, "subaccount not configured")
		}
		if requested := c.params["subaccount_names"]; requested != "" && requested != own {
			h.logger.Warn("discarding caller-supplied subaccount scope",
				zap.Int64("user_id", caller.UserID),
				zap.String("endpoint", name),
				zap.String("requested", requested),
			)
		}
		c.params["subaccount_names"] = own
	}

	for _, p := range ep.RequiredParams {
		if c.params[p] == "" {
			return name, nil, api.Validation("missing required parameter: " + p)
		}
	}

	if !h.pool.Configured() {
		return name, nil, api.InvalidConfiguration(http.StatusInternalServerError, "pool API credential not configured")
	}

	data, err := ep.forward(r.Context(), h.pool, c)
	if err != nil {
		var poolErr *luxor.Error
		if errors.As(err, &poolErr) && poolErr.RateLimited() {
			h.logger.Warn("pool rate limit reached",
				zap.String("endpoint", name),
				zap.Int64("user_id", caller.UserID),
			)
		}
		return name, nil, translateError(err)
	}
	return name, data, nil
}

// requestParams merges query parameters with a JSON body for non-GET requests.
// Body values override query values.
func requestParams(r *http.Request) (luxor.Params, error) {
	params := luxor.ParamsFromValues(r.URL.Query())
	if r.Method == http.MethodGet || r.Body == nil {
		return params, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, api.Validation("read request body")
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return params, nil
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, api.Validation("request body must be a JSON object")
	}
	for k, v := range body {
		if s := paramString(v); s != "" {
			params[k] = s
		}
	}
	return params, nil
}

// paramString flattens a JSON value into a query parameter. Arrays are comma-joined.
func paramString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := paramString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

// translateError maps pool failures onto response errors.
func translateError(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var poolErr *luxor.Error
	if errors.As(err, &poolErr) {
		msg := poolErr.Message
		if poolErr.Details != "" {
			msg += ": " + poolErr.Details
		}
		return api.Upstream(poolErr.StatusCode, msg)
	}

	var schemaErr *luxor.SchemaError
	if errors.As(err, &schemaErr) {
		return api.Upstream(http.StatusBadGateway, schemaErr.Error())
	}

	if errors.Is(err, context.Canceled) {
		return api.Internal("request canceled")
	}
	return api.Internal("internal error")
}

func metricName(name string) string {
	if _, ok := Lookup(name); ok {
		return name
	}
	return "unknown"
}
