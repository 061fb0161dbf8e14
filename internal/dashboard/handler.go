package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"miner-hosting/internal/api"
	"miner-hosting/internal/auth"
	"miner-hosting/internal/domain"
)

// Authenticator resolves a request to its caller and raw session token.
type Authenticator interface {
	Authenticate(r *http.Request) (*auth.Caller, string, error)
}

// Builder produces snapshots.
type Builder interface {
	Build(ctx context.Context, caller *auth.Caller, sessionToken string) (*domain.DashboardSnapshot, error)
}

// Handler serves GET /dashboard.
type Handler struct {
	auth    Authenticator
	builder Builder
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a dashboard handler.
func NewHandler(authn Authenticator, builder Builder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{auth: authn, builder: builder, logger: logger.Named("dashboard"), now: time.Now}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, token, err := h.authorize(r)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	snap, err := h.builder.Build(r.Context(), caller, token)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.logger.Error("dashboard build failed", zap.Int64("user_id", caller.UserID), zap.Error(err))
		}
		api.WriteError(w, api.Internal("dashboard unavailable"))
		return
	}

	api.WriteData(w, snap, h.now())
}

// authorize admits only privileged callers. It runs before any outbound call.
func (h *Handler) authorize(r *http.Request) (*auth.Caller, string, error) {
	caller, token, err := h.auth.Authenticate(r)
	if err != nil {
		if auth.IsCredentialError(err) {
			return nil, "", api.Unauthenticated("authentication required")
		}
		h.logger.Error("authentication lookup failed", zap.Error(err))
		return nil, "", api.Internal("internal error")
	}
	if !caller.IsPrivileged() {
		return nil, "", api.Unauthorized("dashboard requires an admin role")
	}
	return caller, token, nil
}
