package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage"
)

// DefaultCookieName is the session cookie read by Authenticator.
const DefaultCookieName = "session"

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID                 int64
	Role                   domain.Role
	ExternalSubaccountName string
}

// IsPrivileged reports whether the caller may see every tenant.
func (c *Caller) IsPrivileged() bool {
	return c != nil && c.Role.IsPrivileged()
}

// UserLookup resolves a user ID to its account.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Authenticator resolves request credentials to a Caller.
type Authenticator struct {
	verifier   Verifier
	users      UserLookup
	cookieName string
}

// NewAuthenticator creates an Authenticator reading cookieName (DefaultCookieName when empty).
func NewAuthenticator(verifier Verifier, users UserLookup, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Authenticator{verifier: verifier, users: users, cookieName: cookieName}
}

// CookieName returns the session cookie name.
func (a *Authenticator) CookieName() string {
	return a.cookieName
}

// SessionToken extracts the raw token from the session cookie or the bearer header.
func (a *Authenticator) SessionToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), nil
		}
	}
	return "", ErrNoCredentials
}

// Authenticate verifies the request's token and loads the caller.
// Credential problems wrap ErrNoCredentials or ErrInvalidToken; anything else is a lookup failure.
func (a *Authenticator) Authenticate(r *http.Request) (*Caller, string, error) {
	token, err := a.SessionToken(r)
	if err != nil {
		return nil, "", err
	}

	claims, err := a.verifier.VerifySessionToken(token)
	if err != nil {
		return nil, "", err
	}

	user, err := a.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: unknown user %d", ErrInvalidToken, claims.UserID)
		}
		return nil, "", fmt.Errorf("load user %d: %w", claims.UserID, err)
	}

	return &Caller{
		UserID:                 user.ID,
		Role:                   user.Role,
		ExternalSubaccountName: strings.TrimSpace(user.SubaccountName()),
	}, token, nil
}

// IsCredentialError reports whether err means the request is unauthenticated.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrNoCredentials) || errors.Is(err, ErrInvalidToken)
}
