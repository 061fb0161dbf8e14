package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miner-hosting/internal/domain"
	"miner-hosting/internal/storage/memory"
)

func TestSigner_IssueAndVerify(t *testing.T) {
	signer, err := NewSigner("test-secret")
	require.NoError(t, err)

	token, err := signer.Issue(42, time.Hour)
	require.NoError(t, err)

	claims, err := signer.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestSigner_RejectsBadTokens(t *testing.T) {
	signer, _ := NewSigner("test-secret")
	other, _ := NewSigner("other-secret")

	forged, err := other.Issue(1, time.Hour)
	require.NoError(t, err)

	valid, _ := signer.Issue(1, time.Hour)

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "abc"},
		{"garbage segments", "a.b.c"},
		{"wrong secret", forged},
		{"truncated signature", valid[:len(valid)-2]},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte("test-secret"), jwt.RegisteredClaims{Subject: "1", ExpiresAt: exp})},
		{"unsigned", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{Subject: "1", ExpiresAt: exp})},
		{"missing expiry", sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{Subject: "1"})},
		{"missing subject", sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{ExpiresAt: exp})},
		{"non-numeric subject", sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.VerifySessionToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSigner_AcceptsExternallyIssuedJWT(t *testing.T) {
	signer, _ := NewSigner("shared-secret")

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "9",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "ops@example.com",
	}).SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	claims, err := signer.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)
}

func TestSigner_IssuesStandardClaims(t *testing.T) {
	signer, _ := NewSigner("test-secret")
	token, err := signer.Issue(42, time.Hour)
	require.NoError(t, err)

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)

	assert.Equal(t, "HS256", parsed.Method.Alg())
	assert.Equal(t, "42", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)

	id, err := base58.Decode(claims.ID)
	require.NoError(t, err)
	assert.Len(t, id, 16)
}

func TestSigner_Expired(t *testing.T) {
	signer, _ := NewSigner("test-secret")
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issuedAt }

	token, err := signer.Issue(7, time.Minute)
	require.NoError(t, err)

	signer.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = signer.VerifySessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSigner_InvalidArguments(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)

	signer, _ := NewSigner("s")
	_, err = signer.Issue(0, time.Hour)
	assert.Error(t, err)
	_, err = signer.Issue(1, 0)
	assert.Error(t, err)
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *Signer, *domain.User) {
	t.Helper()

	users := memory.NewUserStore(nil)
	name := "acct_a"
	u := &domain.User{Email: "client@example.com", Role: domain.RoleClient, ExternalSubaccountName: &name}
	require.NoError(t, users.Insert(context.Background(), u))

	signer, err := NewSigner("test-secret")
	require.NoError(t, err)

	return NewAuthenticator(signer, users, ""), signer, u
}

func TestAuthenticator_CookieAndBearer(t *testing.T) {
	a, signer, u := newTestAuthenticator(t)
	token, _ := signer.Issue(u.ID, time.Hour)

	cookieReq := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	cookieReq.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})

	bearerReq := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	bearerReq.Header.Set("Authorization", "Bearer "+token)

	for _, r := range []*http.Request{cookieReq, bearerReq} {
		caller, gotToken, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, token, gotToken)
		assert.Equal(t, u.ID, caller.UserID)
		assert.Equal(t, domain.RoleClient, caller.Role)
		assert.Equal(t, "acct_a", caller.ExternalSubaccountName)
		assert.False(t, caller.IsPrivileged())
	}
}

func TestAuthenticator_Failures(t *testing.T) {
	a, signer, _ := newTestAuthenticator(t)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	_, _, err := a.Authenticate(r)
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.True(t, IsCredentialError(err))

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, _, err = a.Authenticate(r)
	assert.ErrorIs(t, err, ErrNoCredentials)

	unknown, _ := signer.Issue(999, time.Hour)
	r = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.Header.Set("Authorization", "Bearer "+unknown)
	_, _, err = a.Authenticate(r)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
