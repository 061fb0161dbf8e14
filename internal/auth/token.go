// Package auth verifies session tokens and resolves them to callers.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrNoCredentials is returned when a request carries neither cookie nor bearer token.
	ErrNoCredentials = errors.New("no session credentials")
)

// Claims is the verified content of a session token.
type Claims struct {
	UserID    int64
	ExpiresAt time.Time
}

// Verifier checks session tokens.
type Verifier interface {
	VerifySessionToken(token string) (Claims, error)
}

// Signer issues and verifies HS256 JWT session tokens. The user id travels
// in "sub"; "exp" is required.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer. The secret must be non-empty.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a token for userID valid for ttl.
func (s *Signer) Issue(userID int64, ttl time.Duration) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("issue token: invalid user id %d", userID)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("issue token: non-positive ttl %s", ttl)
	}

	id, err := newTokenID()
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        id,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifySessionToken implements Verifier.
func (s *Signer) VerifySessionToken(token string) (Claims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, fmt.Errorf("%w: subject %q is not a user id", ErrInvalidToken, claims.Subject)
	}

	return Claims{UserID: userID, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
}

// newTokenID returns a random base58 "jti".
func newTokenID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base58.Encode(b[:]), nil
}

var _ Verifier = (*Signer)(nil)
