package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenMissing is returned when there is no token to inspect
var ErrTokenMissing = errors.New("token missing")

// Claims represents the client-visible part of a session token.
// The server signs tokens with the username as subject.
type Claims struct {
	jwt.RegisteredClaims
}

// Username returns the token subject
func (c *Claims) Username() string {
	return c.Subject
}

// ExpiresWithin reports whether the token expires before now+d.
// Tokens without an expiry never expire.
func (c *Claims) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !c.ExpiresAt.Time.After(now.Add(d))
}

// ParseUnverified decodes claims without checking the signature.
// The client cannot verify server tokens; this is only used to read
// the subject and the expiry.
func ParseUnverified(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// GenerateToken signs an HS256 token for subject. Used by local tooling and tests.
func GenerateToken(subject, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
