// jwt.go handles bearer token creation, signing, and verification using a
// shared HMAC secret held by the TokenService.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSecret is returned when a TokenService is constructed without a signing secret.
	ErrMissingSecret = errors.New("jwt signing secret is not configured")

	// ErrMissingExpiry is returned when the token expiry duration is unset or unparsable.
	ErrMissingExpiry = errors.New("token expiry duration is not configured")

	// ErrInvalidToken covers malformed, mis-signed, and expired tokens. The
	// distinction is logged internally but never surfaced to clients.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the JWT payload bound to an authenticated user. The user id is
// carried in the registered subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies bearer tokens. It is constructed once at
// startup from the auth configuration and passed by reference wherever tokens
// are needed; nothing in this package reads ambient process state.
type TokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewTokenService validates the signing secret and expiry up front so a
// misconfigured deployment fails at startup, not on the first login.
func NewTokenService(secret, expiry string) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if expiry == "" {
		return nil, ErrMissingExpiry
	}
	d, err := time.ParseDuration(expiry)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingExpiry, expiry)
	}

	return &TokenService{
		secret: []byte(secret),
		expiry: d,
		issuer: "station-registry",
	}, nil
}

// Issue creates a signed HS256 token whose subject is userID, expiring after
// the configured duration.
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of tokenString and returns its
// claims. Any failure — wrong algorithm, bad signature, expired, garbage —
// maps to ErrInvalidToken.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Expiry returns the configured token lifetime.
func (s *TokenService) Expiry() time.Duration {
	return s.expiry
}
