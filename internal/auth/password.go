// Package auth provides the authentication primitives for the station registry:
// bcrypt password hashing and JWT bearer token issuance/verification.
// See internal/middleware/auth.go for the request-time guard that uses them.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when the configured cost is zero or out of range.
const DefaultBcryptCost = 10

// HashPassword produces a salted bcrypt hash of plain. Each call salts
// independently, so hashing the same password twice yields different outputs.
func HashPassword(plain string, cost int) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("cannot hash an empty password")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
// It returns false, never an error, for empty or absent inputs.
func CheckPassword(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
