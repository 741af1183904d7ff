// Package middleware provides Gin HTTP middleware for the station registry.
//
// Middleware ordering matters and is enforced in internal/api/router.go:
//
//	Recovery → RequestID → Metrics → Logger → CORS → SecurityHeaders → RateLimit → RequireAuth → Handler
//
// Rate limiting runs before auth so brute-force traffic is shed before any
// token parsing or database work. RequireAuth is attached only to mutating
// station routes and rejects before the handler — and therefore before any
// request body is read or validated.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evcharge/station-registry/internal/auth"
	"github.com/evcharge/station-registry/internal/db/repositories"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)

// Internal rejection reasons. These are logged for operators but deliberately
// never distinguish themselves in the response: every failure is a plain 401.
const (
	reasonNoCredentials  = "no_credentials"
	reasonInvalidToken   = "invalid_token"
	reasonUnknownSubject = "unknown_subject"
)

// RequireAuth guards a route group with bearer-token authentication. On
// success the resolved user (without password hash) is attached to the request
// context; on any failure the request is aborted with 401 before the handler,
// and before any request body is evaluated. The guard only reads from the
// credential store, never writes.
func RequireAuth(tokens *auth.TokenService, userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			reject(c, reasonNoCredentials, "Not authorized, no token provided.")
			return
		}

		if !strings.HasPrefix(header, "Bearer ") {
			// A credential in the wrong scheme is treated the same as none at all.
			reject(c, reasonNoCredentials, "Not authorized, no token provided.")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if tokenString == "" {
			reject(c, reasonNoCredentials, "Not authorized, no token provided.")
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			reject(c, reasonInvalidToken, "Not authorized, token failed or expired.")
			return
		}

		// A signature is only half the story: the subject must still exist.
		user, err := userRepo.GetByID(c.Request.Context(), claims.Subject)
		if err != nil {
			slog.Error("failed to resolve token subject", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"message": "Server error during authentication.",
			})
			return
		}
		if user == nil {
			reject(c, reasonUnknownSubject, "Not authorized, user not found for this token.")
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

func reject(c *gin.Context, reason, message string) {
	slog.Debug("request rejected by auth guard",
		"reason", reason,
		"path", c.FullPath(),
		"ip", c.ClientIP(),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}
