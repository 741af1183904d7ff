// Package auth implements the registration and login endpoints.
//
// Login failures deliberately return 400 with one generic message for both the
// unknown-identifier and wrong-password paths, so a caller cannot probe which
// accounts exist. The response bodies for the two paths are byte-identical.
package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evcharge/station-registry/internal/auth"
	"github.com/evcharge/station-registry/internal/db/repositories"
	"github.com/evcharge/station-registry/internal/telemetry"
	"github.com/evcharge/station-registry/internal/validation"
)

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the payload for POST /api/auth/login. Login accepts either
// a username or an email address.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Handlers bundles the dependencies of the auth endpoints.
type Handlers struct {
	users  *repositories.UserRepository
	tokens *auth.TokenService
}

func NewHandlers(users *repositories.UserRepository, tokens *auth.TokenService) *Handlers {
	return &Handlers{users: users, tokens: tokens}
}

// Register handles POST /api/auth/register.
//
// The pre-insert lookups exist only for message quality; the unique indexes on
// the users table remain the authority, so a concurrent registration that wins
// the race still surfaces as the same 409 via the conflict error mapping.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.AuthAttemptsTotal.WithLabelValues("register", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  validation.Itemize(err),
		})
		return
	}

	ctx := c.Request.Context()

	if existing, err := h.users.FindByEmail(ctx, req.Email); err != nil {
		h.registerError(c, err)
		return
	} else if existing != nil {
		telemetry.AuthAttemptsTotal.WithLabelValues("register", "rejected").Inc()
		c.JSON(http.StatusConflict, gin.H{"message": "Email already exists."})
		return
	}

	if existing, err := h.users.FindByUsername(ctx, req.Username); err != nil {
		h.registerError(c, err)
		return
	} else if existing != nil {
		telemetry.AuthAttemptsTotal.WithLabelValues("register", "rejected").Inc()
		c.JSON(http.StatusConflict, gin.H{"message": "Username already exists."})
		return
	}

	user, err := h.users.Create(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if conflict, ok := repositories.AsConflict(err); ok {
			telemetry.AuthAttemptsTotal.WithLabelValues("register", "rejected").Inc()
			c.JSON(http.StatusConflict, gin.H{"message": conflict.Field + " already exists."})
			return
		}
		h.registerError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.registerError(c, err)
		return
	}

	telemetry.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user":    user,
		"token":   token,
	})
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  validation.Itemize(err),
		})
		return
	}

	user, err := h.users.FindByLogin(c.Request.Context(), req.Login)
	if err != nil {
		telemetry.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		slog.Error("login lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error during login."})
		return
	}

	// Unknown identifier and wrong password produce the same response.
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		telemetry.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials."})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		telemetry.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		slog.Error("token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error during login."})
		return
	}

	telemetry.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful.",
		"token":   token,
		"user":    user,
	})
}

func (h *Handlers) registerError(c *gin.Context, err error) {
	telemetry.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
	slog.Error("registration failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error during registration."})
}
