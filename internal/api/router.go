// Package api wires together all HTTP routes for the station registry backend.
//
// Route grouping philosophy:
//   - Reads (/api/stations GET endpoints) are intentionally unauthenticated so
//     that map frontends can render stations without an account.
//   - Writes (POST/PUT/DELETE under /api/stations) always require a bearer
//     token. The guard runs before the handler, so an unauthenticated write is
//     rejected before its body is ever validated.
//   - /api/auth carries a stricter rate limit than the rest of the API to slow
//     credential stuffing.
package api

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	authapi "github.com/evcharge/station-registry/internal/api/auth"
	"github.com/evcharge/station-registry/internal/api/stations"
	"github.com/evcharge/station-registry/internal/auth"
	"github.com/evcharge/station-registry/internal/config"
	"github.com/evcharge/station-registry/internal/db/repositories"
	"github.com/evcharge/station-registry/internal/middleware"
	"github.com/evcharge/station-registry/internal/telemetry"
)

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	rateLimiters []middleware.ClientLimiter
	redisClient  *redis.Client
	stopDBStats  func()
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.stopDBStats != nil {
		bg.stopDBStats()
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, cfg.Auth.BcryptCost)
	stationRepo := repositories.NewStationRepository(sqlx.NewDb(db, "postgres"))

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	if cfg.Telemetry.MetricsEnabled {
		bg.stopDBStats = telemetry.StartDBStatsCollector(db)
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	authHandlers := authapi.NewHandlers(userRepo, tokens)
	stationHandlers := stations.NewHandlers(stationRepo)
	requireAuth := middleware.RequireAuth(tokens, userRepo)

	apiGroup := router.Group("/api")
	if cfg.Security.RateLimit.Enabled {
		limiter := newClientLimiter(cfg, bg, "api",
			middleware.DefaultRateLimitConfig(cfg.Security.RateLimit.RequestsPerMinute))
		bg.rateLimiters = append(bg.rateLimiters, limiter)
		apiGroup.Use(middleware.RateLimitMiddleware(limiter))
	}

	authGroup := apiGroup.Group("/auth")
	if cfg.Security.RateLimit.Enabled {
		limiter := newClientLimiter(cfg, bg, "auth",
			middleware.AuthRateLimitConfig(cfg.Security.RateLimit.AuthRequestsPerMinute))
		bg.rateLimiters = append(bg.rateLimiters, limiter)
		authGroup.Use(middleware.RateLimitMiddleware(limiter))
	}
	{
		authGroup.POST("/register", authHandlers.Register)
		authGroup.POST("/login", authHandlers.Login)
	}

	stationsGroup := apiGroup.Group("/stations")
	{
		stationsGroup.GET("", stationHandlers.List)
		stationsGroup.GET("/:id", stationHandlers.Get)

		// Guard first so invalid credentials reject before body validation.
		stationsGroup.POST("", requireAuth, stationHandlers.Create)
		stationsGroup.PUT("/:id", requireAuth, stationHandlers.Update)
		stationsGroup.DELETE("/:id", requireAuth, stationHandlers.Delete)
	}

	return router, bg
}

// newClientLimiter picks the Redis-backed limiter when Redis is configured and
// the in-memory token bucket otherwise. Each key space ("api", "auth") gets its
// own limiter so the strict auth budget does not starve general traffic.
func newClientLimiter(cfg *config.Config, bg *BackgroundServices, prefix string, rlCfg middleware.RateLimitConfig) middleware.ClientLimiter {
	if cfg.Redis.Addr == "" {
		return middleware.NewMemoryRateLimiter(rlCfg)
	}

	if bg.redisClient == nil {
		bg.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		slog.Info("rate limiting via redis", "addr", cfg.Redis.Addr)
	}

	return middleware.NewRedisRateLimiter(bg.redisClient, prefix, rlCfg)
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service. The registry
// has no dependency beyond its database, so readiness and liveness differ only
// in response shape; the separate endpoint keeps deployment probes stable if
// further checks are added.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
