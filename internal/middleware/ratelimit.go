// ratelimit.go enforces per-client request rate limits, returning 429 when the
// configured requests-per-minute threshold is exceeded. Two implementations
// share one middleware: an in-memory token bucket for single-instance
// deployments, and a Redis-backed limiter (GCRA via redis_rate) for deployments
// where multiple replicas must share one budget per client.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/evcharge/station-registry/internal/safego"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute
	RequestsPerMinute int
	// BurstSize is the maximum burst of requests allowed
	BurstSize int
	// CleanupInterval is how often to clean up expired in-memory entries
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns limits suitable for general API traffic.
func DefaultRateLimitConfig(requestsPerMinute int) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		BurstSize:         requestsPerMinute / 4,
		CleanupInterval:   5 * time.Minute,
	}
}

// AuthRateLimitConfig returns stricter limits for the /api/auth endpoints to
// slow down credential stuffing.
func AuthRateLimitConfig(requestsPerMinute int) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		BurstSize:         max(requestsPerMinute/2, 1),
		CleanupInterval:   5 * time.Minute,
	}
}

// ClientLimiter decides whether a request from the given client key may
// proceed. Implementations must be safe for concurrent use.
type ClientLimiter interface {
	Allow(ctx context.Context, key string) bool
	Stop()
}

// RateLimitMiddleware rejects requests over the limit with 429. The client key
// is the request IP.
func RateLimitMiddleware(limiter ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Too many requests. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// ---------------------------------------------------------------------------
// In-memory token bucket
// ---------------------------------------------------------------------------

// rateLimitEntry tracks the bucket state for a single client
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
}

// MemoryRateLimiter implements a per-client token bucket held in process memory.
type MemoryRateLimiter struct {
	config  RateLimitConfig
	entries map[string]*rateLimitEntry
	mu      sync.Mutex
	stopCh  chan struct{}
}

// NewMemoryRateLimiter creates an in-memory limiter and starts its cleanup loop.
func NewMemoryRateLimiter(config RateLimitConfig) *MemoryRateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &MemoryRateLimiter{
		config:  config,
		entries: make(map[string]*rateLimitEntry),
		stopCh:  make(chan struct{}),
	}

	safego.Go(rl.cleanup)

	return rl
}

// Allow implements ClientLimiter using the token bucket algorithm.
func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	refillRate := float64(rl.config.RequestsPerMinute) / 60.0

	entry, ok := rl.entries[key]
	if !ok {
		entry = &rateLimitEntry{
			tokens:     float64(rl.config.BurstSize),
			lastUpdate: now,
		}
		rl.entries[key] = entry
	} else {
		elapsed := now.Sub(entry.lastUpdate).Seconds()
		entry.tokens += elapsed * refillRate
		if entry.tokens > float64(rl.config.BurstSize) {
			entry.tokens = float64(rl.config.BurstSize)
		}
		entry.lastUpdate = now
	}

	if entry.tokens < 1 {
		return false
	}
	entry.tokens--
	return true
}

// Stop terminates the cleanup goroutine.
func (rl *MemoryRateLimiter) Stop() {
	close(rl.stopCh)
}

// cleanup periodically removes entries idle long enough to have fully refilled.
func (rl *MemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			rl.mu.Lock()
			for key, entry := range rl.entries {
				if entry.lastUpdate.Before(cutoff) {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Redis-backed limiter
// ---------------------------------------------------------------------------

// RedisRateLimiter enforces a shared per-client budget across replicas using
// the GCRA implementation in redis_rate.
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	prefix  string
}

// NewRedisRateLimiter creates a limiter over an existing Redis client. The
// prefix keeps independently-configured limiters (general vs auth) from
// sharing counters.
func NewRedisRateLimiter(client *redis.Client, prefix string, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   config.RequestsPerMinute,
			Period: time.Minute,
			Burst:  config.BurstSize,
		},
		prefix: prefix,
	}
}

// Allow implements ClientLimiter. Redis unavailability fails open: shedding
// all traffic because the limiter store is down would be a worse failure mode
// than briefly not limiting.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	res, err := rl.limiter.Allow(ctx, rl.prefix+":"+key, rl.limit)
	if err != nil {
		slog.Warn("redis rate limiter unavailable, allowing request", "error", err)
		return true
	}
	return res.Allowed > 0
}

// Stop is a no-op; the Redis client is owned and closed by the caller.
func (rl *RedisRateLimiter) Stop() {}
