package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evcharge/station-registry/internal/telemetry"
)

// MetricsMiddleware records a request counter and latency histogram for every
// request. The path label uses c.FullPath(), the matched route template
// (e.g. /api/stations/:id), not the raw URL, so user-supplied path segments
// cannot inflate label cardinality. Unmatched routes use "<no-route>".
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
