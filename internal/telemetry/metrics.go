// Package telemetry provides application-level observability for the station registry.
//
// All metrics are registered against the default Prometheus registry and are served
// on the side-channel HTTP server started by cmd/server:
//
//	GET http://<host>:<EVR_TELEMETRY_METRICS_PORT>/metrics
//
// Default port: 9090. The endpoint is not part of the Gin router, so it bypasses
// CORS, rate limiting, and authentication.
//
// HTTP metrics are labelled by the Gin route template (e.g. /api/stations/:id),
// never the raw URL, to keep label cardinality bounded regardless of what path
// segments clients send.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/evcharge/station-registry/internal/safego"
)

var (
	// HTTPRequestsTotal counts requests by method, route template, and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration is a latency histogram by method and route template.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// AuthAttemptsTotal counts authentication outcomes. The operation label is
	// "register" or "login"; the result label is "success", "rejected" (bad
	// credentials / validation / conflict), or "error".
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of registration and login attempts, by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// StationWritesTotal counts station mutations by operation (create, update, delete).
	StationWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "station_writes_total",
			Help: "Total number of station create/update/delete operations that reached the store.",
		},
		[]string{"operation"},
	)

	// DBConnectionsOpen tracks the database connection pool state.
	DBConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections",
			Help: "Database connection pool state (open, in_use, idle).",
		},
		[]string{"state"},
	)
)

// StartDBStatsCollector starts a background loop exporting sql.DB pool statistics
// every 30 seconds. The returned stop function terminates the loop; call it during
// shutdown after the HTTP server has drained.
func StartDBStatsCollector(db *sql.DB) (stop func()) {
	done := make(chan struct{})

	safego.Go(func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				DBConnectionsOpen.WithLabelValues("open").Set(float64(stats.OpenConnections))
				DBConnectionsOpen.WithLabelValues("in_use").Set(float64(stats.InUse))
				DBConnectionsOpen.WithLabelValues("idle").Set(float64(stats.Idle))
			case <-done:
				return
			}
		}
	})

	slog.Debug("database pool stats collector started")
	return func() { close(done) }
}
