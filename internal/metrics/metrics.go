// Package metrics exposes Prometheus collectors for the sentinel service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sentinelCyclesTotal        *prometheus.CounterVec
	sentinelNotificationsTotal *prometheus.CounterVec
	sentinelLoginsTotal        *prometheus.CounterVec
	sentinelFetchSeconds       prometheus.Histogram
	sentinelPendingGames       prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		sentinelCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_cycles_total",
				Help: "Total number of check cycles, labeled by outcome.",
			},
			[]string{"status"},
		)

		sentinelNotificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_notifications_total",
				Help: "Total number of webhook notifications, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		sentinelLoginsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_logins_total",
				Help: "Total number of re-login attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		sentinelFetchSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sentinel_fetch_duration_seconds",
				Help:    "Histogram of turn-page fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		sentinelPendingGames = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentinel_pending_games",
				Help: "Pending game count observed by the most recent cycle.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycle increments the cycle counter for the given outcome.
func ObserveCycle(status string) {
	sentinelCyclesTotal.WithLabelValues(status).Inc()
}

// ObserveNotification increments the notification counter.
func ObserveNotification(outcome string) {
	sentinelNotificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveLogin increments the re-login counter.
func ObserveLogin(outcome string) {
	sentinelLoginsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records the duration of one turn-page fetch.
func ObserveFetch(duration time.Duration) {
	sentinelFetchSeconds.Observe(duration.Seconds())
}

// SetPendingGames records the pending game count from the latest cycle.
func SetPendingGames(count int) {
	sentinelPendingGames.Set(float64(count))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
