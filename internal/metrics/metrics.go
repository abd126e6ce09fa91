// Package metrics exposes the Prometheus collectors of the caisse service.
// Every Observe/Inc helper is a no-op until Init has run, so tests and
// tools that never call Init can use instrumented code freely.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "caisse_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	sessionsOpened  *prometheus.CounterVec
	sessionsClosed  *prometheus.CounterVec
	movements       *prometheus.CounterVec
	varianceAbs     prometheus.Histogram
	breakerState    prometheus.Gauge
	jobsProcessed   *prometheus.CounterVec
	jobsDeadLetters *prometheus.CounterVec
)

// Init registers the collectors on the default registry.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
		sessionsOpened = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sessions_opened_total",
				Help: "Session open attempts by result",
			},
			[]string{"result"},
		)
		sessionsClosed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sessions_closed_total",
				Help: "Closed sessions by variance flag",
			},
			[]string{"flag"},
		)
		movements = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "movements_recorded_total",
				Help: "Movement append attempts by kind and result",
			},
			[]string{"kind", "result"},
		)
		varianceAbs = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "closing_variance_abs_minor_units",
				Help:    "Absolute closing variance in currency minor units",
				Buckets: []float64{0, 1, 10, 100, 500, 1000, 5000, 10000, 50000, 100000},
			},
		)
		breakerState = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "storage_breaker_state",
				Help: "Storage circuit breaker state (0 closed, 1 open, 2 half-open)",
			},
		)
		jobsProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "jobs_processed_total",
				Help: "Background jobs processed by type and result",
			},
			[]string{"type", "result"},
		)
		jobsDeadLetters = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "jobs_dead_lettered_total",
				Help: "Background jobs moved to the dead letter queue by queue",
			},
			[]string{"queue"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			sessionsOpened,
			sessionsClosed,
			movements,
			varianceAbs,
			breakerState,
			jobsProcessed,
			jobsDeadLetters,
		)
	})
}

// ObserveHTTP records one served request. route is the gin route template.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

func IncSessionOpened(result string) {
	if sessionsOpened != nil {
		sessionsOpened.WithLabelValues(result).Inc()
	}
}

// ObserveSessionClosed counts a close and records |variance|.
func ObserveSessionClosed(flag string, absVariance int64) {
	if sessionsClosed != nil {
		sessionsClosed.WithLabelValues(flag).Inc()
	}
	if varianceAbs != nil {
		varianceAbs.Observe(float64(absVariance))
	}
}

func IncMovement(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if movements != nil {
		movements.WithLabelValues(kind, result).Inc()
	}
}

// SetBreakerState publishes the numeric CBState.
func SetBreakerState(state int) {
	if breakerState != nil {
		breakerState.Set(float64(state))
	}
}

func IncJob(jobType, result string) {
	if jobsProcessed != nil {
		jobsProcessed.WithLabelValues(jobType, result).Inc()
	}
}

func IncDeadLetter(queue string) {
	if jobsDeadLetters != nil {
		jobsDeadLetters.WithLabelValues(queue).Inc()
	}
}
