package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess      = "success"
	OutcomeConflict     = "conflict"
	OutcomeInvalid      = "invalid"
	OutcomeExpired      = "expired"
	OutcomeMissing      = "missing"
	OutcomeError        = "error"
	unmatchedRouteLabel = "unmatched"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasktracker_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tasktracker_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tasktracker_http_requests_in_flight",
		Help: "HTTP requests currently being served.",
	})

	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasktracker_registrations_total",
		Help: "Registration attempts by outcome.",
	}, []string{"outcome"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasktracker_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	tokenVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasktracker_token_verifications_total",
		Help: "Bearer token checks on protected routes by outcome.",
	}, []string{"outcome"})
)

func ObserveRegistration(outcome string) {
	registrationsTotal.WithLabelValues(outcome).Inc()
}

func ObserveLogin(outcome string) {
	loginsTotal.WithLabelValues(outcome).Inc()
}

func ObserveTokenVerification(outcome string) {
	tokenVerificationsTotal.WithLabelValues(outcome).Inc()
}

// MetricsMiddleware records request count, latency and in-flight requests.
// Routes are labelled by their pattern, not the concrete path.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRouteLabel
		}
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes the default registry in the Prometheus text format.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
