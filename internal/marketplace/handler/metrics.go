package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	aguayoRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aguayo_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	aguayoRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aguayo_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	aguayoProfilesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aguayo_profiles_created_total",
		Help: "Total profiles created through onboarding, by role.",
	}, []string{"role"})

	aguayoUploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aguayo_uploads_total",
		Help: "Total objects uploaded to the media store.",
	})

	aguayoHealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aguayo_health_checks_total",
		Help: "Total health check probes by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		aguayoRequestsTotal.WithLabelValues(method, path, status).Inc()
		aguayoRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordProfileCreated records a completed onboarding run.
func RecordProfileCreated(role string) {
	aguayoProfilesCreatedTotal.WithLabelValues(role).Inc()
}

// RecordUpload records one stored object.
func RecordUpload() {
	aguayoUploadsTotal.Inc()
}

// RecordHealthCheck records a health check probe result.
func RecordHealthCheck(success bool) {
	if success {
		aguayoHealthChecksTotal.WithLabelValues("success").Inc()
	} else {
		aguayoHealthChecksTotal.WithLabelValues("failure").Inc()
	}
}
