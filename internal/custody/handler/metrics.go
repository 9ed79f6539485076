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
	fcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forchain_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	fcRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forchain_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	fcParticipantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forchain_participants_registered_total",
		Help: "Total participants registered.",
	})

	fcEvidenceCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forchain_evidence_created_total",
		Help: "Total evidence items registered.",
	})

	fcTransfersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forchain_evidence_transfers_total",
		Help: "Total custody transfers recorded.",
	})

	fcVerifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forchain_chain_verification_failures_total",
		Help: "Total chain verifications that reported an invalid chain.",
	})

	fcPendingTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forchain_pending_transactions",
		Help: "Transactions currently awaiting a block.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
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

		fcRequestsTotal.WithLabelValues(method, path, status).Inc()
		fcRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// SetPendingGauge sets the pending-transaction gauge.
func SetPendingGauge(n int) {
	fcPendingTransactions.Set(float64(n))
}

func recordParticipantRegistered() { fcParticipantsTotal.Inc() }
func recordEvidenceCreated()       { fcEvidenceCreatedTotal.Inc() }
func recordEvidenceTransferred()   { fcTransfersTotal.Inc() }
func recordVerificationFailure()   { fcVerifyFailuresTotal.Inc() }

// RecordVerificationFailure bumps the verification-failure counter. Exported
// for the background audit loop, which lives outside this package.
func RecordVerificationFailure() { recordVerificationFailure() }
