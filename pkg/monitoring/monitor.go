package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_processed_total",
			Help: "Jobs taken off the queue, by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	JobRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_job_retries_total",
			Help: "Jobs rescheduled after a handler failure",
		},
		[]string{"kind"},
	)

	QueueFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_dispatch_fallback_total",
			Help: "Dispatches that ran inline because the queue transport was unavailable",
		},
		[]string{"kind"},
	)

	StuckAttempts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attempts_stuck_processing",
			Help: "Attempts sitting in processing state beyond the configured threshold",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(JobsProcessed)
	prometheus.MustRegister(JobRetries)
	prometheus.MustRegister(QueueFallbacks)
	prometheus.MustRegister(StuckAttempts)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
