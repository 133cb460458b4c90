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

	// Domain counters for the scoring engine.
	ProblemsScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "problems_scored_total",
			Help: "Problems graded, by question type and outcome",
		},
		[]string{"question_type", "outcome"},
	)

	AssessmentsScored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assessments_scored_total",
			Help: "Assessments fully scored and aggregated",
		},
	)

	BlueprintsBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blueprints_built_total",
			Help: "Assessment blueprints built, by path",
		},
		[]string{"path"}, // history or cold_start
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ProblemsScored)
	prometheus.MustRegister(AssessmentsScored)
	prometheus.MustRegister(BlueprintsBuilt)
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
