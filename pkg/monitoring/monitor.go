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

	// 引擎侧指标
	SegmentsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pathway_segments_generated_total",
			Help: "Total number of pathway segments generated",
		},
	)

	OutcomesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathway_outcomes_processed_total",
			Help: "Total number of activity outcomes processed, by resulting mastery status",
		},
		[]string{"status"},
	)

	SaveConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pathway_profile_save_conflicts_total",
			Help: "Total number of optimistic-lock conflicts on profile save",
		},
	)

	EmptySignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathway_empty_signals_total",
			Help: "Total number of empty-result signals returned by the engine",
		},
		[]string{"signal"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SegmentsGenerated)
	prometheus.MustRegister(OutcomesProcessed)
	prometheus.MustRegister(SaveConflicts)
	prometheus.MustRegister(EmptySignals)
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
