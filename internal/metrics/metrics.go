package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Outbound calls to the fleet platform and core services.
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kickride",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Total outbound requests by upstream, operation and result opcode",
	}, []string{"upstream", "operation", "opcode"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kickride",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Outbound request latency in seconds",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"upstream", "operation"})

	// Ride lifecycle.
	RideEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kickride",
		Subsystem: "ride",
		Name:      "events_total",
		Help:      "Ride lifecycle events (started, terminated, already_ended, compensated, ...)",
	}, []string{"event"})

	CouponRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kickride",
		Subsystem: "coupon",
		Name:      "rejections_total",
		Help:      "Coupon eligibility rejections by rule",
	}, []string{"rule"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kickride",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})
)

// ObserveUpstream records one outbound call. opcode is the upstream's result
// opcode, 0 on success.
func ObserveUpstream(upstream, operation string, opcode int, took time.Duration) {
	upstreamRequestsTotal.WithLabelValues(upstream, operation, strconv.Itoa(opcode)).Inc()
	upstreamRequestDuration.WithLabelValues(upstream, operation).Observe(took.Seconds())
}

// Middleware counts served requests by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
