package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricHTTPLatency is the latency metric written per request.
const MetricHTTPLatency = "HTTPLatency"

// LatencyRecorder receives request latencies.
type LatencyRecorder interface {
	RecordLatency(ctx context.Context, metricName string, d time.Duration, dimensions map[string]string) error
}

// RequestMetrics records one latency sample per request, dimensioned by route
// template and status class. Writes happen off the request goroutine.
func RequestMetrics(rec LatencyRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dims := map[string]string{
			"Route":  c.Request.Method + " " + route,
			"Status": strconv.Itoa(c.Writer.Status()/100) + "xx",
		}
		d := time.Since(start)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = rec.RecordLatency(ctx, MetricHTTPLatency, d, dims)
		}()
	}
}
