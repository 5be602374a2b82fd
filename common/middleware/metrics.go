package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/GuilhermeXavier08/mythic/metrics"
	awspkg "github.com/GuilhermeXavier08/mythic/pkg/aws"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency to Prometheus and, when
// enabled, CloudWatch. CloudWatch calls run off the request path.
func Metrics(prom *metrics.Metrics, cw *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}

		prom.ObserveRequest(handler, strconv.Itoa(status), float64(duration.Milliseconds()))

		if !cw.IsEnabled() {
			return
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    handler,
			"Status":  statusCodeToRange(status),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = cw.RecordCount(ctx, awspkg.MetricHTTPRequests, dimensions)
			_ = cw.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dimensions)
			switch {
			case status >= 500:
				_ = cw.RecordCount(ctx, awspkg.MetricHTTPErrors, dimensions)
				_ = cw.RecordCount(ctx, awspkg.MetricHTTP5xx, dimensions)
			case status >= 400:
				_ = cw.RecordCount(ctx, awspkg.MetricHTTPErrors, dimensions)
				_ = cw.RecordCount(ctx, awspkg.MetricHTTP4xx, dimensions)
			}
		}()
	}
}

func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
