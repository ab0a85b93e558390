package middleware

import (
	"strconv"
	"time"

	"github.com/alkitu/gatekeeper/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics creates a Prometheus metrics middleware. Paths are not used as a
// label since proxied routes are unbounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		metrics.RecordHTTPRequest(c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
