package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xwerkax/BloomlyApp/internal/observability"
)

// Metrics records one observation per routed request. Scrapes of /metrics are
// not counted, and requests that matched no route share the "unmatched" label.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		c.Next()
		m.ApiInflightDec()

		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
