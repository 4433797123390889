package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unicesmag/labcontrol/internal/service"
)

// Metrics returns middleware that captures request metrics using the provided
// service. Requests that match no route share one label to keep the series
// count bounded, and scrapes of skipPath are not observed.
func Metrics(metricsSvc *service.MetricsService, skipPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == skipPath {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
