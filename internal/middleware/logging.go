package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dantescur/msfback/internal/logger"
)

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := map[string]any{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if id := c.GetString(SessionIDKey); id != "" {
			fields["session_id"] = id
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request completed", fields)
			return
		}
		logger.Info("request completed", fields)
	}
}
