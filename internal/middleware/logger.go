package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger creates a request logging middleware using zap.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}

		// Attach the resolved user when a guard identified one.
		if user, ok := CurrentUser(c); ok {
			fields = append(fields, zap.Int("user_id", user.ID), zap.String("role", user.Role.String()))
		}

		logger.Info("request", fields...)

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				logger.Error("request error", zap.Error(e.Err))
			}
		}
	}
}
