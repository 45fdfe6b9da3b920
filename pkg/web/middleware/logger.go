package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
)

// Logger 访问日志中间件，4xx 记 warn，5xx 与 gin 错误记 error
func Logger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"latency", time.Since(start).String(),
			"user_agent", c.Request.UserAgent(),
		}
		if p, ok := GetPrincipal(c); ok {
			fields = append(fields, "user_id", p.UserID)
		}

		ctx := c.Request.Context()
		switch {
		case len(c.Errors) > 0:
			l.ErrorContext(ctx, "http request failed", append(fields, "error", c.Errors.Last().Err)...)
		case status >= 500:
			l.ErrorContext(ctx, "http request", fields...)
		case status >= 400:
			l.WarnContext(ctx, "http request", fields...)
		default:
			l.InfoContext(ctx, "http request", fields...)
		}
	}
}
