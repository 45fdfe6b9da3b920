package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/metrics/sliding"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/metrics"
)

// Metrics 记录 Prometheus 请求指标，window 非空时同时写入滑动窗口
func Metrics(m *metrics.HTTPMetrics, window *sliding.Window) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// 路由模板而非实际路径，避免标签基数膨胀
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		latency := time.Since(start).Seconds()
		status := c.Writer.Status()

		if m != nil {
			m.RequestsTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(path, c.Request.Method).Observe(latency)
		}
		if window != nil {
			window.Record(latency, status < http.StatusInternalServerError)
		}
	}
}
