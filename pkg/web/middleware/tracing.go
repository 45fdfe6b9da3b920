package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Tracing 从请求头提取上游追踪上下文并开启 server span
func Tracing(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer("web")

	return func(c *gin.Context) {
		ctx := otel.Propagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			otel.WithSpanKind(otel.SpanKindServer),
			otel.WithAttributes(
				otel.String("http.method", c.Request.Method),
				otel.String("http.route", route),
				otel.String("service.name", serviceName),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(otel.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(otel.CodeError, fmt.Sprintf("HTTP status %d", status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last().Err)
		}
	}
}
