package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/otel"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	TraceID string `json:"trace_id,omitempty"`
}

// traceID 优先取 otel trace id，未开启追踪时退回 request id
func traceID(c *gin.Context) string {
	ctx := c.Request.Context()
	if id := otel.TraceIDFromContext(ctx); id != "" {
		return id
	}
	return logger.RequestIDFrom(ctx)
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    weberrors.CodeOK,
		Message: "ok",
		Data:    data,
		TraceID: traceID(c),
	})
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// Fail 按业务码推导 HTTP 状态
func Fail(c *gin.Context, code int, message string) {
	Error(c, weberrors.CodeToStatus(code), code, message)
}

// InternalError 记录错误到 gin 上下文（供日志与上报中间件使用）后返回 50000
func InternalError(c *gin.Context, err error) {
	_ = c.Error(err)
	Fail(c, weberrors.CodeInternalError, "internal server error")
}

// AbortWithError 中断并返回错误
func AbortWithError(c *gin.Context, httpStatus int, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}
