package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/sentry"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
)

// Recovery 捕获 panic 返回 50000，并把 panic 与 5xx 错误上报 Sentry（reporter 可为 nil）
func Recovery(l logger.Logger, reporter *sentry.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := c.Request.Context()
			req, _ := httputil.DumpRequest(c.Request, false)

			if isBrokenPipe(r) {
				l.WarnContext(ctx, "http broken pipe", "error", r, "request", string(req))
				if err, ok := r.(error); ok {
					_ = c.Error(err)
				}
				c.Abort()
				return
			}

			l.ErrorContext(ctx, "http recovery from panic", "error", r, "request", string(req))
			if reporter != nil {
				reporter.RecoverWithContext(ctx, r)
			}
			_ = c.Error(fmt.Errorf("panic: %v", r))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    weberrors.CodeInternalError,
				"message": "internal server error",
				"data":    nil,
			})
		}()

		c.Next()

		if reporter != nil && c.Writer.Status() >= http.StatusInternalServerError && len(c.Errors) > 0 {
			reporter.CaptureError(c.Request.Context(), c.Errors.Last().Err, map[string]string{
				"route":  c.FullPath(),
				"method": c.Request.Method,
			})
		}
	}
}

func isBrokenPipe(r any) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
