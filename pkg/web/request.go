package web

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
)

// BindAndValidate 绑定请求体并校验，失败时已写出 40001 响应
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			Fail(c, weberrors.CodeInvalidParams, formatValidation(verrs))
			return false
		}
		Fail(c, weberrors.CodeInvalidParams, "invalid request parameters: "+err.Error())
		return false
	}
	return true
}

func formatValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + " failed on " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return "invalid request parameters: " + strings.Join(parts, "; ")
}

// GetQuery 获取查询参数，带默认值
func GetQuery(c *gin.Context, key, defaultValue string) string {
	if val := c.Query(key); val != "" {
		return val
	}
	return defaultValue
}
