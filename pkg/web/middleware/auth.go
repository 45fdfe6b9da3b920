package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/security"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
)

const (
	// PrincipalKey Context 中存储调用方身份的 key
	PrincipalKey = "auth_principal"
	// LoggerKey Context 中存储带用户信息的 Logger 的 key
	LoggerKey = "request_logger"
)

// AuthConfig 认证配置
type AuthConfig struct {
	JWTManager *security.JWTManager
	// 请求头缺失时回退读取的 cookie
	CookieName string
	SkipPaths  []string
	// 自定义错误响应
	ErrorHandler func(*gin.Context, error)
	// 用于派生带 user_id 的请求级 logger
	Logger logger.Logger
}

// Auth JWT 认证中间件，成功后 Principal 存入 Context
func Auth(cfg *AuthConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		token := extractToken(c, cfg)
		if token == "" {
			handleAuthError(c, cfg, security.ErrTokenMissing)
			return
		}

		principal, err := cfg.JWTManager.Authenticate(token)
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}

		c.Set(PrincipalKey, principal)
		if cfg.Logger != nil {
			c.Set(LoggerKey, cfg.Logger.WithFields("user_id", principal.UserID))
		}
		c.Next()
	}
}

// extractToken 先读请求头，再读 cookie
func extractToken(c *gin.Context, cfg *AuthConfig) string {
	jc := cfg.JWTManager.Config()
	if header := c.GetHeader(jc.HeaderName); header != "" {
		if jc.TokenPrefix != "" && strings.HasPrefix(header, jc.TokenPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, jc.TokenPrefix))
		}
		return strings.TrimSpace(header)
	}
	if cfg.CookieName != "" {
		if v, err := c.Cookie(cfg.CookieName); err == nil {
			return v
		}
	}
	return ""
}

func handleAuthError(c *gin.Context, cfg *AuthConfig, err error) {
	if cfg.ErrorHandler != nil {
		cfg.ErrorHandler(c, err)
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    weberrors.CodeUnAuthorized,
		"message": err.Error(),
		"data":    nil,
	})
}

// GetPrincipal 从 Context 获取调用方身份
func GetPrincipal(c *gin.Context) (security.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return security.Principal{}, false
	}
	p, ok := v.(security.Principal)
	return p, ok
}

// GetLogger 获取请求级 logger，未认证时返回 fallback
func GetLogger(c *gin.Context, fallback logger.Logger) logger.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return fallback
}
