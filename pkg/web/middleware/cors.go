package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig 跨域配置，AllowOrigins 为空时允许所有来源
type CORSConfig struct {
	AllowOrigins []string      `mapstructure:"allow_origins" json:"allow_origins" yaml:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
}

// CORS 跨域中间件
func CORS(cfg *CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if cfg != nil && cfg.MaxAge > 0 {
		c.MaxAge = cfg.MaxAge
	}
	if cfg == nil || len(cfg.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		// 带 cookie 的跨域请求只对白名单来源开放
		c.AllowOrigins = cfg.AllowOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}
