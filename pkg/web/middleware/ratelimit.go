package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
	"golang.org/x/time/rate"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" json:"burst" yaml:"burst"`

	// 已认证请求按 user_id 限流，否则按 IP
	PerUser   bool     `mapstructure:"per_user" json:"per_user" yaml:"per_user"`
	PerIP     bool     `mapstructure:"per_ip" json:"per_ip" yaml:"per_ip"`
	SkipPaths []string `mapstructure:"skip_paths" json:"skip_paths" yaml:"skip_paths"`

	// 等待模式下排队至多 WaitTimeout，否则直接拒绝
	WaitMode    bool          `mapstructure:"wait_mode" json:"wait_mode" yaml:"wait_mode"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout" json:"wait_timeout" yaml:"wait_timeout"`

	MaxLimiters     int           `mapstructure:"max_limiters" json:"max_limiters" yaml:"max_limiters"`
	LimiterTTL      time.Duration `mapstructure:"limiter_ttl" json:"limiter_ttl" yaml:"limiter_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultRateLimitConfig 默认配置
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 20,
		Burst:             40,
		PerUser:           true,
		PerIP:             true,
		WaitTimeout:       500 * time.Millisecond,
		MaxLimiters:       10000,
		LimiterTTL:        10 * time.Minute,
		CleanupInterval:   time.Minute,
	}
}

// RateLimiter 按键维护令牌桶，闲置的桶随 LRU 淘汰
type RateLimiter struct {
	cfg      *RateLimitConfig
	global   *rate.Limiter
	mu       sync.Mutex
	limiters *lru.LRU[string, *rate.Limiter]
	logger   logger.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(cfg *RateLimitConfig, l logger.Logger) (*RateLimiter, error) {
	merged, err := config.MergeConfig(DefaultRateLimitConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		merged.Enabled = cfg.Enabled
		merged.PerUser = cfg.PerUser
		merged.PerIP = cfg.PerIP
		merged.WaitMode = cfg.WaitMode
	}

	limiters, err := lru.New[string, *rate.Limiter](&lru.Config{
		MaxSize:         merged.MaxLimiters,
		DefaultTTL:      merged.LimiterTTL,
		CleanupInterval: merged.CleanupInterval,
	})
	if err != nil {
		return nil, err
	}

	return &RateLimiter{
		cfg:      merged,
		global:   rate.NewLimiter(rate.Limit(merged.RequestsPerSecond), merged.Burst),
		limiters: limiters,
		logger:   l,
	}, nil
}

// Allow 非阻塞检查，空键使用全局桶
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Wait 阻塞直到获取令牌或 ctx 结束
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.limiter(key).Wait(ctx)
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if key == "" {
		return rl.global
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if lim, ok := rl.limiters.Get(key); ok {
		// 命中即续期
		rl.limiters.Set(key, lim)
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)
	rl.limiters.Set(key, lim)
	return lim
}

// Close 停止清理协程
func (rl *RateLimiter) Close() error {
	return rl.limiters.Close()
}

// RateLimit 限流中间件
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(rl.cfg.SkipPaths))
	for _, p := range rl.cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if !rl.cfg.Enabled {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		key := limitKey(c, rl.cfg)
		if rl.cfg.WaitMode {
			ctx, cancel := context.WithTimeout(c.Request.Context(), rl.cfg.WaitTimeout)
			defer cancel()
			if err := rl.Wait(ctx, key); err != nil {
				rl.logger.WarnContext(c.Request.Context(), "rate limit wait timeout", "key", key, "path", path, "error", err)
				abortRateLimited(c)
				return
			}
		} else if !rl.Allow(key) {
			rl.logger.WarnContext(c.Request.Context(), "rate limit exceeded", "key", key, "path", path)
			abortRateLimited(c)
			return
		}
		c.Next()
	}
}

func limitKey(c *gin.Context, cfg *RateLimitConfig) string {
	if cfg.PerUser {
		if p, ok := GetPrincipal(c); ok {
			return "user:" + p.UserID
		}
	}
	if cfg.PerIP {
		return "ip:" + c.ClientIP()
	}
	return ""
}

func abortRateLimited(c *gin.Context) {
	c.Header("Retry-After", strconv.Itoa(1))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    weberrors.CodeRateLimited,
		"message": "too many requests",
		"data":    nil,
	})
}
