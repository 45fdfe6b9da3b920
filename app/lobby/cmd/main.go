package main

import (
	"context"
	"os"

	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/events"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/service"
	"github.com/lk2023060901/xdooria-lobby/pkg/app"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/redis"
	"github.com/lk2023060901/xdooria-lobby/pkg/idgen"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/otel"
	"github.com/lk2023060901/xdooria-lobby/pkg/prometheus"
	"github.com/lk2023060901/xdooria-lobby/pkg/security"
	"github.com/lk2023060901/xdooria-lobby/pkg/sentry"
	"github.com/lk2023060901/xdooria-lobby/pkg/web"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/middleware"
)

// Config 定义 Lobby 服务的完整配置结构
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// HTTP 服务
	Web web.Config `mapstructure:"web"`

	Database postgres.Config `mapstructure:"database"`

	// 仅在 vault.redis_cache 开启时连接
	Redis redis.Config `mapstructure:"redis"`

	Vault service.VaultConfig `mapstructure:"vault"`

	JWT security.JWTConfig `mapstructure:"jwt"`
	// 请求头缺失时读取令牌的 cookie
	AuthCookie string `mapstructure:"auth_cookie"`

	// 结算事件
	Events events.Config `mapstructure:"events"`

	OTel   otel.Config   `mapstructure:"otel"`
	Sentry sentry.Config `mapstructure:"sentry"`

	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Metrics    metrics.Config    `mapstructure:"metrics"`

	RateLimit middleware.RateLimitConfig `mapstructure:"rate_limit"`
	CORS      middleware.CORSConfig      `mapstructure:"cors"`

	IDGen idgen.Config `mapstructure:"idgen"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	mgr, err := app.LoadConfig(os.Args[1:], &cfg)
	if err != nil {
		panic(err)
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}

	// 3. 配置文件变化时热更新日志等级
	if err := mgr.Watch(func(path string) {
		var next Config
		if err := mgr.Unmarshal(&next); err != nil {
			l.Warn("failed to reload config", "path", path, "error", err)
			return
		}
		if next.Log.Level != l.GetLevel() {
			l.SetLevel(next.Log.Level)
			l.Info("log level reloaded", "level", next.Log.Level)
		}
	}); err != nil {
		l.Warn("config watch disabled", "error", err)
	}

	// 4. 通过 Wire 初始化应用
	ctx := context.Background()
	application, cleanup, err := InitApp(ctx, &cfg, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		_ = l.Sync()
		os.Exit(1)
	}
	defer cleanup()

	// 5. 运行服务
	if err := application.Run(ctx); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
