package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/dao"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/events"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/handler"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/service"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/migrations"
	"github.com/lk2023060901/xdooria-lobby/pkg/app"
	"github.com/lk2023060901/xdooria-lobby/pkg/compress"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/redis"
	"github.com/lk2023060901/xdooria-lobby/pkg/idgen"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/otel"
	"github.com/lk2023060901/xdooria-lobby/pkg/prometheus"
	"github.com/lk2023060901/xdooria-lobby/pkg/security"
	"github.com/lk2023060901/xdooria-lobby/pkg/sentry"
	"github.com/lk2023060901/xdooria-lobby/pkg/web"
	webmetrics "github.com/lk2023060901/xdooria-lobby/pkg/web/metrics"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/middleware"
)

const defaultAuthCookie = "auth-token"

func provideAppOptions(cfg *Config) []app.Option {
	name := app.AppName
	if name == "" {
		name = "lobby"
	}
	return []app.Option{
		app.WithName(name),
		app.WithStopTimeout(2 * cfg.Web.ShutdownTimeout),
	}
}

func providePrometheusConfig(cfg *Config) *prometheus.Config {
	return &cfg.Prometheus
}

func provideMetricsConfig(cfg *Config) *metrics.Config {
	return &cfg.Metrics
}

func provideEventsConfig(cfg *Config) *events.Config {
	return &cfg.Events
}

func provideJWTConfig(cfg *Config) *security.JWTConfig {
	return &cfg.JWT
}

// provideTracer 未启用时返回空实现，ledger 的 span 随之为 noop
func provideTracer(ctx context.Context, cfg *Config) (*otel.TracerProvider, error) {
	return otel.New(ctx, &cfg.OTel)
}

func provideReporter(cfg *Config) (*sentry.Client, error) {
	return sentry.New(&cfg.Sentry)
}

// provideDatabase 连接 PostgreSQL，auto_migrate 开启时执行内嵌迁移
func provideDatabase(ctx context.Context, cfg *Config, l logger.Logger) (*postgres.Client, func(), error) {
	db, err := postgres.New(ctx, &cfg.Database, l)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return db, func() { _ = db.Close() }, nil
}

func provideIDGenerator(cfg *Config) (idgen.Generator, error) {
	return idgen.NewSonyflake(&cfg.IDGen)
}

// provideVaultCache 未开启 redis_cache 时只用进程内缓存
func provideVaultCache(ctx context.Context, cfg *Config, l logger.Logger, m *metrics.LobbyMetrics) (service.VaultCache, func(), error) {
	if !cfg.Vault.RedisCache {
		return nil, func() {}, nil
	}

	rdb, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if err := rdb.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	defaults := service.DefaultVaultConfig()
	ttl := cfg.Vault.CacheTTL
	if ttl <= 0 {
		ttl = defaults.CacheTTL
	}
	threshold := cfg.Vault.CompressThreshold
	if threshold <= 0 {
		threshold = defaults.CompressThreshold
	}
	codec, err := compress.NewCodec(cfg.Vault.Compression, threshold)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	cache, err := dao.NewCacheDAO(rdb, ttl, codec, l, m)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return cache, func() { _ = rdb.Close() }, nil
}

func provideVaultService(cfg *Config, store service.VaultStore, remote service.VaultCache, l logger.Logger, m *metrics.LobbyMetrics) (*service.VaultService, error) {
	return service.NewVaultService(&cfg.Vault, store, remote, l, m)
}

func provideRateLimiter(cfg *Config, l logger.Logger) (*middleware.RateLimiter, error) {
	return middleware.NewRateLimiter(&cfg.RateLimit, l)
}

// provideWebServer 创建 HTTP 服务并挂载全部路由
func provideWebServer(
	cfg *Config,
	l logger.Logger,
	reporter *sentry.Client,
	jm *security.JWTManager,
	rl *middleware.RateLimiter,
	promClient *prometheus.Client,
	httpMetrics *webmetrics.HTTPMetrics,
	lobbyMetrics *metrics.LobbyMetrics,
	balance *handler.BalanceHandler,
	vault *handler.VaultHandler,
	settings *handler.SettingsHandler,
	progress *handler.ProgressHandler,
	stats *handler.StatsHandler,
) (*web.Server, error) {
	srv, err := web.NewServer(&cfg.Web, l,
		web.WithReporter(reporter),
		web.WithMiddleware(
			middleware.CORS(&cfg.CORS),
			middleware.Metrics(httpMetrics, lobbyMetrics.Window()),
		),
	)
	if err != nil {
		return nil, err
	}

	cookie := cfg.AuthCookie
	if cookie == "" {
		cookie = defaultAuthCookie
	}
	// 限流在认证之后，已认证请求按 user_id 计数
	handler.Mount(srv.Router(), promClient.Config().Path, promClient.Handler(), []gin.HandlerFunc{
		middleware.Auth(&middleware.AuthConfig{
			JWTManager: jm,
			CookieName: cookie,
			Logger:     l.Named("web.auth"),
		}),
		middleware.RateLimit(rl),
	}, balance, vault, settings, progress, stats)
	return srv, nil
}

func provideAppComponents(
	srv *web.Server,
	promClient *prometheus.Client,
	lobbyMetrics *metrics.LobbyMetrics,
	tracer *otel.TracerProvider,
	reporter *sentry.Client,
	rl *middleware.RateLimiter,
	publisher events.Publisher,
	vault *service.VaultService,
) app.AppComponents {
	return app.AppComponents{
		Servers: []app.Server{srv},
		// 逆序关闭：先停存储缓存与事件，最后关闭指标
		Closers: []app.Closer{
			promClient,
			lobbyMetrics,
			tracer,
			reporter,
			rl,
			publisher,
			vault,
		},
	}
}
