//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/dao"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/events"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/handler"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/service"
	"github.com/lk2023060901/xdooria-lobby/pkg/app"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/prometheus"
	"github.com/lk2023060901/xdooria-lobby/pkg/security"
	webmetrics "github.com/lk2023060901/xdooria-lobby/pkg/web/metrics"
)

func InitApp(ctx context.Context, cfg *Config, l logger.Logger) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		provideAppOptions,
		app.ProviderSet,

		// 2. 可观测性
		providePrometheusConfig,
		prometheus.New,
		provideMetricsConfig,
		metrics.New,
		webmetrics.NewHTTPMetrics,
		provideTracer,
		provideReporter,

		// 3. 数据层
		provideDatabase,
		provideIDGenerator,
		dao.NewAccountDAO,
		wire.Bind(new(service.AccountStore), new(*dao.AccountDAO)),
		dao.NewVaultDAO,
		wire.Bind(new(service.VaultStore), new(*dao.VaultDAO)),
		provideVaultCache,

		// 4. 结算事件
		provideEventsConfig,
		events.New,

		// 5. 业务层
		service.NewLedgerService,
		provideVaultService,
		wire.Bind(new(service.DocumentStore), new(*service.VaultService)),
		service.NewSettingsService,
		service.NewProgressService,

		// 6. 接口层
		provideJWTConfig,
		security.NewJWTManager,
		provideRateLimiter,
		wire.Bind(new(handler.Ledger), new(*service.LedgerService)),
		wire.Bind(new(handler.Vault), new(*service.VaultService)),
		wire.Bind(new(handler.Settings), new(*service.SettingsService)),
		wire.Bind(new(handler.Progress), new(*service.ProgressService)),
		handler.NewBalanceHandler,
		handler.NewVaultHandler,
		handler.NewSettingsHandler,
		handler.NewProgressHandler,
		handler.NewStatsHandler,
		provideWebServer,

		// 7. 组装
		provideAppComponents,
		app.InitApp,
	))
}
