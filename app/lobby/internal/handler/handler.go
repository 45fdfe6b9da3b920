package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/service"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/web"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/middleware"
	"github.com/shopspring/decimal"
)

// Ledger 余额账本，由 service.LedgerService 实现
type Ledger interface {
	GetOrCreate(ctx context.Context, userID string) (*model.Account, error)
	Update(ctx context.Context, userID string, currency model.Currency, amount decimal.Decimal, mode model.UpdateMode) (*model.Account, error)
	ApplyWagerSettlement(ctx context.Context, userID string, currency model.Currency, bet, win decimal.Decimal, gameID string) (*model.Account, error)
}

// Vault 用户键值存储，由 service.VaultService 实现
type Vault interface {
	Get(ctx context.Context, userID, key string) (json.RawMessage, bool)
	Set(ctx context.Context, userID, key string, value json.RawMessage) bool
	Delete(ctx context.Context, userID, key string) bool
	GetAll(ctx context.Context, userID string) map[string]json.RawMessage
	ClearCache(ctx context.Context, userID string)
	Degraded() bool
}

// Settings 游戏设置，由 service.SettingsService 实现
type Settings interface {
	GetSettings(ctx context.Context, userID string) *model.Settings
	UpdateSetting(ctx context.Context, userID, section, key string, value any) (*model.Settings, error)
	SaveSettings(ctx context.Context, userID string, partial json.RawMessage) (*model.Settings, error)
}

// Progress 游戏进度，由 service.ProgressService 实现
type Progress interface {
	GetProgress(ctx context.Context, userID string) *model.Progress
	UpdateProgress(ctx context.Context, userID string, partial json.RawMessage) (*model.Progress, error)
	IncrementStatistic(ctx context.Context, userID, name string, delta float64) (*model.Progress, error)
	UnlockAchievement(ctx context.Context, userID, achievementID string) (*model.Progress, error)
}

var (
	_ Ledger   = (*service.LedgerService)(nil)
	_ Vault    = (*service.VaultService)(nil)
	_ Settings = (*service.SettingsService)(nil)
	_ Progress = (*service.ProgressService)(nil)
)

// Registrar 在认证后的 /api/v1 分组上注册路由
type Registrar interface {
	Register(g *gin.RouterGroup)
}

// Mount 挂载 /health、指标端点与 /api/v1，protected 依次作用于 /api/v1
func Mount(r *gin.Engine, metricsPath string, metricsHandler http.Handler, protected []gin.HandlerFunc, hs ...Registrar) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	api := r.Group("/api/v1", protected...)
	for _, h := range hs {
		h.Register(api)
	}
}

// currentUser 认证中间件写入的调用方，缺失时已写出 401
func currentUser(c *gin.Context) (string, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok || p.UserID == "" {
		web.Fail(c, weberrors.CodeUnAuthorized, "unauthorized")
		return "", false
	}
	return p.UserID, true
}

// readJSONBody 读取原始请求体，非合法 JSON 时已写出 40001
func readJSONBody(c *gin.Context) (json.RawMessage, bool) {
	body, err := c.GetRawData()
	if err != nil {
		web.Fail(c, weberrors.CodeInvalidParams, "failed to read request body")
		return nil, false
	}
	if len(body) == 0 || !json.Valid(body) {
		web.Fail(c, weberrors.CodeInvalidParams, "request body must be valid JSON")
		return nil, false
	}
	return body, true
}

// respondError 将服务错误映射为响应
func respondError(c *gin.Context, l logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientBalance):
		web.Fail(c, weberrors.CodeInsufficientBalance, "insufficient balance")
	case errors.Is(err, service.ErrAccountNotFound):
		web.Fail(c, weberrors.CodeNotFound, "account not found")
	case errors.Is(err, service.ErrStorageUnavailable):
		l.WarnContext(c.Request.Context(), "storage unavailable", "path", c.FullPath(), "error", err)
		web.Fail(c, weberrors.CodeUnavailable, "storage unavailable")
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCurrency),
		errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrUnknownSetting),
		errors.Is(err, service.ErrInvalidSettingValue),
		errors.Is(err, service.ErrUnknownStatistic),
		errors.Is(err, service.ErrInvalidProgress):
		web.Fail(c, weberrors.CodeInvalidParams, err.Error())
	default:
		l.ErrorContext(c.Request.Context(), "unexpected error", "path", c.FullPath(), "error", err)
		web.InternalError(c, err)
	}
}
