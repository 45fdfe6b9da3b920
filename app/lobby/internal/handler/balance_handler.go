package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/web"
	"github.com/shopspring/decimal"
)

// BalanceHandler 余额接口
type BalanceHandler struct {
	ledger Ledger
	logger logger.Logger
}

// NewBalanceHandler 创建余额处理器
func NewBalanceHandler(ledger Ledger, l logger.Logger) *BalanceHandler {
	return &BalanceHandler{
		ledger: ledger,
		logger: l.Named("handler.balance"),
	}
}

// UpdateBalanceRequest 余额变更请求，amount 可为数字或字符串
type UpdateBalanceRequest struct {
	Currency  string           `json:"currency" binding:"required,oneof=gold buffalo"`
	Amount    *decimal.Decimal `json:"amount" binding:"required"`
	Operation string           `json:"operation" binding:"required,oneof=add subtract set"`
}

// SettleRequest 下注结算请求
type SettleRequest struct {
	Currency  string           `json:"currency" binding:"required,oneof=gold buffalo"`
	BetAmount *decimal.Decimal `json:"bet_amount" binding:"required"`
	WinAmount *decimal.Decimal `json:"win_amount" binding:"required"`
	GameID    string           `json:"game_id" binding:"max=64"`
}

// BalanceResponse 余额以两位小数的 JSON 数字返回
type BalanceResponse struct {
	UserID         string      `json:"user_id"`
	GoldBalance    json.Number `json:"gold_balance"`
	BuffaloBalance json.Number `json:"buffalo_balance"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func newBalanceResponse(acc *model.Account) BalanceResponse {
	return BalanceResponse{
		UserID:         acc.UserID,
		GoldBalance:    json.Number(acc.GoldBalance.StringFixed(2)),
		BuffaloBalance: json.Number(acc.BuffaloBalance.StringFixed(2)),
		UpdatedAt:      acc.UpdatedAt,
	}
}

// Register 注册路由
func (h *BalanceHandler) Register(g *gin.RouterGroup) {
	g.GET("/balances", h.Get)
	g.POST("/balances", h.Update)
	g.POST("/balances/settle", h.Settle)
}

// Get 查询余额，首次访问时创建账户
func (h *BalanceHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	acc, err := h.ledger.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	web.Success(c, newBalanceResponse(acc))
}

// Update 增加、扣减或设置余额
func (h *BalanceHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateBalanceRequest
	if !web.BindAndValidate(c, &req) {
		return
	}

	if !h.ensureAccount(c, userID) {
		return
	}
	acc, err := h.ledger.Update(c.Request.Context(), userID,
		model.Currency(req.Currency), *req.Amount, model.UpdateMode(req.Operation))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	web.Success(c, newBalanceResponse(acc))
}

// Settle 结算一局下注
func (h *BalanceHandler) Settle(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req SettleRequest
	if !web.BindAndValidate(c, &req) {
		return
	}

	if !h.ensureAccount(c, userID) {
		return
	}
	acc, err := h.ledger.ApplyWagerSettlement(c.Request.Context(), userID,
		model.Currency(req.Currency), *req.BetAmount, *req.WinAmount, req.GameID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	web.Success(c, newBalanceResponse(acc))
}

// ensureAccount 写操作前确保账户存在，首次引用即按初始余额创建
func (h *BalanceHandler) ensureAccount(c *gin.Context, userID string) bool {
	if _, err := h.ledger.GetOrCreate(c.Request.Context(), userID); err != nil {
		respondError(c, h.logger, err)
		return false
	}
	return true
}
