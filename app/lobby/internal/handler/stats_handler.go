package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/pkg/web"
)

// StatsHandler 运行统计
type StatsHandler struct {
	metrics *metrics.LobbyMetrics
	vault   Vault
}

func NewStatsHandler(m *metrics.LobbyMetrics, vault Vault) *StatsHandler {
	return &StatsHandler{metrics: m, vault: vault}
}

// StatsResponse 统计快照与存储状态
type StatsResponse struct {
	metrics.Stats
	VaultDegraded bool `json:"vault_degraded"`
}

func (h *StatsHandler) Register(g *gin.RouterGroup) {
	g.GET("/stats", h.Get)
}

func (h *StatsHandler) Get(c *gin.Context) {
	web.Success(c, StatsResponse{
		Stats:         h.metrics.GetStats(),
		VaultDegraded: h.vault.Degraded(),
	})
}
