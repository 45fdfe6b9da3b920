package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/web"
)

// SettingsHandler 游戏设置接口
type SettingsHandler struct {
	settings Settings
	logger   logger.Logger
}

func NewSettingsHandler(settings Settings, l logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   l.Named("handler.settings"),
	}
}

// UpdateSettingRequest 修改单个设置项
type UpdateSettingRequest struct {
	Section string `json:"section" binding:"required"`
	Key     string `json:"key" binding:"required"`
	Value   any    `json:"value"`
}

func (h *SettingsHandler) Register(g *gin.RouterGroup) {
	g.GET("/settings", h.Get)
	g.PUT("/settings", h.Save)
	g.PATCH("/settings", h.Update)
}

func (h *SettingsHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	web.Success(c, h.settings.GetSettings(c.Request.Context(), userID))
}

// Save 按分组合并部分设置
func (h *SettingsHandler) Save(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	partial, ok := readJSONBody(c)
	if !ok {
		return
	}
	settings, err := h.settings.SaveSettings(c.Request.Context(), userID, partial)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	web.Success(c, settings)
}

func (h *SettingsHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateSettingRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	settings, err := h.settings.UpdateSetting(c.Request.Context(), userID, req.Section, req.Key, req.Value)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	web.Success(c, settings)
}

// ProgressHandler 游戏进度接口
type ProgressHandler struct {
	progress Progress
	logger   logger.Logger
}

func NewProgressHandler(progress Progress, l logger.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		logger:   l.Named("handler.progress"),
	}
}

// IncrementStatisticRequest 累加统计项
type IncrementStatisticRequest struct {
	Name  string   `json:"name" binding:"required"`
	Delta *float64 `json:"delta" binding:"required"`
}

// UnlockAchievementRequest 解锁成就
type UnlockAchievementRequest struct {
	AchievementID string `json:"achievement_id" binding:"required,max=128"`
}

func (h *ProgressHandler) Register(g *gin.RouterGroup) {
	g.GET("/progress", h.Get)
	g.PUT("/progress", h.Update)
	g.POST("/progress/statistics", h.IncrementStatistic)
	g.POST("/progress/achievements", h.UnlockAchievement)
}

func (h *ProgressHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	web.Success(c, h.progress.GetProgress(c.Request.Context(), userID))
}

func (h *ProgressHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	partial, ok := readJSONBody(c)
	if !ok {
		return
	}
	progress, err := h.progress.UpdateProgress(c.Request.Context(), userID, partial)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	web.Success(c, progress)
}

func (h *ProgressHandler) IncrementStatistic(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req IncrementStatisticRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	progress, err := h.progress.IncrementStatistic(c.Request.Context(), userID, req.Name, *req.Delta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	web.Success(c, progress)
}

func (h *ProgressHandler) UnlockAchievement(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UnlockAchievementRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	progress, err := h.progress.UnlockAchievement(c.Request.Context(), userID, req.AchievementID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	web.Success(c, progress)
}
