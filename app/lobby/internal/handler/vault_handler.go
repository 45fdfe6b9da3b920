package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/web"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/validator"
)

// VaultHandler 用户键值存储接口
type VaultHandler struct {
	vault  Vault
	logger logger.Logger
}

func NewVaultHandler(vault Vault, l logger.Logger) *VaultHandler {
	return &VaultHandler{
		vault:  vault,
		logger: l.Named("handler.vault"),
	}
}

// VaultEntryResponse 单个条目
type VaultEntryResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (h *VaultHandler) Register(g *gin.RouterGroup) {
	g.GET("/vault", h.List)
	g.POST("/vault/logout", h.Logout)
	g.GET("/vault/:key", h.Get)
	g.PUT("/vault/:key", h.Set)
	g.DELETE("/vault/:key", h.Delete)
}

func (h *VaultHandler) key(c *gin.Context) (string, bool) {
	key := c.Param("key")
	if !validator.ValidVaultKey(key) {
		web.Fail(c, weberrors.CodeInvalidParams, "invalid vault key")
		return "", false
	}
	return key, true
}

// List 返回全部条目，存储不可用时为空
func (h *VaultHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	web.Success(c, h.vault.GetAll(c.Request.Context(), userID))
}

func (h *VaultHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	key, ok := h.key(c)
	if !ok {
		return
	}
	value, found := h.vault.Get(c.Request.Context(), userID, key)
	if !found {
		web.Fail(c, weberrors.CodeNotFound, "vault key not found")
		return
	}
	web.Success(c, VaultEntryResponse{Key: key, Value: value})
}

// Set 请求体即条目值，可为任意 JSON
func (h *VaultHandler) Set(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	key, ok := h.key(c)
	if !ok {
		return
	}
	value, ok := readJSONBody(c)
	if !ok {
		return
	}
	if !h.vault.Set(c.Request.Context(), userID, key, value) {
		h.unavailable(c, "set", key)
		return
	}
	web.Success(c, VaultEntryResponse{Key: key, Value: value})
}

func (h *VaultHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	key, ok := h.key(c)
	if !ok {
		return
	}
	if !h.vault.Delete(c.Request.Context(), userID, key) {
		h.unavailable(c, "delete", key)
		return
	}
	web.Success(c, nil)
}

// Logout 清除调用方的缓存
func (h *VaultHandler) Logout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.vault.ClearCache(c.Request.Context(), userID)
	web.Success(c, nil)
}

func (h *VaultHandler) unavailable(c *gin.Context, op, key string) {
	h.logger.WarnContext(c.Request.Context(), "vault write rejected",
		"op", op,
		"key", key,
		"degraded", h.vault.Degraded(),
	)
	web.Fail(c, weberrors.CodeUnavailable, "vault unavailable")
}
