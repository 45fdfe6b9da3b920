package service

import (
	"context"
	"encoding/json"

	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
)

// AccountStore 余额持久化，由 dao.AccountDAO 实现
type AccountStore interface {
	Get(ctx context.Context, userID string) (*model.Account, error)
	CreateIfAbsent(ctx context.Context, userID string) (bool, error)
	UpdateLocked(ctx context.Context, userID string, fn func(acc *model.Account) error) (*model.Account, error)
}

// VaultStore 存储条目持久化，由 dao.VaultDAO 实现
type VaultStore interface {
	Get(ctx context.Context, userID, key string) (json.RawMessage, bool, error)
	Upsert(ctx context.Context, userID, key string, value json.RawMessage) error
	Delete(ctx context.Context, userID, key string) error
	List(ctx context.Context, userID string) (map[string]json.RawMessage, error)
}

// VaultCache 跨实例共享缓存，由 dao.CacheDAO 实现
type VaultCache interface {
	GetVault(ctx context.Context, userID, key string) (json.RawMessage, bool, error)
	SetVault(ctx context.Context, userID, key string, value json.RawMessage) error
	SetVaultMany(ctx context.Context, userID string, entries map[string]json.RawMessage) error
	DeleteVault(ctx context.Context, userID, key string) error
	ClearUser(ctx context.Context, userID string) error
	ClearAll(ctx context.Context) error
}

// DocumentStore 设置与进度依赖的存储能力，由 VaultService 实现
type DocumentStore interface {
	Get(ctx context.Context, userID, key string) (json.RawMessage, bool)
	Set(ctx context.Context, userID, key string, value json.RawMessage) bool
}

var _ DocumentStore = (*VaultService)(nil)
