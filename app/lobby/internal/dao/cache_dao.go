package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/pkg/compress"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/redis"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
)

const (
	// Redis key 前缀，完整格式 cache:vault:{user_id}:{key}
	vaultKeyPrefix = "cache:vault:"

	vaultCacheTTL = 5 * time.Minute
)

// CacheDAO 跨实例共享的存储缓存
type CacheDAO struct {
	redis   *redis.Client
	ttl     time.Duration
	codec   *compress.Codec
	logger  logger.Logger
	metrics *metrics.LobbyMetrics
}

// NewCacheDAO 创建缓存 DAO，ttl 为 0 时使用默认值，codec 为 nil 时不压缩
func NewCacheDAO(rdb *redis.Client, ttl time.Duration, codec *compress.Codec, l logger.Logger, m *metrics.LobbyMetrics) (*CacheDAO, error) {
	if ttl <= 0 {
		ttl = vaultCacheTTL
	}
	if codec == nil {
		var err error
		if codec, err = compress.NewCodec(compress.TypeNone, 0); err != nil {
			return nil, err
		}
	}
	return &CacheDAO{
		redis:   rdb,
		ttl:     ttl,
		codec:   codec,
		logger:  l.Named("dao.cache"),
		metrics: m,
	}, nil
}

// globEscaper 转义 SCAN MATCH 的通配符
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func vaultCacheKey(userID, key string) string {
	return vaultKeyPrefix + userID + ":" + key
}

func userPattern(userID string) string {
	return vaultKeyPrefix + globEscaper.Replace(userID) + ":*"
}

// GetVault 读取缓存，未命中时 found 为 false
func (d *CacheDAO) GetVault(ctx context.Context, userID, key string) (json.RawMessage, bool, error) {
	data, err := d.redis.Get(ctx, vaultCacheKey(userID, key))
	if err != nil {
		if err == redis.ErrNil {
			d.metrics.RecordCacheMiss("redis")
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get vault cache: %w", err)
	}
	raw, err := d.codec.Decode([]byte(data))
	if err != nil {
		// 无法解码的条目按未命中处理，由存储层重新回填
		d.logger.WarnContext(ctx, "drop undecodable vault cache entry", "user_id", userID, "key", key, "error", err)
		d.metrics.RecordCacheMiss("redis")
		return nil, false, nil
	}
	d.metrics.RecordCacheHit("redis")
	return json.RawMessage(raw), true, nil
}

// SetVault 写入单个条目
func (d *CacheDAO) SetVault(ctx context.Context, userID, key string, value json.RawMessage) error {
	data, err := d.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode vault cache: %w", err)
	}
	if err := d.redis.Set(ctx, vaultCacheKey(userID, key), string(data), d.ttl); err != nil {
		return fmt.Errorf("failed to set vault cache: %w", err)
	}
	return nil
}

// SetVaultMany 批量写入用户的多个条目
func (d *CacheDAO) SetVaultMany(ctx context.Context, userID string, entries map[string]json.RawMessage) error {
	values := make(map[string]string, len(entries))
	for k, v := range entries {
		data, err := d.codec.Encode(v)
		if err != nil {
			return fmt.Errorf("failed to encode vault cache: %w", err)
		}
		values[vaultCacheKey(userID, k)] = string(data)
	}
	if err := d.redis.SetMany(ctx, values, d.ttl); err != nil {
		return fmt.Errorf("failed to set vault cache: %w", err)
	}
	return nil
}

// DeleteVault 删除单个条目
func (d *CacheDAO) DeleteVault(ctx context.Context, userID, key string) error {
	if _, err := d.redis.Del(ctx, vaultCacheKey(userID, key)); err != nil {
		return fmt.Errorf("failed to delete vault cache: %w", err)
	}
	return nil
}

// ClearUser 删除用户的全部缓存条目
func (d *CacheDAO) ClearUser(ctx context.Context, userID string) error {
	n, err := d.redis.DeleteByPattern(ctx, userPattern(userID))
	if err != nil {
		return fmt.Errorf("failed to clear user vault cache: %w", err)
	}
	d.logger.DebugContext(ctx, "user vault cache cleared", "user_id", userID, "keys", n)
	return nil
}

// ClearAll 删除所有用户的缓存条目
func (d *CacheDAO) ClearAll(ctx context.Context) error {
	n, err := d.redis.DeleteByPattern(ctx, vaultKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to clear vault cache: %w", err)
	}
	d.logger.InfoContext(ctx, "vault cache cleared", "keys", n)
	return nil
}
