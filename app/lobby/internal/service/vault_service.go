package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-lobby/pkg/compress"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// VaultConfig 用户存储配置
type VaultConfig struct {
	// CacheTTL 本地与 Redis 缓存的有效期
	CacheTTL  time.Duration `mapstructure:"cache_ttl" json:"cache_ttl" yaml:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size" json:"cache_size" yaml:"cache_size"`
	// CleanupInterval 本地缓存过期清理间隔
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval" yaml:"cleanup_interval"`
	// BackoffDuration 表缺失后的冷却时长
	BackoffDuration time.Duration `mapstructure:"backoff_duration" json:"backoff_duration" yaml:"backoff_duration"`
	// RedisCache 启用跨实例 Redis 缓存层
	RedisCache bool `mapstructure:"redis_cache" json:"redis_cache" yaml:"redis_cache"`
	// Compression Redis 缓存值的压缩算法：none、snappy、zstd、lz4
	Compression compress.Type `mapstructure:"compression" json:"compression" yaml:"compression"`
	// CompressThreshold 超过该字节数的值才压缩
	CompressThreshold int `mapstructure:"compress_threshold" json:"compress_threshold" yaml:"compress_threshold"`
}

func DefaultVaultConfig() *VaultConfig {
	return &VaultConfig{
		CacheTTL:          5 * time.Minute,
		CacheSize:         10000,
		CleanupInterval:   time.Minute,
		BackoffDuration:   60 * time.Second,
		Compression:       compress.TypeNone,
		CompressThreshold: 1024,
	}
}

// VaultOption VaultService 选项
type VaultOption func(*vaultOptions)

type vaultOptions struct {
	now func() time.Time
}

// WithVaultClock 注入时钟，同时作用于缓存过期与冷却判断
func WithVaultClock(now func() time.Time) VaultOption {
	return func(o *vaultOptions) {
		o.now = now
	}
}

// VaultService 用户键值存储：本地 LRU + 可选 Redis 读穿缓存，表缺失时进入冷却。
// 存储错误不会上抛，读返回缺失，写返回 false
type VaultService struct {
	config  *VaultConfig
	store   VaultStore
	remote  VaultCache
	local   *lru.LRU[string, json.RawMessage]
	breaker *vaultBreaker
	guard   *fillGuard
	flight  singleflight.Group
	logger  logger.Logger
	metrics *metrics.LobbyMetrics
}

// NewVaultService 创建存储服务，remote 为 nil 时只使用本地缓存
func NewVaultService(cfg *VaultConfig, store VaultStore, remote VaultCache, l logger.Logger, m *metrics.LobbyMetrics, opts ...VaultOption) (*VaultService, error) {
	merged, err := config.MergeConfig(DefaultVaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	o := vaultOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	local, err := lru.New(&lru.Config{
		MaxSize:         merged.CacheSize,
		DefaultTTL:      merged.CacheTTL,
		CleanupInterval: merged.CleanupInterval,
	}, lru.WithClock[string, json.RawMessage](o.now))
	if err != nil {
		return nil, err
	}

	s := &VaultService{
		config:  merged,
		store:   store,
		remote:  remote,
		local:   local,
		guard:   newFillGuard(),
		logger:  l.Named("service.vault"),
		metrics: m,
	}
	s.breaker = newVaultBreaker(merged.BackoffDuration, o.now, m.SetVaultDegraded)
	return s, nil
}

// 本地缓存键，\x00 分隔保证按用户前缀清理时不会误删
func cacheKey(userID, key string) string {
	return userID + "\x00" + key
}

func userPrefix(userID string) string {
	return userID + "\x00"
}

// Get 读取条目。缓存有效时直接返回；冷却期内未命中缓存视为缺失
func (s *VaultService) Get(ctx context.Context, userID, key string) (json.RawMessage, bool) {
	ck := cacheKey(userID, key)
	if v, ok := s.local.Get(ck); ok {
		s.metrics.RecordCacheHit("memory")
		return v, true
	}
	s.metrics.RecordCacheMiss("memory")

	if !s.breaker.Allow() {
		return nil, false
	}

	type result struct {
		value json.RawMessage
		found bool
	}
	// 同一 (user, key) 的并发未命中合并为一次读取，不受单个调用方取消影响
	v, _, _ := s.flight.Do(ck, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		gen := s.guard.snapshot(ck)
		if value, found := s.getRemote(fctx, userID, key); found {
			s.guard.fill(ck, gen, func() bool { return s.local.SetIfAbsent(ck, value) })
			return result{value, true}, nil
		}

		value, found, err := s.store.Get(fctx, userID, key)
		if err != nil {
			s.storageFailed(fctx, "get", userID, key, err)
			return result{}, nil
		}
		// 读取期间若有 Set/Delete，以其结果为准，不回填旧值
		if found && s.guard.fill(ck, gen, func() bool { return s.local.SetIfAbsent(ck, value) }) {
			s.setRemote(fctx, userID, key, value)
			if !s.guard.unchanged(ck, gen) {
				s.deleteRemote(fctx, userID, key)
			}
		}
		return result{value, found}, nil
	})
	r := v.(result)
	return r.value, r.found
}

// Set 写入条目并刷新缓存，成功后同一调用方立即可读
func (s *VaultService) Set(ctx context.Context, userID, key string, value json.RawMessage) bool {
	if !json.Valid(value) {
		s.logger.WarnContext(ctx, "rejecting invalid vault value", "user_id", userID, "key", key)
		return false
	}
	if !s.breaker.Allow() {
		return false
	}
	if err := s.store.Upsert(ctx, userID, key, value); err != nil {
		s.storageFailed(ctx, "set", userID, key, err)
		return false
	}

	ck := cacheKey(userID, key)
	s.flight.Forget(ck)
	s.guard.write(ck, func() { s.local.Set(ck, value) })
	s.setRemote(ctx, userID, key, value)
	return true
}

// Delete 删除条目与对应缓存
func (s *VaultService) Delete(ctx context.Context, userID, key string) bool {
	if !s.breaker.Allow() {
		return false
	}
	if err := s.store.Delete(ctx, userID, key); err != nil {
		s.storageFailed(ctx, "delete", userID, key, err)
		return false
	}

	ck := cacheKey(userID, key)
	s.flight.Forget(ck)
	s.deleteRemote(ctx, userID, key)
	s.guard.write(ck, func() { s.local.Delete(ck) })
	return true
}

// GetAll 返回用户全部条目并逐条写入缓存，失败或冷却期内返回空集合
func (s *VaultService) GetAll(ctx context.Context, userID string) map[string]json.RawMessage {
	if !s.breaker.Allow() {
		return map[string]json.RawMessage{}
	}
	gens := s.guard.snapshotAll()
	entries, err := s.store.List(ctx, userID)
	if err != nil {
		s.storageFailed(ctx, "get_all", userID, "", err)
		return map[string]json.RawMessage{}
	}

	for k, v := range entries {
		ck := cacheKey(userID, k)
		s.guard.fill(ck, gens[s.guard.slot(ck)], func() bool {
			s.local.Set(ck, v)
			return true
		})
	}
	if s.remote != nil && len(entries) > 0 {
		if err := s.remote.SetVaultMany(ctx, userID, entries); err != nil {
			s.logger.WarnContext(ctx, "failed to populate vault cache", "user_id", userID, "error", err)
		}
	}
	return entries
}

// ClearCache 清除用户缓存（登出）
func (s *VaultService) ClearCache(ctx context.Context, userID string) {
	prefix := userPrefix(userID)
	n := s.local.DeleteFunc(func(k string) bool {
		return strings.HasPrefix(k, prefix)
	})
	if s.remote != nil {
		if err := s.remote.ClearUser(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "failed to clear user vault cache", "user_id", userID, "error", err)
		}
	}
	s.logger.DebugContext(ctx, "vault cache cleared", "user_id", userID, "entries", n)
}

// ClearAll 清除全部缓存
func (s *VaultService) ClearAll(ctx context.Context) {
	s.local.Clear()
	if s.remote != nil {
		if err := s.remote.ClearAll(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to clear vault cache", "error", err)
		}
	}
}

// Degraded 是否处于冷却期
func (s *VaultService) Degraded() bool {
	return s.breaker.Degraded()
}

// Close 停止本地缓存清理
func (s *VaultService) Close() error {
	return s.local.Close()
}

func (s *VaultService) getRemote(ctx context.Context, userID, key string) (json.RawMessage, bool) {
	if s.remote == nil {
		return nil, false
	}
	v, found, err := s.remote.GetVault(ctx, userID, key)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read vault cache", "user_id", userID, "key", key, "error", err)
		return nil, false
	}
	return v, found
}

func (s *VaultService) deleteRemote(ctx context.Context, userID, key string) {
	if s.remote == nil {
		return
	}
	if err := s.remote.DeleteVault(ctx, userID, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete vault cache", "user_id", userID, "key", key, "error", err)
	}
}

func (s *VaultService) setRemote(ctx context.Context, userID, key string, value json.RawMessage) {
	if s.remote == nil {
		return
	}
	if err := s.remote.SetVault(ctx, userID, key, value); err != nil {
		s.logger.WarnContext(ctx, "failed to write vault cache", "user_id", userID, "key", key, "error", err)
	}
}

// storageFailed 只有表缺失会触发冷却，其余错误仅记录
func (s *VaultService) storageFailed(ctx context.Context, op, userID, key string, err error) {
	if postgres.IsUndefinedTable(err) {
		until := s.breaker.Trip()
		s.logger.WarnContext(ctx, "vault table missing, backing off",
			"op", op,
			"until", until,
			"error", err,
		)
		return
	}
	s.logger.WarnContext(ctx, "vault storage error",
		"op", op,
		"user_id", userID,
		"key", key,
		"error", err,
	)
}
