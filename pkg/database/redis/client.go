package redis

import (
	"context"
	"fmt"

	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Client Redis 客户端，对外不暴露 go-redis 类型
type Client struct {
	rdb redis.UniversalClient
	cfg *Config
}

// PoolStats 连接池统计
type PoolStats struct {
	Hits       uint32
	Misses     uint32
	Timeouts   uint32
	TotalConns uint32
	IdleConns  uint32
	StaleConns uint32
}

// NewClient 创建客户端，不主动建立连接
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            merged.Addr(),
		Password:        merged.Password,
		DB:              merged.DB,
		MaxIdleConns:    merged.Pool.MaxIdleConns,
		MaxActiveConns:  merged.Pool.MaxOpenConns,
		ConnMaxLifetime: merged.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: merged.Pool.ConnMaxIdleTime,
		DialTimeout:     merged.Pool.DialTimeout,
		ReadTimeout:     merged.Pool.ReadTimeout,
		WriteTimeout:    merged.Pool.WriteTimeout,
		PoolTimeout:     merged.Pool.PoolTimeout,
	})
	return &Client{rdb: rdb, cfg: merged}, nil
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// PoolStats 连接池统计
func (c *Client) PoolStats() PoolStats {
	s := c.rdb.PoolStats()
	return PoolStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
		StaleConns: s.StaleConns,
	}
}

// Close 关闭客户端
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("failed to close redis: %w", err)
	}
	return nil
}
