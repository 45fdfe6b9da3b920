package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch 每次 SCAN 的建议条数
const scanBatch = 200

// Get 获取字符串值，键不存在返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", fmt.Errorf("get failed: %w", err)
	}
	return val, nil
}

// Set 设置字符串值，expiration 为 0 表示不过期
func (c *Client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// SetMany 通过 Pipeline 批量写入，所有键共用同一过期时间
func (c *Client) SetMany(ctx context.Context, values map[string]string, expiration time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range values {
			p.Set(ctx, k, v, expiration)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pipeline set failed: %w", err)
	}
	return nil
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("del failed: %w", err)
	}
	return n, nil
}

// TTL 剩余过期时间
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl failed: %w", err)
	}
	return d, nil
}

// DeleteByPattern 用 SCAN 遍历匹配的键并分批删除，返回删除数量
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan failed: %w", err)
		}
		n, err := c.Del(ctx, keys...)
		if err != nil {
			return deleted, err
		}
		deleted += n
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
