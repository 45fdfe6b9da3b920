package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
)

// Client PostgreSQL 客户端
type Client struct {
	pool   *pgxpool.Pool
	cfg    *Config
	logger logger.Logger
}

// New 创建客户端并验证连通性
func New(ctx context.Context, cfg *Config, l logger.Logger) (*Client, error) {
	merged, err := mergeConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge postgres config")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(buildConnString(merged))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse pool config")
	}
	poolCfg.MaxConns = merged.Pool.MaxConns
	poolCfg.MinConns = merged.Pool.MinConns
	poolCfg.MaxConnLifetime = merged.Pool.MaxConnLifetime
	poolCfg.MaxConnIdleTime = merged.Pool.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = merged.Pool.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(ctx, merged.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	l = l.Named("postgres")
	l.Info("postgres connected", "host", merged.Host, "port", merged.Port, "db", merged.DBName)
	return &Client{pool: pool, cfg: merged, logger: l}, nil
}

// Pool 底层连接池
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Config 生效中的配置
func (c *Client) Config() *Config {
	return c.cfg
}

// Ping 检查数据库连接
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.pool.Ping(ctx)
}

// Close 关闭连接池
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// Stats 连接池状态
func (c *Client) Stats() *PoolStats {
	s := c.pool.Stat()
	return &PoolStats{
		AcquireCount:         s.AcquireCount(),
		AcquireDuration:      s.AcquireDuration(),
		AcquiredConns:        s.AcquiredConns(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		IdleConns:            s.IdleConns(),
		MaxConns:             s.MaxConns(),
		TotalConns:           s.TotalConns(),
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}

func buildConnString(cfg *Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	q.Set("connect_timeout", fmt.Sprintf("%d", int(cfg.ConnectTimeout.Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}
