package sentry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
)

// Client Sentry 客户端，持有独立 Hub，不污染全局
type Client struct {
	hub     *sentry.Hub
	config  *Config
	enabled bool
	closed  atomic.Bool

	captured atomic.Uint64
	dropped  atomic.Uint64
}

// Option 客户端选项
type Option func(*sentry.ClientOptions)

// WithBeforeSend 上报前回调，返回 nil 丢弃事件
func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) Option {
	return func(o *sentry.ClientOptions) {
		o.BeforeSend = fn
	}
}

// New 创建客户端
func New(cfg *Config, opts ...Option) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: merged}
	if merged.DSN == "" {
		return c, nil
	}

	options := merged.clientOptions()
	for _, opt := range opts {
		opt(&options)
	}
	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, errors.Wrap(err, "sentry: create client")
	}

	c.hub = sentry.NewHub(client, sentry.NewScope())
	c.hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range merged.Tags {
			scope.SetTag(k, v)
		}
	})
	c.enabled = true
	return c, nil
}

// Enabled 是否配置了 DSN
func (c *Client) Enabled() bool {
	return c.enabled
}

// CaptureError 上报错误，tags 附加到本次事件
func (c *Client) CaptureError(ctx context.Context, err error, tags map[string]string) *sentry.EventID {
	if !c.enabled || err == nil || c.closed.Load() {
		return nil
	}
	var id *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if ctx != nil {
			scope.SetContext("request", sentry.Context{"trace_id": traceID(ctx)})
		}
		id = c.hub.CaptureException(err)
	})
	c.count(id)
	return id
}

// RecoverWithContext 上报已 recover 的 panic 值，不重新抛出
func (c *Client) RecoverWithContext(ctx context.Context, recovered any) *sentry.EventID {
	if !c.enabled || recovered == nil || c.closed.Load() {
		return nil
	}
	id := c.hub.RecoverWithContext(ctx, recovered)
	c.count(id)
	return id
}

func (c *Client) count(id *sentry.EventID) {
	if id != nil && *id != "" {
		c.captured.Add(1)
		return
	}
	c.dropped.Add(1)
}

// Stats 返回已上报与被丢弃事件数
func (c *Client) Stats() (captured, dropped uint64) {
	return c.captured.Load(), c.dropped.Load()
}

// Flush 等待事件发送
func (c *Client) Flush(timeout time.Duration) bool {
	if !c.enabled {
		return true
	}
	return c.hub.Flush(timeout)
}

// Close 刷新后关闭
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	if c.enabled {
		c.hub.Flush(c.config.ShutdownTimeout)
	}
	return nil
}
