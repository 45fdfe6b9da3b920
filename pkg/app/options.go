package app

import (
	"time"

	"github.com/google/uuid"
)

// Options 应用程序配置选项
type Options struct {
	ID          string
	Name        string
	StopTimeout time.Duration
}

// Option 配置函数
type Option func(*Options)

// DefaultOptions 返回默认配置
func DefaultOptions() Options {
	return Options{
		ID:          uuid.NewString(),
		Name:        AppName,
		StopTimeout: 30 * time.Second,
	}
}

// WithID 设置应用实例 ID
func WithID(id string) Option {
	return func(o *Options) { o.ID = id }
}

// WithName 设置应用名称
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithStopTimeout 设置优雅停止超时时间
func WithStopTimeout(t time.Duration) Option {
	return func(o *Options) {
		if t > 0 {
			o.StopTimeout = t
		}
	}
}
