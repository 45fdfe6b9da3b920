package sentry

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// Config Sentry 配置，DSN 为空时客户端不上报
type Config struct {
	DSN         string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	Environment string `json:"environment" yaml:"environment" mapstructure:"environment"`
	Release     string `json:"release" yaml:"release" mapstructure:"release"`
	ServerName  string `json:"server_name" yaml:"server_name" mapstructure:"server_name"`

	// 错误采样率 (0.0-1.0)
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`

	AttachStacktrace bool          `json:"attach_stacktrace" yaml:"attach_stacktrace" mapstructure:"attach_stacktrace"`
	MaxBreadcrumbs   int           `json:"max_breadcrumbs" yaml:"max_breadcrumbs" mapstructure:"max_breadcrumbs"`
	ShutdownTimeout  time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	Debug            bool          `json:"debug" yaml:"debug" mapstructure:"debug"`

	Tags map[string]string `json:"tags" yaml:"tags" mapstructure:"tags"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Environment:      "production",
		SampleRate:       1.0,
		AttachStacktrace: true,
		MaxBreadcrumbs:   100,
		ShutdownTimeout:  2 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 || c.MaxBreadcrumbs < 0 {
		return ErrInvalidConfig
	}
	return nil
}

func (c *Config) clientOptions() sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              c.DSN,
		Environment:      c.Environment,
		Release:          c.Release,
		ServerName:       c.ServerName,
		SampleRate:       c.SampleRate,
		AttachStacktrace: c.AttachStacktrace,
		MaxBreadcrumbs:   c.MaxBreadcrumbs,
		Debug:            c.Debug,
	}
}
