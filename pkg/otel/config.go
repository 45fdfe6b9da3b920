package otel

import "time"

// Config 追踪配置
type Config struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// OTLP HTTP: localhost:4318，OTLP gRPC: localhost:4317
	Endpoint     string       `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	ExporterType ExporterType `json:"exporter_type" yaml:"exporter_type" mapstructure:"exporter_type"`
	Insecure     bool         `json:"insecure" yaml:"insecure" mapstructure:"insecure"`

	Sampler     SamplerConfig     `json:"sampler" yaml:"sampler" mapstructure:"sampler"`
	BatchExport BatchExportConfig `json:"batch_export" yaml:"batch_export" mapstructure:"batch_export"`

	// 附加到 Resource 的属性
	Attributes map[string]string `json:"attributes" yaml:"attributes" mapstructure:"attributes"`

	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ExporterType 导出器类型
type ExporterType string

const (
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	ExporterTypeOTLPGRPC ExporterType = "otlp-grpc"
	ExporterTypeStdout   ExporterType = "stdout"
	ExporterTypeNoop     ExporterType = "noop"
)

// SamplerType 采样类型
type SamplerType string

const (
	SamplerTypeAlways SamplerType = "always"
	SamplerTypeNever  SamplerType = "never"
	SamplerTypeRatio  SamplerType = "ratio"
	// 跟随父 Span 决策
	SamplerTypeParent SamplerType = "parent"
)

// SamplerConfig 采样配置，Ratio 仅在 ratio 类型下生效
type SamplerConfig struct {
	Type  SamplerType `json:"type" yaml:"type" mapstructure:"type"`
	Ratio float64     `json:"ratio" yaml:"ratio" mapstructure:"ratio"`
}

// BatchExportConfig 批量导出配置
type BatchExportConfig struct {
	BatchSize     int           `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	ExportTimeout time.Duration `json:"export_timeout" yaml:"export_timeout" mapstructure:"export_timeout"`
	MaxQueueSize  int           `json:"max_queue_size" yaml:"max_queue_size" mapstructure:"max_queue_size"`
	BatchTimeout  time.Duration `json:"batch_timeout" yaml:"batch_timeout" mapstructure:"batch_timeout"`
}

// DefaultConfig 默认关闭追踪，开启后走 OTLP HTTP
func DefaultConfig() *Config {
	return &Config{
		Enabled:      false,
		ServiceName:  "lobby",
		Endpoint:     "localhost:4318",
		ExporterType: ExporterTypeOTLPHTTP,
		Insecure:     true,
		Sampler: SamplerConfig{
			Type:  SamplerTypeParent,
			Ratio: 1.0,
		},
		BatchExport: BatchExportConfig{
			BatchSize:     512,
			ExportTimeout: 30 * time.Second,
			MaxQueueSize:  2048,
			BatchTimeout:  5 * time.Second,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrInvalidServiceName
	}
	if c.Sampler.Type == SamplerTypeRatio && (c.Sampler.Ratio < 0 || c.Sampler.Ratio > 1) {
		return ErrInvalidSamplerRatio
	}
	return nil
}
