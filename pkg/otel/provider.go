package otel

import (
	"context"
	"sync/atomic"

	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider 追踪提供者。未启用时退化为全局 noop provider
type TracerProvider struct {
	config   *Config
	provider *sdktrace.TracerProvider
	closed   atomic.Bool
}

// New 创建追踪提供者，启用时同时注册为全局 provider 与 W3C 传播器
func New(ctx context.Context, cfg *Config) (*TracerProvider, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	// MergeConfig 跳过零值，Enabled 以调用方为准
	if cfg != nil {
		merged.Enabled = cfg.Enabled
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	tp := &TracerProvider{config: merged}
	if !merged.Enabled {
		return tp, nil
	}

	exporter, err := newExporter(ctx, merged)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return tp, nil
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(merged.ServiceName)}
	for k, v := range merged.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(merged.BatchExport.BatchTimeout),
			sdktrace.WithExportTimeout(merged.BatchExport.ExportTimeout),
			sdktrace.WithMaxExportBatchSize(merged.BatchExport.BatchSize),
			sdktrace.WithMaxQueueSize(merged.BatchExport.MaxQueueSize),
		),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
		sdktrace.WithSampler(newSampler(merged.Sampler)),
	)

	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

func newSampler(cfg SamplerConfig) sdktrace.Sampler {
	switch cfg.Type {
	case SamplerTypeAlways:
		return sdktrace.AlwaysSample()
	case SamplerTypeNever:
		return sdktrace.NeverSample()
	case SamplerTypeRatio:
		return sdktrace.TraceIDRatioBased(cfg.Ratio)
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

// Tracer 获取指定名称的 Tracer
func (p *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.provider.Tracer(name, opts...)
}

// Start 以服务名作为 tracer 开启 Span
func (p *TracerProvider) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.Tracer(p.config.ServiceName).Start(ctx, spanName, opts...)
}

// IsEnabled 是否真正导出
func (p *TracerProvider) IsEnabled() bool {
	return p.config.Enabled && p.provider != nil
}

func (p *TracerProvider) Config() *Config {
	return p.config
}

// Shutdown 刷新并关闭，重复调用返回 ErrProviderClosed
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if p.closed.Swap(true) {
		return ErrProviderClosed
	}
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// Close 在 ShutdownTimeout 内关闭
func (p *TracerProvider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownTimeout)
	defer cancel()
	return p.Shutdown(ctx)
}
