package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// 重导出常用类型，业务代码只依赖本包
type (
	Span            = trace.Span
	SpanKind        = trace.SpanKind
	SpanStartOption = trace.SpanStartOption
	Attribute       = attribute.KeyValue
	Code            = codes.Code
)

const (
	SpanKindInternal = trace.SpanKindInternal
	SpanKindServer   = trace.SpanKindServer
	SpanKindProducer = trace.SpanKindProducer

	CodeUnset = codes.Unset
	CodeError = codes.Error
	CodeOk    = codes.Ok
)

var (
	String  = attribute.String
	Int     = attribute.Int
	Int64   = attribute.Int64
	Bool    = attribute.Bool
	Float64 = attribute.Float64
)

// Tracer 获取全局 Tracer
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Propagator 获取全局文本传播器
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

func WithSpanKind(kind SpanKind) SpanStartOption {
	return trace.WithSpanKind(kind)
}

func WithAttributes(attrs ...Attribute) SpanStartOption {
	return trace.WithAttributes(attrs...)
}

// SpanFromContext 获取 ctx 中的当前 Span
func SpanFromContext(ctx context.Context) Span {
	return trace.SpanFromContext(ctx)
}

// TraceIDFromContext 返回当前 trace id，无有效 Span 时为空串
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// RecordError 记录错误并置 Span 为失败
func RecordError(span Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
