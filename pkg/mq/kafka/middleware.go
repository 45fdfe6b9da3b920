package kafka

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/otel"
	"go.opentelemetry.io/otel/propagation"
)

// LoggingMiddleware 记录发送耗时与失败
func LoggingMiddleware(l logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			l.WarnContext(ctx, "kafka publish failed",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"duration", time.Since(start),
				"error", err,
			)
			return err
		}
		l.DebugContext(ctx, "kafka message published",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"duration", time.Since(start),
		)
		return nil
	}
}

// TracingMiddleware 开启 producer span 并把追踪上下文写入消息头
func TracingMiddleware(tracerName string) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		ctx, span := otel.Tracer(tracerName).Start(ctx, "kafka.publish",
			otel.WithSpanKind(otel.SpanKindProducer),
			otel.WithAttributes(
				otel.String("messaging.system", "kafka"),
				otel.String("messaging.destination", msg.Topic),
			),
		)
		defer span.End()

		otel.Propagator().Inject(ctx, propagation.MapCarrier(msg.Headers))

		err := next(ctx, msg)
		otel.RecordError(span, err)
		return err
	}
}

// RecoveryMiddleware 把发送链中的 panic 转成 ErrProducerPanic
func RecoveryMiddleware(l logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) (err error) {
		defer func() {
			if r := recover(); r != nil {
				l.ErrorContext(ctx, "kafka producer panic recovered", "topic", msg.Topic, "panic", r)
				err = errors.Wrapf(ErrProducerPanic, "%v", r)
			}
		}()
		return next(ctx, msg)
	}
}
