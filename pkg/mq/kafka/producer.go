package kafka

import (
	"context"
	"sync/atomic"

	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// messageWriter kafka.Writer 的最小子集
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 单 topic 生产者
type Producer struct {
	config      *Config
	topic       string
	writer      messageWriter
	logger      logger.Logger
	middlewares []ProducerMiddleware

	produced  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	closed    atomic.Bool
}

// ProducerOption 生产者选项
type ProducerOption func(*Producer)

// WithMiddleware 追加中间件，先追加的在外层
func WithMiddleware(mw ...ProducerMiddleware) ProducerOption {
	return func(p *Producer) {
		p.middlewares = append(p.middlewares, mw...)
	}
}

// withWriter 替换底层 writer，测试使用
func withWriter(w messageWriter) ProducerOption {
	return func(p *Producer) {
		p.writer = w
	}
}

// NewProducer 创建生产者，不会立即连接 broker
func NewProducer(cfg *Config, topic string, l logger.Logger, opts ...ProducerOption) (*Producer, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		merged.Producer.Async = cfg.Producer.Async
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	p := &Producer{
		config: merged,
		topic:  topic,
		logger: l.Named("kafka.producer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		w, err := newWriter(merged, topic)
		if err != nil {
			return nil, err
		}
		p.writer = w
	}
	return p, nil
}

func newWriter(cfg *Config, topic string) (*kafka.Writer, error) {
	pc := cfg.Producer
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              pc.BatchSize,
		BatchTimeout:           pc.BatchTimeout,
		MaxAttempts:            pc.MaxRetries + 1,
		WriteTimeout:           pc.WriteTimeout,
		ReadTimeout:            pc.ReadTimeout,
		RequiredAcks:           kafka.RequiredAcks(pc.RequiredAcks),
		Async:                  pc.Async,
		Compression:            parseCompression(pc.Compression),
		AllowAutoTopicCreation: true,
	}
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	if transport != nil {
		w.Transport = transport
	}
	return w, nil
}

// Topic 目标 topic
func (p *Producer) Topic() string {
	return p.topic
}

// Publish 经过中间件链发送单条消息
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg.Topic == "" {
		msg.Topic = p.topic
	}
	if msg.Headers == nil {
		msg.Headers = make(map[string]string)
	}

	publish := PublishFunc(p.write)
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		mw, next := p.middlewares[i], publish
		publish = func(ctx context.Context, m *Message) error {
			return mw(ctx, m, next)
		}
	}

	p.produced.Add(1)
	if err := publish(ctx, msg); err != nil {
		p.failed.Add(1)
		return err
	}
	p.succeeded.Add(1)
	return nil
}

// PublishJSON 发送已编码的 JSON 消息
func (p *Producer) PublishJSON(ctx context.Context, key string, value []byte) error {
	return p.Publish(ctx, &Message{
		Key:     []byte(key),
		Value:   value,
		Headers: map[string]string{"content-type": "application/json"},
	})
}

func (p *Producer) write(ctx context.Context, msg *Message) error {
	km := kafka.Message{Key: msg.Key, Value: msg.Value, Time: msg.Time}
	for k, v := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return p.writer.WriteMessages(ctx, km)
}

// Stats 发送统计
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesProduced:  p.produced.Load(),
		MessagesSucceeded: p.succeeded.Load(),
		MessagesFailed:    p.failed.Load(),
	}
}

// Close 刷新缓冲并关闭，可重复调用
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.logger.Debug("producer closing", "topic", p.topic)
	return p.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}
