package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/mq/kafka"
)

// TopicWagerSettled 下注结算事件
const TopicWagerSettled = "wager.settled"

// Config 事件投递配置
type Config struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Topic   string `mapstructure:"topic" json:"topic" yaml:"topic"`
	// PublishTimeout 单次投递上限，超时只记日志
	PublishTimeout time.Duration `mapstructure:"publish_timeout" json:"publish_timeout" yaml:"publish_timeout"`
	Kafka          kafka.Config  `mapstructure:"kafka" json:"kafka" yaml:"kafka"`
}

func DefaultConfig() *Config {
	return &Config{
		Topic:          TopicWagerSettled,
		PublishTimeout: 2 * time.Second,
	}
}

// Publisher 结算事件发布器
type Publisher interface {
	PublishSettlement(ctx context.Context, s *model.Settlement) error
	Close() error
}

// producer kafka.Producer 中被使用的部分
type producer interface {
	Topic() string
	PublishJSON(ctx context.Context, key string, value []byte) error
	Close() error
}

// New 创建发布器，未启用时返回空实现
func New(cfg *Config, l logger.Logger, m *metrics.LobbyMetrics) (Publisher, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge events config: %w", err)
	}
	if cfg != nil {
		merged.Enabled = cfg.Enabled
	}

	l = l.Named("events")
	if !merged.Enabled {
		l.Info("settlement events disabled")
		return NoopPublisher{}, nil
	}

	p, err := kafka.NewProducer(&merged.Kafka, merged.Topic, l,
		kafka.WithMiddleware(
			kafka.RecoveryMiddleware(l),
			kafka.TracingMiddleware("lobby.events"),
			kafka.LoggingMiddleware(l),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newKafkaPublisher(p, merged.PublishTimeout, m), nil
}

type kafkaPublisher struct {
	producer producer
	timeout  time.Duration
	metrics  *metrics.LobbyMetrics
}

func newKafkaPublisher(p producer, timeout time.Duration, m *metrics.LobbyMetrics) *kafkaPublisher {
	return &kafkaPublisher{producer: p, timeout: timeout, metrics: m}
}

// PublishSettlement 以 user_id 为分区键投递，调用方取消不影响已提交的结算
func (p *kafkaPublisher) PublishSettlement(ctx context.Context, s *model.Settlement) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err = p.producer.PublishJSON(ctx, s.UserID, body)
	p.metrics.RecordEvent(p.producer.Topic(), err == nil)
	if err != nil {
		return fmt.Errorf("failed to publish settlement: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher 未启用事件时使用
type NoopPublisher struct{}

func (NoopPublisher) PublishSettlement(context.Context, *model.Settlement) error { return nil }

func (NoopPublisher) Close() error { return nil }
