package kafka

import (
	"context"
	"time"
)

// Message 待发送的消息
type Message struct {
	Topic string
	// 同一 Key 路由到同一分区
	Key     []byte
	Value   []byte
	Headers map[string]string
	Time    time.Time
}

// PublishFunc 发送函数
type PublishFunc func(ctx context.Context, msg *Message) error

// ProducerMiddleware 生产者中间件
type ProducerMiddleware func(ctx context.Context, msg *Message, next PublishFunc) error

// ProducerStats 生产者统计
type ProducerStats struct {
	MessagesProduced  int64
	MessagesSucceeded int64
	MessagesFailed    int64
}
