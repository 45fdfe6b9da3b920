package kafka

import "github.com/cockroachdb/errors"

var (
	ErrNoBrokers      = errors.New("kafka: no brokers configured")
	ErrEmptyTopic     = errors.New("kafka: empty topic")
	ErrProducerClosed = errors.New("kafka: producer is closed")
	ErrProducerPanic  = errors.New("kafka: producer panic")
)
