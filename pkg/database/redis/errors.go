package redis

import "github.com/cockroachdb/errors"

var (
	ErrNilConfig     = errors.New("redis config is nil")
	ErrInvalidConfig = errors.New("invalid redis config: addr is required")

	// ErrNil 键不存在
	ErrNil = errors.New("redis: nil")
)
