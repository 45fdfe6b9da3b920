package logger

import (
	"io"

	"go.uber.org/zap/zapcore"
)

// Option 配置选项
type Option func(*BaseLogger)

// WithName 设置 logger 名称
func WithName(name string) Option {
	return func(l *BaseLogger) {
		l.name = name
	}
}

// WithGlobalFields 添加全局字段，参数为 key-value 对
func WithGlobalFields(kv ...any) Option {
	return func(l *BaseLogger) {
		for i := 0; i+1 < len(kv); i += 2 {
			if key, ok := kv[i].(string); ok {
				l.globalFields[key] = kv[i+1]
			}
		}
	}
}

// WithHooks 添加钩子
func WithHooks(hooks ...Hook) Option {
	return func(l *BaseLogger) {
		l.hooks = append(l.hooks, hooks...)
	}
}

// WithContextExtractor 自定义 context 字段提取
func WithContextExtractor(fn ContextFieldExtractor) Option {
	return func(l *BaseLogger) {
		if fn != nil {
			l.contextExtractor = fn
		}
	}
}

// WithOutput 替换控制台输出目标（默认 os.Stdout）
func WithOutput(w io.Writer) Option {
	return func(l *BaseLogger) {
		l.console = zapcore.AddSync(w)
	}
}
