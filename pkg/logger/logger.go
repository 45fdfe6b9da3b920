package logger

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的日志记录器
type BaseLogger struct {
	*zap.Logger
	config           *Config
	level            zap.AtomicLevel
	name             string
	console          zapcore.WriteSyncer
	globalFields     map[string]any
	hooks            []Hook
	contextExtractor ContextFieldExtractor
}

// New 创建 BaseLogger，cfg 与 DefaultConfig 合并后使用
func New(cfg *Config, opts ...Option) (*BaseLogger, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge logger config")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	l := &BaseLogger{
		config:           merged,
		level:            zap.NewAtomicLevelAt(merged.Level.zapLevel()),
		console:          zapcore.AddSync(os.Stdout),
		globalFields:     make(map[string]any),
		contextExtractor: TraceContextExtractor,
	}
	for _, opt := range opts {
		opt(l)
	}
	for k, v := range merged.GlobalFields {
		l.globalFields[k] = v
	}
	if len(merged.SensitiveKeys) > 0 {
		l.hooks = append(l.hooks, SensitiveDataHook(merged.SensitiveKeys))
	}

	zl, err := l.build()
	if err != nil {
		return nil, err
	}
	l.Logger = zl
	return l, nil
}

func (l *BaseLogger) build() (*zap.Logger, error) {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if l.config.TimeFormat != "" {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(l.config.TimeFormat)
	}
	if l.config.Development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if l.config.Format == ConsoleFormat {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	writers := make([]zapcore.WriteSyncer, 0, 2)
	if l.config.EnableConsole {
		writers = append(writers, l.console)
	}
	if l.config.EnableFile {
		w, err := newRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create rotation writer")
		}
		writers = append(writers, zapcore.AddSync(w))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), l.level)
	if len(l.hooks) > 0 {
		core = newHookedCore(core, l.hooks...)
	}
	if l.config.EnableSampling {
		core = zapcore.NewSamplerWithOptions(core, time.Second, l.config.SamplingInitial, l.config.SamplingThereafter)
	}

	options := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if l.config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(l.config.StacktraceLevel.zapLevel()))
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	zl := zap.New(core, options...)
	if len(l.globalFields) > 0 {
		fields := make([]zap.Field, 0, len(l.globalFields))
		for k, v := range l.globalFields {
			fields = append(fields, zap.Any(k, v))
		}
		zl = zl.With(fields...)
	}
	if l.name != "" {
		zl = zl.Named(l.name)
	}
	return zl, nil
}

// SetLevel 运行时调整日志等级，所有派生 logger 同步生效
func (l *BaseLogger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// GetLevel 当前日志等级
func (l *BaseLogger) GetLevel() Level {
	return Level(l.level.Level().String())
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...any) {
	l.Logger.Debug(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...any) {
	l.Logger.Info(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...any) {
	l.Logger.Warn(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...any) {
	l.Logger.Error(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.Logger.Debug(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.Logger.Info(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.Logger.Warn(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.Logger.Error(msg, l.withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) withContext(ctx context.Context, kv []any) []zap.Field {
	return append(l.contextExtractor(ctx), toZapFields(kv)...)
}

// Named 创建具名子 logger
func (l *BaseLogger) Named(name string) Logger {
	child := *l
	child.Logger = l.Logger.Named(name)
	child.name = name
	return &child
}

// WithFields 附加固定字段
func (l *BaseLogger) WithFields(keysAndValues ...any) Logger {
	fields := toZapFields(keysAndValues)
	if len(fields) == 0 {
		return l
	}
	child := *l
	child.Logger = l.Logger.With(fields...)
	return &child
}

func (l *BaseLogger) Sync() error {
	return l.Logger.Sync()
}

// toZapFields 支持 key-value 对或直接传入 zap.Field
func toZapFields(kv []any) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	if _, ok := kv[0].(zap.Field); ok {
		fields := make([]zap.Field, 0, len(kv))
		for _, v := range kv {
			if f, ok := v.(zap.Field); ok {
				fields = append(fields, f)
			}
		}
		return fields
	}

	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, ok := kv[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}
