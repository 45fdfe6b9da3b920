package logger

import "go.uber.org/zap/zapcore"

// Hook 日志钩子，返回 false 时丢弃该条日志
type Hook interface {
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

// HookFunc 函数式 Hook
type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

type hookedCore struct {
	zapcore.Core
	hooks []Hook
}

func newHookedCore(core zapcore.Core, hooks ...Hook) zapcore.Core {
	return &hookedCore{Core: core, hooks: hooks}
}

func (h *hookedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if h.Enabled(entry.Level) {
		return ce.AddCore(entry, h)
	}
	return ce
}

func (h *hookedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	for _, hook := range h.hooks {
		if !hook.OnWrite(entry, fields) {
			return nil
		}
	}
	return h.Core.Write(entry, fields)
}

func (h *hookedCore) With(fields []zapcore.Field) zapcore.Core {
	return &hookedCore{Core: h.Core.With(fields), hooks: h.hooks}
}

// SensitiveDataHook 敏感字段脱敏
func SensitiveDataHook(keys []string) Hook {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	return HookFunc(func(_ zapcore.Entry, fields []zapcore.Field) bool {
		for i := range fields {
			if _, ok := set[fields[i].Key]; ok {
				fields[i] = zapcore.Field{Key: fields[i].Key, Type: zapcore.StringType, String: "***REDACTED***"}
			}
		}
		return true
	})
}
