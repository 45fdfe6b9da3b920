package logger

import "go.uber.org/zap/zapcore"

// Level 日志等级
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// zapLevel 转换为 zap 等级，未知等级按 info 处理
func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Format 日志格式
type Format string

const (
	JSONFormat    Format = "json"
	ConsoleFormat Format = "console"
)

// RotationType 轮换类型
type RotationType string

const (
	RotationBySize RotationType = "size"
	RotationByTime RotationType = "time"
)

// Config 日志配置
type Config struct {
	Level  Level  `mapstructure:"level" json:"level" yaml:"level"`
	Format Format `mapstructure:"format" json:"format" yaml:"format"`

	EnableConsole bool   `mapstructure:"enable_console" json:"enable_console" yaml:"enable_console"`
	EnableFile    bool   `mapstructure:"enable_file" json:"enable_file" yaml:"enable_file"`
	OutputPath    string `mapstructure:"output_path" json:"output_path" yaml:"output_path"`

	TimeFormat string `mapstructure:"time_format" json:"time_format" yaml:"time_format"`

	Rotation RotationConfig `mapstructure:"rotation" json:"rotation" yaml:"rotation"`

	EnableStacktrace bool  `mapstructure:"enable_stacktrace" json:"enable_stacktrace" yaml:"enable_stacktrace"`
	StacktraceLevel  Level `mapstructure:"stacktrace_level" json:"stacktrace_level" yaml:"stacktrace_level"`

	// 采样（防止高频日志刷屏）
	EnableSampling     bool `mapstructure:"enable_sampling" json:"enable_sampling" yaml:"enable_sampling"`
	SamplingInitial    int  `mapstructure:"sampling_initial" json:"sampling_initial" yaml:"sampling_initial"`
	SamplingThereafter int  `mapstructure:"sampling_thereafter" json:"sampling_thereafter" yaml:"sampling_thereafter"`

	Development bool `mapstructure:"development" json:"development" yaml:"development"`

	// 需要脱敏的字段名
	SensitiveKeys []string `mapstructure:"sensitive_keys" json:"sensitive_keys" yaml:"sensitive_keys"`

	GlobalFields map[string]any `mapstructure:"global_fields" json:"global_fields" yaml:"global_fields"`
}

// RotationConfig 轮换配置
type RotationConfig struct {
	Type RotationType `mapstructure:"type" json:"type" yaml:"type"`

	// 按大小轮换 (lumberjack)
	MaxSize    int  `mapstructure:"max_size" json:"max_size" yaml:"max_size"` // MB
	MaxBackups int  `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age" json:"max_age" yaml:"max_age"` // 天
	Compress   bool `mapstructure:"compress" json:"compress" yaml:"compress"`

	// 按时间轮换 (file-rotatelogs)
	RotationTime    string `mapstructure:"rotation_time" json:"rotation_time" yaml:"rotation_time"`
	MaxAgeTime      string `mapstructure:"max_age_time" json:"max_age_time" yaml:"max_age_time"`
	RotationPattern string `mapstructure:"rotation_pattern" json:"rotation_pattern" yaml:"rotation_pattern"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Level:         InfoLevel,
		Format:        ConsoleFormat,
		EnableConsole: true,
		TimeFormat:    "2006-01-02 15:04:05",
		Rotation: RotationConfig{
			Type:            RotationBySize,
			MaxSize:         100,
			MaxBackups:      5,
			MaxAge:          7,
			Compress:        true,
			RotationTime:    "24h",
			MaxAgeTime:      "168h",
			RotationPattern: ".%Y%m%d",
		},
		EnableStacktrace:   true,
		StacktraceLevel:    ErrorLevel,
		SamplingInitial:    100,
		SamplingThereafter: 100,
		SensitiveKeys:      []string{"password", "token", "authorization"},
		GlobalFields:       make(map[string]any),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.EnableFile && c.OutputPath == "" {
		return ErrInvalidOutputPath
	}
	if !c.EnableConsole && !c.EnableFile {
		return ErrNoOutputEnabled
	}
	return nil
}
