package prometheus

// Config Prometheus 配置，指标通过 Web 服务的 Path 暴露
type Config struct {
	// 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	Subsystem string `mapstructure:"subsystem" json:"subsystem" yaml:"subsystem"`

	Path string `mapstructure:"path" json:"path" yaml:"path"`

	EnableGoCollector      bool `mapstructure:"enable_go_collector" json:"enable_go_collector" yaml:"enable_go_collector"`
	EnableProcessCollector bool `mapstructure:"enable_process_collector" json:"enable_process_collector" yaml:"enable_process_collector"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace:              "lobby",
		Path:                   "/metrics",
		EnableGoCollector:      true,
		EnableProcessCollector: true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Namespace == "" || c.Path == "" {
		return ErrInvalidConfig
	}
	return nil
}
