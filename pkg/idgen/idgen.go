package idgen

// Generator ID 生成器
type Generator interface {
	NextID() (int64, error)
}

// Config 生成器配置
type Config struct {
	// 机器 ID (0-65535)，多实例部署时必须互不相同
	MachineID uint16 `mapstructure:"machine_id" json:"machine_id" yaml:"machine_id"`
}
