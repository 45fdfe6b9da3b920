package idgen

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/sonyflake"
)

// epoch 所有实例共用的起始时间
var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type sonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflake 创建基于 Sonyflake 的 ID 生成器
func NewSonyflake(cfg *Config) (Generator, error) {
	var machineID uint16
	if cfg != nil {
		machineID = cfg.MachineID
	}
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: epoch,
		MachineID: func() (uint16, error) {
			return machineID, nil
		},
	})
	if sf == nil {
		return nil, errors.New("idgen: failed to create sonyflake generator")
	}
	return &sonyflakeGenerator{sf: sf}, nil
}

func (g *sonyflakeGenerator) NextID() (int64, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return 0, errors.Wrap(err, "idgen: next id")
	}
	return int64(id), nil
}
