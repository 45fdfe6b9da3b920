package config

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Manager 配置管理器接口
type Manager interface {
	// LoadFile 加载配置文件
	LoadFile(path string) error
	// Unmarshal 解析整个配置到结构体
	Unmarshal(v any) error
	// UnmarshalKey 解析指定路径的配置，如 "postgres" 或 "server.port"
	UnmarshalKey(key string, v any) error
	GetString(key string) string
	IsSet(key string) bool
	// Watch 监听配置文件变化，每次变化触发所有已注册回调
	Watch(callback func(path string)) error
}

type manager struct {
	v         *viper.Viper
	envPrefix string

	mu        sync.RWMutex
	callbacks []func(path string)
	watching  bool
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}

	if m.envPrefix != "" {
		m.v.SetEnvPrefix(m.envPrefix)
		m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		m.v.AutomaticEnv()
	}
	return m
}

func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	return nil
}

// decodeHook 支持 "5s" 形式的时长与逗号分隔的字符串切片
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v, decodeHook()); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}
	return nil
}

func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v, decodeHook()); err != nil {
		return errors.Wrapf(err, "failed to unmarshal key %s", key)
	}
	return nil
}

func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) Watch(callback func(path string)) error {
	if m.v.ConfigFileUsed() == "" {
		return errors.New("config: no config file loaded, nothing to watch")
	}

	m.mu.Lock()
	m.callbacks = append(m.callbacks, callback)
	start := !m.watching
	m.watching = true
	m.mu.Unlock()

	if !start {
		return nil
	}

	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		m.mu.RLock()
		callbacks := append([]func(string){}, m.callbacks...)
		m.mu.RUnlock()

		for _, cb := range callbacks {
			cb(e.Name)
		}
	})
	m.v.WatchConfig()
	return nil
}
