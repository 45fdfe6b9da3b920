package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，XDOORIA_LOG_LEVEL 对应 log.level
const EnvPrefix = "XDOORIA"

// LoadConfig 解析命令行并加载配置到 target，返回可用于热更新监听的 Manager。
// 优先级：命令行显式参数 > 环境变量 > 配置文件 > 默认值。
func LoadConfig(args []string, target any, opts ...config.Option) (config.Manager, error) {
	execDir, err := GetExecDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get executable directory")
	}

	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", filepath.Join(execDir, "config.yaml"), "path to config file")
	logPath := fs.String("log.path", "", "output path for logs")
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "failed to parse flags")
	}

	path := *configPath
	if !fs.Changed("config") {
		if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
			path = env
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "config file not found at %s", path)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if fs.Changed("log.path") {
		v.Set("log.output_path", *logPath)
		v.Set("log.enable_file", true)
	}

	mgr := config.NewManager(append(opts, config.WithViper(v))...)
	if err := mgr.LoadFile(path); err != nil {
		return nil, err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}

	if out := v.GetString("log.output_path"); out != "" {
		_ = os.MkdirAll(filepath.Dir(out), 0o755)
	}
	return mgr, nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = real
	}
	return filepath.Dir(execPath), nil
}
