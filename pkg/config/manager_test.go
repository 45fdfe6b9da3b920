package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appCfg struct {
	Server struct {
		Port    int           `mapstructure:"port"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"server"`
	Vault struct {
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
		Keys     []string      `mapstructure:"keys"`
	} `mapstructure:"vault"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestManager_LoadAndUnmarshal(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  timeout: 15s
vault:
  cache_ttl: 5m
  keys: "game_settings,game_progress"
`)

	m := NewManager()
	require.NoError(t, m.LoadFile(path))

	var cfg appCfg
	require.NoError(t, m.Unmarshal(&cfg))
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Vault.CacheTTL)
	assert.Equal(t, []string{"game_settings", "game_progress"}, cfg.Vault.Keys)
	assert.True(t, m.IsSet("server.port"))
	assert.False(t, m.IsSet("server.missing"))
}

func TestManager_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	t.Setenv("LOBBYTEST_SERVER_PORT", "9191")

	m := NewManager(WithEnvPrefix("LOBBYTEST"))
	require.NoError(t, m.LoadFile(path))

	var port int
	require.NoError(t, m.UnmarshalKey("server.port", &port))
	assert.Equal(t, 9191, port)
	assert.Equal(t, "9191", m.GetString("server.port"))
}

func TestManager_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 1\n")
	m := NewManager(WithDefaults(map[string]any{"vault.cache_ttl": "1m"}))
	require.NoError(t, m.LoadFile(path))

	var cfg appCfg
	require.NoError(t, m.Unmarshal(&cfg))
	assert.Equal(t, time.Minute, cfg.Vault.CacheTTL)
}

func TestManager_LoadFileMissing(t *testing.T) {
	m := NewManager()
	assert.Error(t, m.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestManager_WatchWithoutFile(t *testing.T) {
	m := NewManager()
	assert.Error(t, m.Watch(func(string) {}))
}
