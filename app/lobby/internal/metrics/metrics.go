package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/lk2023060901/xdooria-lobby/pkg/metrics/sliding"
	"github.com/lk2023060901/xdooria-lobby/pkg/metrics/system"
	"github.com/lk2023060901/xdooria-lobby/pkg/prometheus"
)

// Config 指标配置
type Config struct {
	// SystemCollectInterval 进程资源采集间隔
	SystemCollectInterval time.Duration `mapstructure:"system_collect_interval" json:"system_collect_interval" yaml:"system_collect_interval"`
	// SlidingWindow 滑动窗口配置
	SlidingWindow sliding.WindowConfig `mapstructure:"sliding_window" json:"sliding_window" yaml:"sliding_window"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		SystemCollectInterval: 5 * time.Second,
		SlidingWindow:         *sliding.DefaultWindowConfig(),
	}
}

// LobbyMetrics Lobby 服务指标
type LobbyMetrics struct {
	config *Config

	// 账本指标
	LedgerOpsTotal    *prometheus.CounterVec   // 余额操作总数（按操作、结果）
	LedgerOpsDuration *prometheus.HistogramVec // 余额操作延迟

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// 缓存指标
	CacheHitTotal  *prometheus.CounterVec // 按缓存层 memory/redis
	CacheMissTotal *prometheus.CounterVec

	// 存储降级状态，1 表示处于退避窗口
	VaultDegraded *prometheus.GaugeVec

	EventsTotal *prometheus.CounterVec // 事件投递（按 topic、结果）

	ledgerOps    atomic.Int64
	ledgerFailed atomic.Int64
	degradeCount atomic.Int64

	systemCollector *system.Collector
	slidingWindow   *sliding.Window
}

// New 在 client 的 Registry 上创建并注册 Lobby 指标
func New(cfg *Config, client *prometheus.Client) (*LobbyMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metrics config: %w", err)
	}
	if cfg != nil {
		newCfg.SlidingWindow.Enabled = cfg.SlidingWindow.Enabled
	}

	m := &LobbyMetrics{config: newCfg}

	if m.LedgerOpsTotal, err = client.NewCounter("ledger_operations_total", "余额操作总数", []string{"operation", "result"}); err != nil {
		return nil, err
	}
	if m.LedgerOpsDuration, err = client.NewHistogram("ledger_operation_duration_seconds", "余额操作延迟（秒）",
		[]string{"operation"}, []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}); err != nil {
		return nil, err
	}
	if m.DBQueryTotal, err = client.NewCounter("db_queries_total", "数据库查询总数", []string{"operation", "result"}); err != nil {
		return nil, err
	}
	if m.DBQueryDuration, err = client.NewHistogram("db_query_duration_seconds", "数据库查询延迟（秒）",
		[]string{"operation"}, []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}); err != nil {
		return nil, err
	}
	if m.CacheHitTotal, err = client.NewCounter("cache_hits_total", "缓存命中总数", []string{"cache_type"}); err != nil {
		return nil, err
	}
	if m.CacheMissTotal, err = client.NewCounter("cache_misses_total", "缓存未命中总数", []string{"cache_type"}); err != nil {
		return nil, err
	}
	if m.VaultDegraded, err = client.NewGauge("vault_degraded", "存储是否处于降级退避", nil); err != nil {
		return nil, err
	}
	if m.EventsTotal, err = client.NewCounter("events_published_total", "事件投递总数", []string{"topic", "result"}); err != nil {
		return nil, err
	}

	sysCollector, err := system.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create system collector: %w", err)
	}
	slidingWindow, err := sliding.NewWindow(&newCfg.SlidingWindow)
	if err != nil {
		_ = sysCollector.Close()
		return nil, fmt.Errorf("failed to create sliding window: %w", err)
	}
	if err := sysCollector.Start(newCfg.SystemCollectInterval); err != nil {
		_ = sysCollector.Close()
		return nil, fmt.Errorf("failed to start system collector: %w", err)
	}

	m.systemCollector = sysCollector
	m.slidingWindow = slidingWindow
	return m, nil
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

// RecordLedgerOp 记录余额操作；业务拒绝（余额不足等）记为 rejected
func (m *LobbyMetrics) RecordLedgerOp(operation, res string, duration float64) {
	m.ledgerOps.Add(1)
	if res == "failed" {
		m.ledgerFailed.Add(1)
	}
	m.LedgerOpsTotal.WithLabelValues(operation, res).Inc()
	m.LedgerOpsDuration.WithLabelValues(operation).Observe(duration)
}

// RecordDBQuery 记录数据库查询
func (m *LobbyMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	m.DBQueryTotal.WithLabelValues(operation, result(success)).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

func (m *LobbyMetrics) RecordCacheHit(cacheType string) {
	m.CacheHitTotal.WithLabelValues(cacheType).Inc()
}

func (m *LobbyMetrics) RecordCacheMiss(cacheType string) {
	m.CacheMissTotal.WithLabelValues(cacheType).Inc()
}

// SetVaultDegraded 更新降级状态
func (m *LobbyMetrics) SetVaultDegraded(degraded bool) {
	if degraded {
		m.degradeCount.Add(1)
		m.VaultDegraded.WithLabelValues().Set(1)
		return
	}
	m.VaultDegraded.WithLabelValues().Set(0)
}

func (m *LobbyMetrics) RecordEvent(topic string, success bool) {
	m.EventsTotal.WithLabelValues(topic, result(success)).Inc()
}

// Window HTTP 中间件写入的滑动窗口
func (m *LobbyMetrics) Window() *sliding.Window {
	return m.slidingWindow
}

// Stats 运行统计快照
type Stats struct {
	LedgerOps       int64 `json:"ledger_ops"`
	LedgerFailed    int64 `json:"ledger_failed"`
	VaultDegradings int64 `json:"vault_degradings"`

	// QPS 和延迟（滑动窗口）
	QPS         float64 `json:"qps"`
	AvgLatency  float64 `json:"avg_latency"`
	MinLatency  float64 `json:"min_latency"`
	MaxLatency  float64 `json:"max_latency"`
	SuccessRate float64 `json:"success_rate"`

	// 系统指标
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	Goroutines    int     `json:"goroutines"`
}

// GetStats 汇总窗口与系统采集结果
func (m *LobbyMetrics) GetStats() Stats {
	windowStats := m.slidingWindow.GetStats()
	sysStats := m.systemCollector.GetStats()

	return Stats{
		LedgerOps:       m.ledgerOps.Load(),
		LedgerFailed:    m.ledgerFailed.Load(),
		VaultDegradings: m.degradeCount.Load(),

		QPS:         windowStats.QPS,
		AvgLatency:  windowStats.AvgLatency,
		MinLatency:  windowStats.MinLatency,
		MaxLatency:  windowStats.MaxLatency,
		SuccessRate: windowStats.SuccessRate,

		CPUPercent:    sysStats.CPUPercent,
		MemoryPercent: sysStats.MemoryPercent,
		MemoryBytes:   sysStats.MemoryBytes,
		Goroutines:    sysStats.Goroutines,
	}
}

// Close 停止系统采集
func (m *LobbyMetrics) Close() error {
	return m.systemCollector.Close()
}
