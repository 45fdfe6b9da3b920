package sliding

import (
	"sync"
	"time"

	"github.com/lk2023060901/xdooria-lobby/pkg/config"
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	Enabled     bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	WindowSize  time.Duration `mapstructure:"window_size" json:"window_size" yaml:"window_size"`
	BucketCount int           `mapstructure:"bucket_count" json:"bucket_count" yaml:"bucket_count"`
}

// DefaultWindowConfig 60s 窗口，每秒一个桶
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		Enabled:     true,
		WindowSize:  60 * time.Second,
		BucketCount: 60,
	}
}

type bucket struct {
	// 所属时间片序号，与当前序号差超过桶数即视为过期
	slot       int64
	count      int64
	totalTime  float64
	minLatency float64
	maxLatency float64
	successCnt int64
	failureCnt int64
}

// Window 按时间片懒轮转的滑动窗口，无后台协程
type Window struct {
	config  *WindowConfig
	width   time.Duration
	now     func() time.Time
	mu      sync.Mutex
	buckets []bucket
}

// Option 窗口选项
type Option func(*Window)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(w *Window) {
		w.now = now
	}
}

// NewWindow 创建滑动窗口
func NewWindow(cfg *WindowConfig, opts ...Option) (*Window, error) {
	merged, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		merged.Enabled = cfg.Enabled
	}

	w := &Window{
		config:  merged,
		width:   merged.WindowSize / time.Duration(merged.BucketCount),
		now:     time.Now,
		buckets: make([]bucket, merged.BucketCount),
	}
	for i := range w.buckets {
		w.buckets[i].slot = -1
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Window) slot(t time.Time) int64 {
	return t.UnixNano() / int64(w.width)
}

// Record 记录一次请求，latency 单位秒
func (w *Window) Record(latency float64, success bool) {
	if !w.config.Enabled {
		return
	}

	s := w.slot(w.now())
	w.mu.Lock()
	defer w.mu.Unlock()

	b := &w.buckets[s%int64(len(w.buckets))]
	if b.slot != s {
		*b = bucket{slot: s, minLatency: -1}
	}
	b.count++
	b.totalTime += latency
	if success {
		b.successCnt++
	} else {
		b.failureCnt++
	}
	if b.minLatency < 0 || latency < b.minLatency {
		b.minLatency = latency
	}
	if latency > b.maxLatency {
		b.maxLatency = latency
	}
}

// Stats 窗口统计
type Stats struct {
	QPS          float64 `json:"qps"`
	AvgLatency   float64 `json:"avg_latency"`
	MinLatency   float64 `json:"min_latency"`
	MaxLatency   float64 `json:"max_latency"`
	SuccessRate  float64 `json:"success_rate"`
	TotalCount   int64   `json:"total_count"`
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
}

// GetStats 汇总窗口内的有效桶
func (w *Window) GetStats() Stats {
	current := w.slot(w.now())
	oldest := current - int64(len(w.buckets)) + 1

	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		stats     Stats
		totalTime float64
	)
	minLatency := -1.0
	for _, b := range w.buckets {
		if b.slot < oldest || b.slot > current {
			continue
		}
		stats.TotalCount += b.count
		stats.SuccessCount += b.successCnt
		stats.FailureCount += b.failureCnt
		totalTime += b.totalTime
		if b.minLatency >= 0 && (minLatency < 0 || b.minLatency < minLatency) {
			minLatency = b.minLatency
		}
		if b.maxLatency > stats.MaxLatency {
			stats.MaxLatency = b.maxLatency
		}
	}

	stats.QPS = float64(stats.TotalCount) / w.config.WindowSize.Seconds()
	if stats.TotalCount > 0 {
		stats.AvgLatency = totalTime / float64(stats.TotalCount)
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCount) * 100
	}
	if minLatency >= 0 {
		stats.MinLatency = minLatency
	}
	return stats
}
