package prometheus

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type (
	CounterVec   = prometheus.CounterVec
	GaugeVec     = prometheus.GaugeVec
	HistogramVec = prometheus.HistogramVec
	Collector    = prometheus.Collector
)

// Client 持有独立 Registry，避免与全局默认注册器冲突
type Client struct {
	config   *Config
	registry *prometheus.Registry
	names    sync.Map
	closed   atomic.Bool
}

// New 创建客户端
func New(cfg *Config) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		merged.EnableGoCollector = cfg.EnableGoCollector
		merged.EnableProcessCollector = cfg.EnableProcessCollector
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: merged, registry: prometheus.NewRegistry()}
	if merged.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if merged.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return c, nil
}

func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Client) Config() *Config {
	return c.config
}

// Handler 指标导出 Handler
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// reserve 占用指标名，重名返回 ErrMetricExists
func (c *Client) reserve(name string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if _, loaded := c.names.LoadOrStore(name, struct{}{}); loaded {
		return ErrMetricExists
	}
	return nil
}

func (c *Client) register(name string, col prometheus.Collector) error {
	if err := c.registry.Register(col); err != nil {
		c.names.Delete(name)
		return err
	}
	return nil
}

// NewCounter 创建并注册 Counter
func (c *Client) NewCounter(name, help string, labels []string) (*CounterVec, error) {
	if err := c.reserve(name); err != nil {
		return nil, err
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.register(name, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// NewGauge 创建并注册 Gauge
func (c *Client) NewGauge(name, help string, labels []string) (*GaugeVec, error) {
	if err := c.reserve(name); err != nil {
		return nil, err
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.register(name, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// NewHistogram 创建并注册 Histogram，buckets 为 nil 时使用默认分桶
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*HistogramVec, error) {
	if err := c.reserve(name); err != nil {
		return nil, err
	}
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	if err := c.register(name, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// RegisterCollector 注册自定义采集器
func (c *Client) RegisterCollector(col Collector) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.registry.Register(col)
}

// Close 关闭后不再接受新指标
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	return nil
}
