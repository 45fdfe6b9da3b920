package system

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats 进程资源快照
type Stats struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryBytes   uint64    `json:"memory_bytes"`
	Goroutines    int       `json:"goroutines"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Collector 周期采集当前进程的 CPU 与内存
type Collector struct {
	proc *process.Process
	pool *ants.Pool

	mu      sync.RWMutex
	stats   Stats
	stopCh  chan struct{}
	running bool
}

// New 创建采集器
func New() (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "system: open process")
	}
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, errors.Wrap(err, "system: create pool")
	}
	return &Collector{proc: proc, pool: pool, stopCh: make(chan struct{})}, nil
}

// Start 立即采集一次并按 interval 周期采集，重复调用无效
func (c *Collector) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	c.collect()
	return c.pool.Submit(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	})
}

// Close 停止采集
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
	c.pool.Release()
	return nil
}

func (c *Collector) collect() {
	stats := Stats{
		Goroutines: runtime.NumGoroutine(),
		UpdatedAt:  time.Now(),
	}
	if pct, err := c.proc.CPUPercent(); err == nil {
		stats.CPUPercent = pct
	}
	if info, err := c.proc.MemoryInfo(); err == nil {
		stats.MemoryBytes = info.RSS
		if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
			stats.MemoryPercent = float64(info.RSS) / float64(vm.Total) * 100
		}
	}

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
}

// GetStats 最近一次采集结果
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
