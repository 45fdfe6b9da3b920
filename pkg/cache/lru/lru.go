package lru

import (
	"container/list"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Cache 通用缓存接口
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	SetWithTTL(key K, value V, ttl time.Duration)
	SetIfAbsent(key K, value V) bool
	Delete(key K)
	DeleteFunc(match func(key K) bool) int
	Len() int
	Clear()
	Close() error
}

// Config LRU 配置
type Config struct {
	// MaxSize 最大容量，超出时淘汰最久未使用的条目
	MaxSize int `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	// DefaultTTL 默认过期时间
	DefaultTTL time.Duration `mapstructure:"default_ttl" json:"default_ttl" yaml:"default_ttl"`
	// CleanupInterval 后台清理间隔，<=0 时不启动清理协程
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxSize:         10000,
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Stats 命中统计
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
}

// LRU 带过期时间的内存 LRU 缓存
type LRU[K comparable, V any] struct {
	config *Config
	ll     *list.List
	items  map[K]*list.Element
	mu     sync.Mutex

	pool   *ants.Pool
	stopCh chan struct{}
	once   sync.Once

	now     func() time.Time
	onEvict func(key K, value V)
	stats   Stats
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Option LRU 配置选项
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict 设置淘汰回调（容量淘汰与过期清理都会触发，Delete/Clear 不触发）
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// WithClock 替换时间源
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRU[K, V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New 创建 LRU 缓存
func New[K comparable, V any](cfg *Config, opts ...Option[K, V]) (*LRU[K, V], error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}

	c := &LRU[K, V]{
		config: cfg,
		ll:     list.New(),
		items:  make(map[K]*list.Element),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.CleanupInterval > 0 {
		pool, err := ants.NewPool(1)
		if err != nil {
			return nil, err
		}
		c.pool = pool
		if err := pool.Submit(c.cleanupLoop); err != nil {
			pool.Release()
			return nil, err
		}
	}
	return c, nil
}

func (c *LRU[K, V]) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.RemoveExpired()
		case <-c.stopCh:
			return
		}
	}
}

// RemoveExpired 移除所有过期条目，返回移除数量
func (c *LRU[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for e := c.ll.Back(); e != nil; {
		prev := e.Prev()
		if ent := e.Value.(*entry[K, V]); c.expired(ent, now) {
			c.evict(e)
			removed++
		}
		e = prev
	}
	return removed
}

func (c *LRU[K, V]) expired(ent *entry[K, V], now time.Time) bool {
	return !ent.expiresAt.IsZero() && !now.Before(ent.expiresAt)
}

// Get 获取未过期的值
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	ent := elem.Value.(*entry[K, V])
	if c.expired(ent, c.now()) {
		c.evict(elem)
		c.stats.Misses++
		return zero, false
	}
	c.ll.MoveToFront(elem)
	c.stats.Hits++
	return ent.value, true
}

// Set 使用默认 TTL 写入
func (c *LRU[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL 写入并指定 TTL，ttl<=0 表示永不过期
func (c *LRU[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, ttl)
}

// SetIfAbsent 仅在 key 不存在或已过期时以默认 TTL 写入，返回是否写入
func (c *LRU[K, V]) SetIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok && !c.expired(elem.Value.(*entry[K, V]), c.now()) {
		return false
	}
	c.set(key, value, c.config.DefaultTTL)
	return true
}

func (c *LRU[K, V]) set(key K, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.ll.MoveToFront(elem)
		return
	}

	c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	for c.ll.Len() > c.config.MaxSize {
		c.evict(c.ll.Back())
	}
}

// Delete 删除
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// DeleteFunc 删除所有 match 返回 true 的 key，返回删除数量
func (c *LRU[K, V]) DeleteFunc(match func(key K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, elem := range c.items {
		if match(key) {
			c.remove(elem)
			n++
		}
	}
	return n
}

// Len 当前条目数（含尚未清理的过期条目）
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats 命中统计快照
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.ll.Len()
	return s
}

// Clear 清空缓存
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[K]*list.Element)
}

// Close 停止后台清理，可重复调用
func (c *LRU[K, V]) Close() error {
	c.once.Do(func() {
		close(c.stopCh)
		if c.pool != nil {
			c.pool.Release()
		}
	})
	return nil
}

func (c *LRU[K, V]) remove(elem *list.Element) *entry[K, V] {
	c.ll.Remove(elem)
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	return ent
}

func (c *LRU[K, V]) evict(elem *list.Element) {
	ent := c.remove(elem)
	c.stats.Evictions++
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
