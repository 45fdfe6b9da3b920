package service

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const fillGuardStripes = 256

// fillGuard 按键分桶记录写代数。读穿回填前比对代数，
// 读取期间同桶发生过 Set/Delete 则放弃回填
type fillGuard struct {
	mu   sync.Mutex
	gens [fillGuardStripes]uint64
}

func newFillGuard() *fillGuard {
	return &fillGuard{}
}

func (g *fillGuard) slot(key string) uint64 {
	return xxhash.Sum64String(key) % fillGuardStripes
}

// snapshot 读取开始前的代数
func (g *fillGuard) snapshot(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[g.slot(key)]
}

// snapshotAll 批量读取前的全部代数
func (g *fillGuard) snapshotAll() [fillGuardStripes]uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens
}

// write 递增代数并在同一临界区内修改缓存
func (g *fillGuard) write(key string, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gens[g.slot(key)]++
	fn()
}

// fill 代数未变化时执行回填
func (g *fillGuard) fill(key string, gen uint64, fn func() bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens[g.slot(key)] != gen {
		return false
	}
	return fn()
}

// unchanged 代数是否仍为 gen
func (g *fillGuard) unchanged(key string, gen uint64) bool {
	return g.snapshot(key) == gen
}
