package service

import (
	"sync"
	"time"
)

type breakerState int

const (
	stateAvailable breakerState = iota
	stateDegraded
)

func (s breakerState) String() string {
	if s == stateDegraded {
		return "degraded"
	}
	return "available"
}

// vaultBreaker 两态状态机 {available, degraded-until(t)}。
// 冷却期内 Allow 返回 false；冷却结束后下一次 Allow 回到 available 放行一次存储访问，
// 若再次失败由调用方 Trip 重新进入冷却
type vaultBreaker struct {
	cooldown time.Duration
	now      func() time.Time
	onChange func(degraded bool)

	mu    sync.Mutex
	state breakerState
	until time.Time
}

func newVaultBreaker(cooldown time.Duration, now func() time.Time, onChange func(bool)) *vaultBreaker {
	if now == nil {
		now = time.Now
	}
	if onChange == nil {
		onChange = func(bool) {}
	}
	return &vaultBreaker{cooldown: cooldown, now: now, onChange: onChange}
}

// Allow 是否允许访问存储
func (b *vaultBreaker) Allow() bool {
	b.mu.Lock()
	if b.state == stateAvailable {
		b.mu.Unlock()
		return true
	}
	if b.now().Before(b.until) {
		b.mu.Unlock()
		return false
	}
	b.state = stateAvailable
	b.until = time.Time{}
	b.mu.Unlock()

	b.onChange(false)
	return true
}

// Trip 进入（或重新进入）冷却期，返回冷却截止时间
func (b *vaultBreaker) Trip() time.Time {
	b.mu.Lock()
	b.state = stateDegraded
	b.until = b.now().Add(b.cooldown)
	until := b.until
	b.mu.Unlock()

	b.onChange(true)
	return until
}

// Degraded 当前是否处于冷却期，不改变状态
func (b *vaultBreaker) Degraded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateDegraded && b.now().Before(b.until)
}

func (b *vaultBreaker) State() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
