package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-lobby/pkg/prometheus"
	"github.com/stretchr/testify/require"
)

var (
	errUndefinedTable = &pgconn.PgError{Code: postgres.CodeUndefinedTable, Message: `relation "user_vault" does not exist`}
	errConnRefused    = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMetrics(t *testing.T) *metrics.LobbyMetrics {
	t.Helper()
	client, err := prometheus.New(nil)
	require.NoError(t, err)
	m, err := metrics.New(nil, client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// fakeAccountStore 内存账户表，UpdateLocked 以互斥锁模拟行锁
type fakeAccountStore struct {
	mu       sync.Mutex
	rowLock  sync.Mutex
	accounts map[string]model.Account
	nextID   int64
	err      error
	creates  int
	// 模拟并发创建：CreateIfAbsent 时由他人抢先插入
	raceCreate bool
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]model.Account)}
}

func (f *fakeAccountStore) Get(_ context.Context, userID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accounts[userID]
	if !ok {
		return nil, postgres.ErrNoRows
	}
	return &acc, nil
}

func (f *fakeAccountStore) insert(userID string) bool {
	if _, ok := f.accounts[userID]; ok {
		return false
	}
	f.nextID++
	f.accounts[userID] = model.Account{
		ID:             f.nextID,
		UserID:         userID,
		GoldBalance:    model.StartingGold,
		BuffaloBalance: model.StartingBuffalo,
	}
	return true
}

func (f *fakeAccountStore) CreateIfAbsent(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.creates++
	if f.raceCreate {
		f.insert(userID)
		return false, nil
	}
	return f.insert(userID), nil
}

func (f *fakeAccountStore) UpdateLocked(_ context.Context, userID string, fn func(*model.Account) error) (*model.Account, error) {
	f.rowLock.Lock()
	defer f.rowLock.Unlock()

	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	acc, ok := f.accounts[userID]
	f.mu.Unlock()
	if !ok {
		return nil, postgres.ErrNoRows
	}

	working := acc
	if err := fn(&working); err != nil {
		return nil, err
	}
	if working.GoldBalance.IsNegative() || working.BuffaloBalance.IsNegative() {
		return nil, &pgconn.PgError{Code: postgres.CodeCheckViolation}
	}

	f.mu.Lock()
	f.accounts[userID] = working
	f.mu.Unlock()
	return &working, nil
}

func (f *fakeAccountStore) balance(userID string, c model.Currency) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc := f.accounts[userID]
	return acc.Balance(c).StringFixed(2)
}

// fakeVaultStore 内存存储表，记录每类调用次数
type fakeVaultStore struct {
	mu      sync.Mutex
	entries map[string]map[string]json.RawMessage
	err     error
	gets    int
	upserts int
	deletes int
	lists   int
	// 非 nil 时 Get 读取后阻塞到通道关闭
	gate chan struct{}
}

func newFakeVaultStore() *fakeVaultStore {
	return &fakeVaultStore{entries: make(map[string]map[string]json.RawMessage)}
}

func (f *fakeVaultStore) Get(_ context.Context, userID, key string) (json.RawMessage, bool, error) {
	f.mu.Lock()
	f.gets++
	gate := f.gate
	err := f.err
	v, ok := f.entries[userID][key]
	f.mu.Unlock()
	// 先读取后阻塞，模拟结果返回前的延迟
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, false, err
	}
	return v, ok, nil
}

func (f *fakeVaultStore) Upsert(_ context.Context, userID, key string, value json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.err != nil {
		return f.err
	}
	if f.entries[userID] == nil {
		f.entries[userID] = make(map[string]json.RawMessage)
	}
	f.entries[userID][key] = append(json.RawMessage(nil), value...)
	return nil
}

func (f *fakeVaultStore) Delete(_ context.Context, userID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.err != nil {
		return f.err
	}
	delete(f.entries[userID], key)
	return nil
}

func (f *fakeVaultStore) List(_ context.Context, userID string) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]json.RawMessage, len(f.entries[userID]))
	for k, v := range f.entries[userID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeVaultStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeVaultStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets + f.upserts + f.deletes + f.lists
}

func (f *fakeVaultStore) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeVaultStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

// fakeVaultCache 内存版共享缓存
type fakeVaultCache struct {
	mu      sync.Mutex
	entries map[string]json.RawMessage
	cleared []string
}

func newFakeVaultCache() *fakeVaultCache {
	return &fakeVaultCache{entries: make(map[string]json.RawMessage)}
}

func (f *fakeVaultCache) GetVault(_ context.Context, userID, key string) (json.RawMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[userID+"/"+key]
	return v, ok, nil
}

func (f *fakeVaultCache) SetVault(_ context.Context, userID, key string, value json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[userID+"/"+key] = value
	return nil
}

func (f *fakeVaultCache) SetVaultMany(ctx context.Context, userID string, entries map[string]json.RawMessage) error {
	for k, v := range entries {
		_ = f.SetVault(ctx, userID, k, v)
	}
	return nil
}

func (f *fakeVaultCache) DeleteVault(_ context.Context, userID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, userID+"/"+key)
	return nil
}

func (f *fakeVaultCache) ClearUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, userID)
	for k := range f.entries {
		if strings.HasPrefix(k, userID+"/") {
			delete(f.entries, k)
		}
	}
	return nil
}

func (f *fakeVaultCache) ClearAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]json.RawMessage)
	return nil
}

// fakePublisher 记录投递的结算事件
type fakePublisher struct {
	mu          sync.Mutex
	err         error
	settlements []*model.Settlement
}

func (f *fakePublisher) PublishSettlement(_ context.Context, s *model.Settlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settlements = append(f.settlements, s)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }
