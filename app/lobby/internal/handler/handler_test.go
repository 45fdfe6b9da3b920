package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/service"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/prometheus"
	"github.com/lk2023060901/xdooria-lobby/pkg/security"
	"github.com/lk2023060901/xdooria-lobby/pkg/web"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/middleware"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "auth-token"

type testEnv struct {
	router *gin.Engine
	jwt    *security.JWTManager
}

func newTestEnv(t *testing.T, hs ...Registrar) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Init()

	jm, err := security.NewJWTManager(&security.JWTConfig{SecretKey: "test-secret"})
	require.NoError(t, err)

	r := gin.New()
	Mount(r, "", nil, []gin.HandlerFunc{
		middleware.Auth(&middleware.AuthConfig{JWTManager: jm, CookieName: testCookie}),
	}, hs...)
	return &testEnv{router: r, jwt: jm}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.jwt.GenerateToken(userID, userID+"@example.com")
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, userID, body string) (*httptest.ResponseRecorder, web.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp web.Response
	dec := json.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	dec.UseNumber()
	_ = dec.Decode(&resp)
	return rec, resp
}

func dataMap(t *testing.T, resp web.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

// fakeLedger 内存账本，err 非空时所有写操作返回该错误
type fakeLedger struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	err      error
	lastGame string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: make(map[string]*model.Account)}
}

func (f *fakeLedger) GetOrCreate(_ context.Context, userID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[userID]
	if !ok {
		acc = &model.Account{UserID: userID, GoldBalance: model.StartingGold, BuffaloBalance: model.StartingBuffalo}
		f.accounts[userID] = acc
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeLedger) Update(_ context.Context, userID string, currency model.Currency, amount decimal.Decimal, mode model.UpdateMode) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accounts[userID]
	if !ok {
		return nil, service.ErrAccountNotFound
	}
	next := amount
	switch mode {
	case model.ModeAdd:
		next = acc.Balance(currency).Add(amount)
	case model.ModeSubtract:
		next = acc.Balance(currency).Sub(amount)
	}
	if next.IsNegative() {
		return nil, errors.Wrap(service.ErrInsufficientBalance, "overdraw")
	}
	acc.SetBalance(currency, next)
	cp := *acc
	return &cp, nil
}

func (f *fakeLedger) ApplyWagerSettlement(_ context.Context, userID string, currency model.Currency, bet, win decimal.Decimal, gameID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accounts[userID]
	if !ok {
		return nil, service.ErrAccountNotFound
	}
	acc.SetBalance(currency, acc.Balance(currency).Sub(bet).Add(win))
	f.lastGame = gameID
	cp := *acc
	return &cp, nil
}

// fakeVault 内存存储，degraded 时写入失败
type fakeVault struct {
	mu       sync.Mutex
	entries  map[string]map[string]json.RawMessage
	degraded bool
	cleared  []string
}

func newFakeVault() *fakeVault {
	return &fakeVault{entries: make(map[string]map[string]json.RawMessage)}
}

func (f *fakeVault) Get(_ context.Context, userID, key string) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[userID][key]
	return v, ok
}

func (f *fakeVault) Set(_ context.Context, userID, key string, value json.RawMessage) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		return false
	}
	if f.entries[userID] == nil {
		f.entries[userID] = make(map[string]json.RawMessage)
	}
	f.entries[userID][key] = value
	return true
}

func (f *fakeVault) Delete(_ context.Context, userID, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		return false
	}
	delete(f.entries[userID], key)
	return true
}

func (f *fakeVault) GetAll(_ context.Context, userID string) map[string]json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]json.RawMessage)
	if f.degraded {
		return out
	}
	for k, v := range f.entries[userID] {
		out[k] = v
	}
	return out
}

func (f *fakeVault) ClearCache(_ context.Context, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, userID)
}

func (f *fakeVault) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestEnv(t, NewBalanceHandler(newFakeLedger(), logger.NewNoop()))

	rec, _ := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/balances", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// cookie 回退
	req := httptest.NewRequest(http.MethodGet, "/api/v1/balances", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: env.token(t, "u1")})
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 其他密钥签发的令牌
	other, err := security.NewJWTManager(&security.JWTConfig{SecretKey: "other-secret"})
	require.NoError(t, err)
	tok, err := other.GenerateToken("u1", "")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/balances", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBalanceHandler(t *testing.T) {
	ledger := newFakeLedger()
	env := newTestEnv(t, NewBalanceHandler(ledger, logger.NewNoop()))

	rec, resp := env.do(t, http.MethodGet, "/api/v1/balances", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gold_balance":1000.00`)
	assert.Contains(t, rec.Body.String(), `"buffalo_balance":50.00`)
	assert.Equal(t, "u1", dataMap(t, resp)["user_id"])

	rec, resp = env.do(t, http.MethodPost, "/api/v1/balances", "u1", `{"currency":"gold","amount":"12.5","operation":"add"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("1012.50"), dataMap(t, resp)["gold_balance"])

	rec, resp = env.do(t, http.MethodPost, "/api/v1/balances", "u1", `{"currency":"buffalo","amount":51,"operation":"subtract"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, weberrors.CodeInsufficientBalance, resp.Code)

	rec, resp = env.do(t, http.MethodPost, "/api/v1/balances/settle", "u1", `{"currency":"gold","bet_amount":100,"win_amount":250,"game_id":"buffalo-slots"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("1162.50"), dataMap(t, resp)["gold_balance"])
	assert.Equal(t, "buffalo-slots", ledger.lastGame)
}

func TestBalanceHandler_FirstWriteCreatesAccount(t *testing.T) {
	ledger := newFakeLedger()
	env := newTestEnv(t, NewBalanceHandler(ledger, logger.NewNoop()))

	rec, resp := env.do(t, http.MethodPost, "/api/v1/balances/settle", "fresh", `{"currency":"gold","bet_amount":100,"win_amount":250}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("1150.00"), dataMap(t, resp)["gold_balance"])
	assert.Equal(t, json.Number("50.00"), dataMap(t, resp)["buffalo_balance"])

	rec, resp = env.do(t, http.MethodPost, "/api/v1/balances", "fresh2", `{"currency":"buffalo","amount":-20,"operation":"add"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("30.00"), dataMap(t, resp)["buffalo_balance"])
}

func TestBalanceHandler_Errors(t *testing.T) {
	ledger := newFakeLedger()
	env := newTestEnv(t, NewBalanceHandler(ledger, logger.NewNoop()))

	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   int
	}{
		{"bad operation", `{"currency":"gold","amount":1,"operation":"multiply"}`, nil, http.StatusBadRequest, weberrors.CodeInvalidParams},
		{"bad currency", `{"currency":"gems","amount":1,"operation":"add"}`, nil, http.StatusBadRequest, weberrors.CodeInvalidParams},
		{"missing amount", `{"currency":"gold","operation":"add"}`, nil, http.StatusBadRequest, weberrors.CodeInvalidParams},
		{"account missing", `{"currency":"gold","amount":1,"operation":"add"}`, service.ErrAccountNotFound, http.StatusNotFound, weberrors.CodeNotFound},
		{"invalid amount", `{"currency":"gold","amount":1,"operation":"add"}`, service.ErrInvalidAmount, http.StatusBadRequest, weberrors.CodeInvalidParams},
		{"storage down", `{"currency":"gold","amount":1,"operation":"add"}`,
			errors.Mark(errors.New("dial tcp"), service.ErrStorageUnavailable), http.StatusServiceUnavailable, weberrors.CodeUnavailable},
		{"unexpected", `{"currency":"gold","amount":1,"operation":"add"}`, errors.New("boom"), http.StatusInternalServerError, weberrors.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger.err = tt.err
			rec, resp := env.do(t, http.MethodPost, "/api/v1/balances", "nobody", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestVaultHandler(t *testing.T) {
	vault := newFakeVault()
	env := newTestEnv(t, NewVaultHandler(vault, logger.NewNoop()))

	rec, resp := env.do(t, http.MethodGet, "/api/v1/vault/theme", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, weberrors.CodeNotFound, resp.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/v1/vault/theme", "u1", `{"color":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/v1/vault/theme", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"color": "dark"}, dataMap(t, resp)["value"])

	// 其他用户不可见
	rec, _ = env.do(t, http.MethodGet, "/api/v1/vault/theme", "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/v1/vault", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, dataMap(t, resp), "theme")

	rec, _ = env.do(t, http.MethodPut, "/api/v1/vault/theme", "u1", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = env.do(t, http.MethodPut, "/api/v1/vault/bad%20key", "u1", `1`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/vault/theme", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/api/v1/vault/theme", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/vault/logout", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1"}, vault.cleared)
}

func TestVaultHandler_Degraded(t *testing.T) {
	vault := newFakeVault()
	vault.degraded = true
	env := newTestEnv(t, NewVaultHandler(vault, logger.NewNoop()))

	rec, resp := env.do(t, http.MethodPut, "/api/v1/vault/theme", "u1", `"dark"`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, weberrors.CodeUnavailable, resp.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/vault/theme", "u1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/v1/vault", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, dataMap(t, resp))
}

func TestStatsHandler(t *testing.T) {
	client, err := prometheus.New(nil)
	require.NoError(t, err)
	m, err := metrics.New(nil, client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	vault := newFakeVault()
	vault.degraded = true
	env := newTestEnv(t, NewStatsHandler(m, vault))

	rec, resp := env.do(t, http.MethodGet, "/api/v1/stats", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, resp)
	assert.Equal(t, true, data["vault_degraded"])
	assert.Contains(t, data, "qps")
	assert.Contains(t, data, "goroutines")
}
