package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/service"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	weberrors "github.com/lk2023060901/xdooria-lobby/pkg/web/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocs 内存文档存储，readOnly 时写入失败
type fakeDocs struct {
	mu       sync.Mutex
	docs     map[string]json.RawMessage
	readOnly bool
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: make(map[string]json.RawMessage)}
}

func (f *fakeDocs) Get(_ context.Context, userID, key string) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.docs[userID+"/"+key]
	return v, ok
}

func (f *fakeDocs) Set(_ context.Context, userID, key string, value json.RawMessage) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readOnly {
		return false
	}
	f.docs[userID+"/"+key] = value
	return true
}

func TestSettingsHandler(t *testing.T) {
	docs := newFakeDocs()
	svc := service.NewSettingsService(docs, logger.NewNoop())
	env := newTestEnv(t, NewSettingsHandler(svc, logger.NewNoop()))

	rec, resp := env.do(t, http.MethodGet, "/api/v1/settings", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sound := dataMap(t, resp)["sound"].(map[string]any)
	assert.Equal(t, json.Number("0.8"), sound["volume"])

	rec, resp = env.do(t, http.MethodPatch, "/api/v1/settings", "u1", `{"section":"graphics","key":"quality","value":"low"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "low", dataMap(t, resp)["graphics"].(map[string]any)["quality"])

	rec, resp = env.do(t, http.MethodPatch, "/api/v1/settings", "u1", `{"section":"graphics","key":"shadows","value":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, weberrors.CodeInvalidParams, resp.Code)

	rec, _ = env.do(t, http.MethodPatch, "/api/v1/settings", "u1", `{"section":"sound","key":"volume","value":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = env.do(t, http.MethodPut, "/api/v1/settings", "u1", `{"privacy":{"showOnlineStatus":false}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, resp)
	assert.Equal(t, false, data["privacy"].(map[string]any)["showOnlineStatus"])
	assert.Equal(t, "low", data["graphics"].(map[string]any)["quality"])

	docs.readOnly = true
	rec, resp = env.do(t, http.MethodPut, "/api/v1/settings", "u1", `{"privacy":{"showOnlineStatus":true}}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, weberrors.CodeUnavailable, resp.Code)
}

func TestProgressHandler(t *testing.T) {
	docs := newFakeDocs()
	svc := service.NewProgressService(docs, logger.NewNoop())
	env := newTestEnv(t, NewProgressHandler(svc, logger.NewNoop()))

	rec, resp := env.do(t, http.MethodGet, "/api/v1/progress", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"default"}, dataMap(t, resp)["unlockedThemes"])

	rec, resp = env.do(t, http.MethodPost, "/api/v1/progress/statistics", "u1", `{"name":"totalWins","delta":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("2"), dataMap(t, resp)["totalWins"])

	rec, _ = env.do(t, http.MethodPost, "/api/v1/progress/statistics", "u1", `{"name":"luck","delta":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = env.do(t, http.MethodPost, "/api/v1/progress/statistics", "u1", `{"name":"totalWins"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 2; i++ {
		rec, resp = env.do(t, http.MethodPost, "/api/v1/progress/achievements", "u1", `{"achievement_id":"first_win"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{"first_win"}, dataMap(t, resp)["achievementsUnlocked"])
	}

	rec, resp = env.do(t, http.MethodPut, "/api/v1/progress", "u1", `{"lastPlayedGame":"buffalo-slots"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buffalo-slots", dataMap(t, resp)["lastPlayedGame"])

	raw, ok := docs.Get(context.Background(), "u1", model.VaultKeyProgress)
	require.True(t, ok)
	stored, err := model.MergeProgress(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.TotalWins)
}
