package service

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProgress(t *testing.T) (*ProgressService, *vaultFixture) {
	t.Helper()
	f := newVaultFixture(t, false)
	return NewProgressService(f.svc, logger.NewNoop()), f
}

func TestProgress_Defaults(t *testing.T) {
	ctx := context.Background()
	p, f := newTestProgress(t)

	got := p.GetProgress(ctx, "u1")
	assert.Equal(t, []string{"default"}, got.UnlockedThemes)
	assert.Equal(t, []string{"default"}, got.UnlockedAvatars)
	assert.Empty(t, got.AchievementsUnlocked)
	assert.Nil(t, got.LastPlayedGame)
	assert.Equal(t, 1, f.store.upsertCount())
}

func TestProgress_UpdateProgressMergesStatistics(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProgress(t)
	_, err := p.IncrementStatistic(ctx, "u1", "dailyWins", 3)
	require.NoError(t, err)

	got, err := p.UpdateProgress(ctx, "u1", json.RawMessage(`{
		"lastPlayedGame": "buffalo-slots",
		"favoriteGames": ["buffalo-slots"],
		"statistics": {"highestWin": 120.5}
	}`))
	require.NoError(t, err)
	require.NotNil(t, got.LastPlayedGame)
	assert.Equal(t, "buffalo-slots", *got.LastPlayedGame)
	assert.Equal(t, 120.5, got.Statistics.HighestWin)
	assert.Equal(t, int64(3), got.Statistics.DailyWins)

	_, err = p.UpdateProgress(ctx, "u1", json.RawMessage(`{"totalWins":"many"}`))
	assert.True(t, errors.Is(err, ErrInvalidProgress))
	assert.Equal(t, int64(0), p.GetProgress(ctx, "u1").TotalWins)
}

func TestProgress_IncrementStatistic(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProgress(t)

	got, err := p.IncrementStatistic(ctx, "u1", "totalSpins", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.TotalSpins)

	got, err = p.IncrementStatistic(ctx, "u1", "totalWagered", 12.5)
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.TotalWagered)

	got, err = p.IncrementStatistic(ctx, "u1", "winStreak", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Statistics.BestWinStreak)

	got, err = p.IncrementStatistic(ctx, "u1", "winStreak", -4)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Statistics.WinStreak)
	assert.Equal(t, int64(4), got.Statistics.BestWinStreak)

	_, err = p.IncrementStatistic(ctx, "u1", "luck", 1)
	assert.True(t, errors.Is(err, ErrUnknownStatistic))
	_, err = p.IncrementStatistic(ctx, "u1", "totalSpins", 0.5)
	assert.True(t, errors.Is(err, ErrInvalidProgress))
	_, err = p.IncrementStatistic(ctx, "u1", "totalSpins", -6)
	assert.True(t, errors.Is(err, ErrInvalidProgress))

	assert.Equal(t, int64(5), p.GetProgress(ctx, "u1").TotalSpins)
}

func TestProgress_IncrementStatisticRange(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProgress(t)

	for _, delta := range []float64{1e19, -1e19, math.MaxFloat64} {
		_, err := p.IncrementStatistic(ctx, "u1", "totalSpins", delta)
		assert.True(t, errors.Is(err, ErrInvalidProgress), "delta %v", delta)
	}

	_, err := p.UpdateProgress(ctx, "u1", json.RawMessage(`{"totalSpins": 9223372036854775000}`))
	require.NoError(t, err)
	_, err = p.IncrementStatistic(ctx, "u1", "totalSpins", 1000)
	assert.True(t, errors.Is(err, ErrInvalidProgress))
	assert.Equal(t, int64(9223372036854775000), p.GetProgress(ctx, "u1").TotalSpins)

	got, err := p.IncrementStatistic(ctx, "u1", "totalSpins", 807)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got.TotalSpins)

	_, err = p.IncrementStatistic(ctx, "u1", "totalWagered", math.MaxFloat64)
	require.NoError(t, err)
	_, err = p.IncrementStatistic(ctx, "u1", "totalWagered", math.MaxFloat64)
	assert.True(t, errors.Is(err, ErrInvalidProgress))
}

func TestProgress_UnlockAchievementIdempotent(t *testing.T) {
	ctx := context.Background()
	p, f := newTestProgress(t)
	p.GetProgress(ctx, "u1")
	writes := f.store.upsertCount()

	got, err := p.UnlockAchievement(ctx, "u1", "first_win")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_win"}, got.AchievementsUnlocked)
	assert.Equal(t, writes+1, f.store.upsertCount())

	got, err = p.UnlockAchievement(ctx, "u1", "first_win")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_win"}, got.AchievementsUnlocked)
	assert.Equal(t, writes+1, f.store.upsertCount())
}

func TestProgress_WriteFailsWhileDegraded(t *testing.T) {
	ctx := context.Background()
	p, f := newTestProgress(t)
	f.store.setErr(errUndefinedTable)

	got := p.GetProgress(ctx, "u1")
	assert.Equal(t, model.DefaultProgress().UnlockedThemes, got.UnlockedThemes)

	_, err := p.UnlockAchievement(ctx, "u1", "first_win")
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
}
