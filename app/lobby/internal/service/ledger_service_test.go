package service

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/events"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, pub events.Publisher) (*LedgerService, *fakeAccountStore) {
	t.Helper()
	store := newFakeAccountStore()
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return NewLedgerService(store, pub, logger.NewNoop(), newTestMetrics(t)), store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLedger_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)

	acc, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", acc.GoldBalance.StringFixed(2))
	assert.Equal(t, "50.00", acc.BuffaloBalance.StringFixed(2))

	again, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, again.ID)
	assert.Equal(t, 1, store.creates)
}

func TestLedger_GetOrCreateLostRace(t *testing.T) {
	ledger, store := newTestLedger(t, nil)
	store.raceCreate = true

	acc, err := ledger.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", acc.UserID)
	assert.Equal(t, "1000.00", acc.GoldBalance.StringFixed(2))
}

func TestLedger_GetOrCreateStorageError(t *testing.T) {
	ledger, store := newTestLedger(t, nil)
	store.err = errConnRefused

	_, err := ledger.GetOrCreate(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
}

func TestLedger_UpdateModes(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	acc, err := ledger.Update(ctx, "u1", model.CurrencyGold, dec("250.50"), model.ModeAdd)
	require.NoError(t, err)
	assert.Equal(t, "1250.50", acc.GoldBalance.StringFixed(2))

	acc, err = ledger.Update(ctx, "u1", model.CurrencyGold, dec("0.50"), model.ModeSubtract)
	require.NoError(t, err)
	assert.Equal(t, "1250.00", acc.GoldBalance.StringFixed(2))

	acc, err = ledger.Update(ctx, "u1", model.CurrencyBuffalo, dec("7"), model.ModeSet)
	require.NoError(t, err)
	assert.Equal(t, "7.00", acc.BuffaloBalance.StringFixed(2))
	assert.Equal(t, "1250.00", acc.GoldBalance.StringFixed(2))

	acc, err = ledger.Update(ctx, "u1", model.CurrencyBuffalo, decimal.Zero, model.ModeSet)
	require.NoError(t, err)
	assert.True(t, acc.BuffaloBalance.IsZero())
	assert.Equal(t, "0.00", store.balance("u1", model.CurrencyBuffalo))
}

func TestLedger_InsufficientBalanceLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	_, err = ledger.Update(ctx, "u1", model.CurrencyBuffalo, dec("50.01"), model.ModeSubtract)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.Equal(t, "50.00", store.balance("u1", model.CurrencyBuffalo))

	// 恰好扣到 0 允许
	acc, err := ledger.Update(ctx, "u1", model.CurrencyBuffalo, dec("50"), model.ModeSubtract)
	require.NoError(t, err)
	assert.True(t, acc.BuffaloBalance.IsZero())
}

func TestLedger_UpdateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		currency model.Currency
		amount   decimal.Decimal
		mode     model.UpdateMode
		want     error
	}{
		{"unknown currency", model.Currency("diamond"), dec("1"), model.ModeAdd, ErrInvalidCurrency},
		{"unknown mode", model.CurrencyGold, dec("1"), model.UpdateMode("multiply"), ErrInvalidMode},
		{"too precise", model.CurrencyGold, dec("0.001"), model.ModeAdd, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Update(ctx, "u1", tt.currency, tt.amount, tt.mode)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Equal(t, "1000.00", store.balance("u1", model.CurrencyGold))
}

func TestLedger_NegativeAmountsComposeByResult(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	acc, err := ledger.Update(ctx, "u1", model.CurrencyGold, dec("-100"), model.ModeAdd)
	require.NoError(t, err)
	assert.Equal(t, "900.00", acc.GoldBalance.StringFixed(2))

	acc, err = ledger.Update(ctx, "u1", model.CurrencyGold, dec("-50"), model.ModeSubtract)
	require.NoError(t, err)
	assert.Equal(t, "950.00", acc.GoldBalance.StringFixed(2))

	tests := []struct {
		name   string
		amount decimal.Decimal
		mode   model.UpdateMode
	}{
		{"set below zero", dec("-5"), model.ModeSet},
		{"add past zero", dec("-950.01"), model.ModeAdd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Update(ctx, "u1", model.CurrencyGold, tt.amount, tt.mode)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInsufficientBalance), "got %v", err)
			assert.Equal(t, "950.00", store.balance("u1", model.CurrencyGold))
		})
	}
}

func TestLedger_SettlementRejectsNegativeWager(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	_, err = ledger.ApplyWagerSettlement(ctx, "u1", model.CurrencyGold, dec("-10"), dec("0"), "slots")
	assert.True(t, errors.Is(err, ErrInvalidAmount), "got %v", err)
	_, err = ledger.ApplyWagerSettlement(ctx, "u1", model.CurrencyGold, dec("10"), dec("-1"), "slots")
	assert.True(t, errors.Is(err, ErrInvalidAmount), "got %v", err)
	assert.Equal(t, "1000.00", store.balance("u1", model.CurrencyGold))
}

func TestLedger_UpdateMissingAccount(t *testing.T) {
	ledger, _ := newTestLedger(t, nil)

	_, err := ledger.Update(context.Background(), "ghost", model.CurrencyGold, dec("1"), model.ModeAdd)
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestLedger_UpdateStorageError(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	store.err = errConnRefused
	_, err = ledger.Update(ctx, "u1", model.CurrencyGold, dec("1"), model.ModeAdd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.False(t, errors.Is(err, ErrInsufficientBalance))
}

func TestLedger_ConcurrentSubtractsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Update(ctx, "u1", model.CurrencyGold, dec("600"), model.ModeSubtract)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrInsufficientBalance) {
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, fail)
	assert.Equal(t, "400.00", store.balance("u1", model.CurrencyGold))
}

func TestLedger_ConcurrentAddsAllApply(t *testing.T) {
	ctx := context.Background()
	ledger, store := newTestLedger(t, nil)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ledger.Update(ctx, "u1", model.CurrencyBuffalo, dec("1"), model.ModeAdd)
		}()
	}
	wg.Wait()

	assert.Equal(t, "100.00", store.balance("u1", model.CurrencyBuffalo))
}

func TestLedger_ApplyWagerSettlement(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	ledger, _ := newTestLedger(t, pub)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	acc, err := ledger.ApplyWagerSettlement(ctx, "u1", model.CurrencyGold, dec("100"), dec("250"), "buffalo-slots")
	require.NoError(t, err)
	assert.Equal(t, "1150.00", acc.GoldBalance.StringFixed(2))

	require.Len(t, pub.settlements, 1)
	s := pub.settlements[0]
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, "buffalo-slots", s.GameID)
	assert.Equal(t, "1000.00", s.BalanceBefore.StringFixed(2))
	assert.Equal(t, "1150.00", s.BalanceAfter.StringFixed(2))
	assert.False(t, s.SettledAt.IsZero())
}

func TestLedger_SettlementRejectedWhenBetExceedsBalance(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	ledger, store := newTestLedger(t, pub)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	// 以净结果判断是否透支
	_, err = ledger.ApplyWagerSettlement(ctx, "u1", model.CurrencyBuffalo, dec("60"), dec("100"), "g")
	require.NoError(t, err, "net result is positive so the settlement applies")
	assert.Equal(t, "90.00", store.balance("u1", model.CurrencyBuffalo))

	_, err = ledger.ApplyWagerSettlement(ctx, "u1", model.CurrencyBuffalo, dec("200"), dec("0"), "g")
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.Equal(t, "90.00", store.balance("u1", model.CurrencyBuffalo))
	assert.Len(t, pub.settlements, 1)
}

func TestLedger_SettlementPublishFailureIgnored(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	ledger, store := newTestLedger(t, pub)
	_, err := ledger.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	acc, err := ledger.ApplyWagerSettlement(ctx, "u1", model.CurrencyGold, dec("10"), dec("0"), "g")
	require.NoError(t, err)
	assert.Equal(t, "990.00", acc.GoldBalance.StringFixed(2))
	assert.Equal(t, "990.00", store.balance("u1", model.CurrencyGold))
}
