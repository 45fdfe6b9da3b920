package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/events"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/otel"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

// LedgerService 余额账本。读取-计算-写入在单个行锁事务内完成
type LedgerService struct {
	accounts AccountStore
	events   events.Publisher
	logger   logger.Logger
	metrics  *metrics.LobbyMetrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewLedgerService 创建账本服务
func NewLedgerService(accounts AccountStore, pub events.Publisher, l logger.Logger, m *metrics.LobbyMetrics) *LedgerService {
	return &LedgerService{
		accounts: accounts,
		events:   pub,
		logger:   l.Named("service.ledger"),
		metrics:  m,
		tracer:   otel.Tracer("lobby.ledger"),
		now:      time.Now,
	}
}

// GetOrCreate 返回账户，首次访问时以初始余额创建。并发创建时落败方重新读取
func (s *LedgerService) GetOrCreate(ctx context.Context, userID string) (*model.Account, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.GetOrCreate", otel.WithAttributes(otel.String("user_id", userID)))
	defer span.End()

	acc, err := s.accounts.Get(ctx, userID)
	if err == nil {
		return acc, nil
	}
	if !postgres.IsNoRows(err) {
		otel.RecordError(span, err)
		return nil, storageError(err, "load account")
	}

	if _, err := s.accounts.CreateIfAbsent(ctx, userID); err != nil {
		otel.RecordError(span, err)
		return nil, storageError(err, "create account")
	}

	acc, err = s.accounts.Get(ctx, userID)
	if err != nil {
		otel.RecordError(span, err)
		if postgres.IsNoRows(err) {
			return nil, ErrAccountNotFound
		}
		return nil, storageError(err, "reload account")
	}
	return acc, nil
}

// validatePrecision numeric(20,2) 只保留两位小数
func validatePrecision(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return errors.Wrapf(ErrInvalidAmount, "amount %s has more than 2 decimal places", amount)
	}
	return nil
}

// validateWager 下注与派彩不能为负
func validateWager(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Wrapf(ErrInvalidAmount, "amount %s is negative", amount)
	}
	return validatePrecision(amount)
}

// Update 按 mode 修改一种货币的余额，结果为负时拒绝且余额不变
func (s *LedgerService) Update(ctx context.Context, userID string, currency model.Currency, amount decimal.Decimal, mode model.UpdateMode) (acc *model.Account, err error) {
	if !currency.Valid() {
		return nil, errors.Wrapf(ErrInvalidCurrency, "currency %q", currency)
	}
	if !mode.Valid() {
		return nil, errors.Wrapf(ErrInvalidMode, "mode %q", mode)
	}
	// 负数 amount 合法，是否透支只看计算结果
	if err := validatePrecision(amount); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "ledger.Update", otel.WithAttributes(
		otel.String("user_id", userID),
		otel.String("currency", string(currency)),
		otel.String("mode", string(mode)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordLedgerOp("update", outcome(err), time.Since(start).Seconds())
		otel.RecordError(span, err)
	}()

	acc, err = s.accounts.UpdateLocked(ctx, userID, func(a *model.Account) error {
		current := a.Balance(currency)
		var next decimal.Decimal
		switch mode {
		case model.ModeAdd:
			next = current.Add(amount)
		case model.ModeSubtract:
			next = current.Sub(amount)
		case model.ModeSet:
			next = amount
		}
		if next.IsNegative() {
			return errors.Wrapf(ErrInsufficientBalance, "%s balance %s, %s %s", currency, current.StringFixed(2), mode, amount.StringFixed(2))
		}
		a.SetBalance(currency, next)
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "update balance")
	}

	s.logger.InfoContext(ctx, "balance updated",
		"user_id", userID,
		"currency", currency,
		"mode", mode,
		"amount", amount.StringFixed(2),
		"balance", acc.Balance(currency).StringFixed(2),
	)
	return acc, nil
}

// ApplyWagerSettlement 一次性结算下注：余额 = 当前 - bet + win，不会暴露中间状态
func (s *LedgerService) ApplyWagerSettlement(ctx context.Context, userID string, currency model.Currency, bet, win decimal.Decimal, gameID string) (acc *model.Account, err error) {
	if !currency.Valid() {
		return nil, errors.Wrapf(ErrInvalidCurrency, "currency %q", currency)
	}
	if err := validateWager(bet); err != nil {
		return nil, err
	}
	if err := validateWager(win); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "ledger.ApplyWagerSettlement", otel.WithAttributes(
		otel.String("user_id", userID),
		otel.String("currency", string(currency)),
		otel.String("game_id", gameID),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordLedgerOp("settle", outcome(err), time.Since(start).Seconds())
		otel.RecordError(span, err)
	}()

	var before decimal.Decimal
	acc, err = s.accounts.UpdateLocked(ctx, userID, func(a *model.Account) error {
		before = a.Balance(currency)
		next := before.Sub(bet).Add(win)
		if next.IsNegative() {
			return errors.Wrapf(ErrInsufficientBalance, "%s balance %s, bet %s", currency, before.StringFixed(2), bet.StringFixed(2))
		}
		a.SetBalance(currency, next)
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "settle wager")
	}

	settlement := &model.Settlement{
		UserID:        userID,
		Currency:      currency,
		Bet:           bet,
		Win:           win,
		BalanceBefore: before,
		BalanceAfter:  acc.Balance(currency),
		GameID:        gameID,
		SettledAt:     s.now(),
	}
	// 结算已提交，投递失败只记录
	if perr := s.events.PublishSettlement(ctx, settlement); perr != nil {
		s.logger.WarnContext(ctx, "failed to publish settlement event",
			"user_id", userID,
			"game_id", gameID,
			"error", perr,
		)
	}
	return acc, nil
}

// classify 将事务错误归类为账本错误
func (s *LedgerService) classify(err error, msg string) error {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return err
	case postgres.IsNoRows(err):
		return ErrAccountNotFound
	case postgres.ErrorCode(err) == postgres.CodeCheckViolation:
		// 数据库约束兜底
		return errors.Wrap(ErrInsufficientBalance, err.Error())
	default:
		s.logger.Error("ledger storage failure", "op", msg, "error", err)
		return storageError(err, msg)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrAccountNotFound):
		return "rejected"
	default:
		return "failed"
	}
}
