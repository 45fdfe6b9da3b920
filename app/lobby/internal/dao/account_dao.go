package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-lobby/pkg/idgen"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
)

const accountTable = "user_currency_balances"

var accountColumns = []string{"id", "user_id", "gold_balance", "buffalo_balance", "created_at", "updated_at"}

// AccountDAO 余额数据访问对象
type AccountDAO struct {
	db      *postgres.Client
	ids     idgen.Generator
	logger  logger.Logger
	metrics *metrics.LobbyMetrics
}

// NewAccountDAO 创建余额 DAO
func NewAccountDAO(db *postgres.Client, ids idgen.Generator, l logger.Logger, m *metrics.LobbyMetrics) *AccountDAO {
	return &AccountDAO{
		db:      db,
		ids:     ids,
		logger:  l.Named("dao.account"),
		metrics: m,
	}
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.GoldBalance,
		&a.BuffaloBalance,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if postgres.IsNoRows(err) {
			return nil, postgres.ErrNoRows
		}
		return nil, err
	}
	return &a, nil
}

// Get 查询账户，不存在返回 postgres.ErrNoRows
func (d *AccountDAO) Get(ctx context.Context, userID string) (acc *model.Account, err error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("select", err == nil || postgres.IsNoRows(err), time.Since(start).Seconds())
	}()

	query, args, err := postgres.QueryBuilder.
		Select(accountColumns...).
		From(accountTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	acc, err = scanAccount(d.db.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// CreateIfAbsent 以初始余额插入账户，已存在时不做任何事。返回是否由本次调用创建
func (d *AccountDAO) CreateIfAbsent(ctx context.Context, userID string) (created bool, err error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("insert", err == nil, time.Since(start).Seconds())
	}()

	id, err := d.ids.NextID()
	if err != nil {
		return false, fmt.Errorf("failed to generate account id: %w", err)
	}

	query, args, err := postgres.QueryBuilder.
		Insert(accountTable).
		Columns("id", "user_id", "gold_balance", "buffalo_balance").
		Values(id, userID, model.StartingGold, model.StartingBuffalo).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	n, err := d.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}
	if n > 0 {
		d.logger.InfoContext(ctx, "account created", "user_id", userID)
	}
	return n > 0, nil
}

// UpdateLocked 在事务中锁定账户行并执行 fn，fn 修改后的余额随后写回。
// fn 返回错误时事务回滚，账户保持不变；账户不存在返回 postgres.ErrNoRows
func (d *AccountDAO) UpdateLocked(ctx context.Context, userID string, fn func(acc *model.Account) error) (acc *model.Account, err error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDBQuery("update", err == nil, time.Since(start).Seconds())
	}()

	selectSQL, selectArgs, err := postgres.QueryBuilder.
		Select(accountColumns...).
		From(accountTable).
		Where(squirrel.Eq{"user_id": userID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	err = d.db.WithTx(ctx, func(tx postgres.Tx) error {
		locked, err := scanAccount(tx.QueryRow(ctx, selectSQL, selectArgs...))
		if err != nil {
			return err
		}
		if err := fn(locked); err != nil {
			return err
		}

		updateSQL, updateArgs, err := postgres.QueryBuilder.
			Update(accountTable).
			Set("gold_balance", locked.GoldBalance).
			Set("buffalo_balance", locked.BuffaloBalance).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"id": locked.ID}).
			Suffix("RETURNING updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build update: %w", err)
		}
		if err := tx.QueryRow(ctx, updateSQL, updateArgs...).Scan(&locked.UpdatedAt); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
		acc = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}
