package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// Tx 事务接口
type Tx interface {
	Querier
}

type txWrapper struct {
	tx pgx.Tx
}

func (t *txWrapper) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *txWrapper) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

// TxIsolationLevel 事务隔离级别
type TxIsolationLevel string

const (
	TxIsolationLevelDefault        TxIsolationLevel = ""
	TxIsolationLevelReadCommitted  TxIsolationLevel = "read committed"
	TxIsolationLevelRepeatableRead TxIsolationLevel = "repeatable read"
	TxIsolationLevelSerializable   TxIsolationLevel = "serializable"
)

// TxOptions 事务选项
type TxOptions struct {
	IsoLevel TxIsolationLevel
	ReadOnly bool
}

// WithTx 在事务中执行 fn，fn 返回错误或 panic 时回滚。
// 整个事务受 QueryTimeout 约束，调用方取消 context 时事务要么已提交要么被回滚。
func (c *Client) WithTx(ctx context.Context, fn func(Tx) error) error {
	return c.WithTxOptions(ctx, TxOptions{}, fn)
}

// WithTxOptions 使用选项在事务中执行 fn
func (c *Client) WithTxOptions(ctx context.Context, opts TxOptions, fn func(Tx) error) (err error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pgxOpts := pgx.TxOptions{IsoLevel: pgx.TxIsoLevel(opts.IsoLevel)}
	if opts.ReadOnly {
		pgxOpts.AccessMode = pgx.ReadOnly
	}

	tx, err := c.pool.BeginTx(ctx, pgxOpts)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&txWrapper{tx: tx}); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			c.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
