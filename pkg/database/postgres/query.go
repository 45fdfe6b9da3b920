package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// Querier Client 与 Tx 共有的读写能力
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

var (
	_ Querier = (*Client)(nil)
	_ Querier = (*txWrapper)(nil)
)

// cancelRow 在 Scan 完成后释放超时 context
type cancelRow struct {
	row    pgx.Row
	cancel context.CancelFunc
}

func (r cancelRow) Scan(dest ...any) error {
	defer r.cancel()
	return r.row.Scan(dest...)
}

// QueryRow 查询单行，超时在 Scan 结束后释放
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, cancel := c.withTimeout(ctx)
	return cancelRow{row: c.pool.QueryRow(ctx, sql, args...), cancel: cancel}
}

// Exec 执行写操作，返回受影响行数
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

// QueryOne 查询单条记录并按 db tag 映射到 T，无结果返回 ErrNoRows
func QueryOne[T any](ctx context.Context, c *Client, sql string, args ...any) (*T, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "query failed")
		}
		return nil, ErrNoRows
	}
	var out T
	if err := scanStruct(rows, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryAll 查询多条记录并按 db tag 映射到 T
func QueryAll[T any](ctx context.Context, c *Client, sql string, args ...any) ([]*T, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		item := new(T)
		if err := scanStruct(rows, item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	return out, nil
}
