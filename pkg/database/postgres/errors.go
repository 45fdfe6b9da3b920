package postgres

import (
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("postgres: config is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("postgres: invalid config")

	// ErrNoRows 没有查询到数据
	ErrNoRows = errors.New("postgres: no rows in result set")
)

// SQLSTATE
const (
	CodeUndefinedTable  = "42P01"
	CodeUniqueViolation = "23505"
	CodeCheckViolation  = "23514"
)

func invalidConfig(msg string) error {
	return errors.Wrap(ErrInvalidConfig, msg)
}

// IsNoRows 是否为查询无结果
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// ErrorCode 返回 PostgreSQL SQLSTATE，非服务端错误返回空串
func ErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUndefinedTable 表不存在（relation does not exist）
func IsUndefinedTable(err error) bool {
	return ErrorCode(err) == CodeUndefinedTable
}

// IsUniqueViolation 唯一约束冲突
func IsUniqueViolation(err error) bool {
	return ErrorCode(err) == CodeUniqueViolation
}
