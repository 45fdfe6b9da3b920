package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/pressly/goose/v3"
)

// Migrate 使用 goose 执行 fsys 中 dir 目录下的 SQL 迁移
func (c *Client) Migrate(ctx context.Context, fsys fs.FS, dir string) error {
	db := stdlib.OpenDBFromPool(c.pool)
	defer db.Close()

	goose.SetLogger(gooseLogger{c.logger})
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("pgx"); err != nil {
		return errors.Wrap(err, "failed to set goose dialect")
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return errors.Wrap(err, "failed to read migration version")
	}
	c.logger.Info("migrations applied", "version", version)
	return nil
}

// gooseLogger 将 goose 输出转接到框架 logger
type gooseLogger struct {
	l logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
