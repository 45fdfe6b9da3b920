package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/metrics"
	"github.com/lk2023060901/xdooria-lobby/app/lobby/internal/model"
	"github.com/lk2023060901/xdooria-lobby/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-lobby/pkg/idgen"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
)

const vaultTable = "user_vault"

// VaultDAO 用户存储数据访问对象
type VaultDAO struct {
	db      *postgres.Client
	ids     idgen.Generator
	logger  logger.Logger
	metrics *metrics.LobbyMetrics
}

func NewVaultDAO(db *postgres.Client, ids idgen.Generator, l logger.Logger, m *metrics.LobbyMetrics) *VaultDAO {
	return &VaultDAO{
		db:      db,
		ids:     ids,
		logger:  l.Named("dao.vault"),
		metrics: m,
	}
}

func (d *VaultDAO) record(op string, err error, start time.Time) {
	d.metrics.RecordDBQuery(op, err == nil, time.Since(start).Seconds())
}

// Get 读取单个条目，不存在时 found 为 false
func (d *VaultDAO) Get(ctx context.Context, userID, key string) (value json.RawMessage, found bool, err error) {
	start := time.Now()
	defer func() { d.record("select", err, start) }()

	query, args, err := postgres.QueryBuilder.
		Select("value").
		From(vaultTable).
		Where(squirrel.Eq{"user_id": userID, "key": key}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build query: %w", err)
	}

	var raw string
	if err := d.db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if postgres.IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get vault entry: %w", err)
	}
	return json.RawMessage(raw), true, nil
}

// Upsert 写入条目，已存在时整体覆盖
func (d *VaultDAO) Upsert(ctx context.Context, userID, key string, value json.RawMessage) (err error) {
	start := time.Now()
	defer func() { d.record("upsert", err, start) }()

	id, err := d.ids.NextID()
	if err != nil {
		return fmt.Errorf("failed to generate vault id: %w", err)
	}

	query, args, err := postgres.QueryBuilder.
		Insert(vaultTable).
		Columns("id", "user_id", "key", "value").
		Values(id, userID, key, string(value)).
		Suffix("ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert vault entry: %w", err)
	}
	return nil
}

// Delete 删除条目，条目不存在不视为错误
func (d *VaultDAO) Delete(ctx context.Context, userID, key string) (err error) {
	start := time.Now()
	defer func() { d.record("delete", err, start) }()

	query, args, err := postgres.QueryBuilder.
		Delete(vaultTable).
		Where(squirrel.Eq{"user_id": userID, "key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete vault entry: %w", err)
	}
	return nil
}

// List 返回用户全部条目
func (d *VaultDAO) List(ctx context.Context, userID string) (entries map[string]json.RawMessage, err error) {
	start := time.Now()
	defer func() { d.record("select", err, start) }()

	query, args, err := postgres.QueryBuilder.
		Select("id", "user_id", "key", "value", "created_at", "updated_at").
		From(vaultTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := postgres.QueryAll[model.VaultEntry](ctx, d.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vault entries: %w", err)
	}

	entries = make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		entries[row.Key] = row.RawValue()
	}
	return entries, nil
}
