package model

import (
	"encoding/json"
	"time"
)

// 保留存储键
const (
	VaultKeySettings = "game_settings"
	VaultKeyProgress = "game_progress"
)

// VaultEntry 用户存储条目，对应 user_vault 表
type VaultEntry struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// RawValue 以 JSON 形式返回值
func (e *VaultEntry) RawValue() json.RawMessage {
	return json.RawMessage(e.Value)
}
