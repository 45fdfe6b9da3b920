package service

import "github.com/cockroachdb/errors"

// 账本错误
var (
	ErrAccountNotFound     = errors.New("ledger: account not found")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrInvalidAmount       = errors.New("ledger: invalid amount")
	ErrInvalidCurrency     = errors.New("ledger: invalid currency")
	ErrInvalidMode         = errors.New("ledger: invalid update mode")
)

// ErrStorageUnavailable 存储访问失败，账本原样上抛，设置与进度仅在写入时上抛
var ErrStorageUnavailable = errors.New("storage unavailable")

// 设置与进度错误
var (
	ErrUnknownSetting      = errors.New("settings: unknown setting")
	ErrInvalidSettingValue = errors.New("settings: invalid setting value")
	ErrUnknownStatistic    = errors.New("progress: unknown statistic")
	ErrInvalidProgress     = errors.New("progress: invalid progress value")
)

// storageError 包装底层错误并标记为 ErrStorageUnavailable
func storageError(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrStorageUnavailable)
}
