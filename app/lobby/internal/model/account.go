package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency 货币类型
type Currency string

const (
	CurrencyGold    Currency = "gold"
	CurrencyBuffalo Currency = "buffalo"
)

// Valid 是否为已知货币
func (c Currency) Valid() bool {
	return c == CurrencyGold || c == CurrencyBuffalo
}

// UpdateMode 余额变更方式
type UpdateMode string

const (
	ModeAdd      UpdateMode = "add"
	ModeSubtract UpdateMode = "subtract"
	ModeSet      UpdateMode = "set"
)

func (m UpdateMode) Valid() bool {
	switch m {
	case ModeAdd, ModeSubtract, ModeSet:
		return true
	}
	return false
}

// 新账户初始余额
var (
	StartingGold    = decimal.RequireFromString("1000.00")
	StartingBuffalo = decimal.RequireFromString("50.00")
)

// Account 账户余额，对应 user_currency_balances 表
type Account struct {
	ID             int64           `db:"id" json:"-"`
	UserID         string          `db:"user_id" json:"user_id"`
	GoldBalance    decimal.Decimal `db:"gold_balance" json:"gold_balance"`
	BuffaloBalance decimal.Decimal `db:"buffalo_balance" json:"buffalo_balance"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Balance 返回指定货币余额
func (a *Account) Balance(c Currency) decimal.Decimal {
	if c == CurrencyBuffalo {
		return a.BuffaloBalance
	}
	return a.GoldBalance
}

// SetBalance 设置指定货币余额
func (a *Account) SetBalance(c Currency, v decimal.Decimal) {
	if c == CurrencyBuffalo {
		a.BuffaloBalance = v
		return
	}
	a.GoldBalance = v
}

// Settlement 一次下注结算的结果，用于事件投递
type Settlement struct {
	UserID        string          `json:"user_id"`
	Currency      Currency        `json:"currency"`
	Bet           decimal.Decimal `json:"bet_amount"`
	Win           decimal.Decimal `json:"win_amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	GameID        string          `json:"game_id,omitempty"`
	SettledAt     time.Time       `json:"settled_at"`
}
